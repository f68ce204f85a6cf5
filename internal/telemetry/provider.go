package telemetry

// Provider gives read access to the latest vehicle snapshot
type Provider interface {
	Get() Snapshot
}
