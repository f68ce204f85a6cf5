package event

import "sync"

// History keeps the most recent records in memory
type History struct {
	mu      sync.Mutex
	records []Record
	size    int
}

// NewHistory creates a History holding up to size records
func NewHistory(size int) *History {
	return &History{size: size}
}

func (h *History) Emit(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, r)
	if h.size > 0 && len(h.records) > h.size {
		h.records = h.records[len(h.records)-h.size:]
	}
}

// Records returns a copy of the kept records, oldest first
func (h *History) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Types returns the types of the kept records, oldest first
func (h *History) Types() []Type {
	records := h.Records()
	types := make([]Type, len(records))
	for i, r := range records {
		types[i] = r.Type
	}
	return types
}

// Count returns how many kept records have type t
func (h *History) Count(t Type) int {
	var n int
	for _, r := range h.Records() {
		if r.Type == t {
			n++
		}
	}
	return n
}
