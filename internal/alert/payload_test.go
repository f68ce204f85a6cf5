package alert

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_Marshal(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 30, 45, 999, time.FixedZone("EEST", 3*3600))
	p := NewPayload(50.4501, 30.5234, 150, 0.75, now)

	b, err := p.Marshal()
	require.NoError(t, err)

	assert.Equal(t,
		`{"type":"fire_coords","lat":50.4501,"lon":30.5234,"alt":150,"confidence":0.75,"timestamp":"2024-07-01T09:30:45Z"}`,
		string(b))
}

func TestPayload_Validate(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"valid", NewPayload(50, 30, 150, 0.7, now), false},
		{"confidence bounds", NewPayload(50, 30, 150, 1, now), false},
		{"confidence zero", NewPayload(50, 30, 150, 0, now), false},
		{"confidence above one", NewPayload(50, 30, 150, 1.01, now), true},
		{"confidence negative", NewPayload(50, 30, 150, -0.1, now), true},
		{"confidence nan", NewPayload(50, 30, 150, math.NaN(), now), true},
		{"lat nan", NewPayload(math.NaN(), 30, 150, 0.5, now), true},
		{"lon inf", NewPayload(50, math.Inf(1), 150, 0.5, now), true},
		{"alt inf", NewPayload(50, 30, math.Inf(-1), 0.5, now), true},
		{"lat out of range", NewPayload(91, 30, 150, 0.5, now), true},
		{"lon out of range", NewPayload(50, -181, 150, 0.5, now), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.payload.Validate()
			if c.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	assert.Equal(t, 3, DefaultRetryPolicy.Attempts())
	assert.Equal(t, 14*time.Second, DefaultRetryPolicy.Total())
	assert.Equal(t, []string{"2s", "4s", "8s"}, DefaultRetryPolicy.Strings())
	assert.NoError(t, DefaultRetryPolicy.Validate())

	assert.Error(t, RetryPolicy{}.Validate())
	assert.Error(t, RetryPolicy{time.Second, 0}.Validate())
}
