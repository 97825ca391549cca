package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30d", 30 * 24 * time.Hour},
		{"10", 10 * time.Second},
		{"800ms", 800 * time.Millisecond},
		{" 1m ", time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDuration("xd")
	assert.Error(t, err)
}

func TestDurationOr(t *testing.T) {
	assert.Equal(t, 5*time.Second, DurationOr("", 5*time.Second))
	assert.Equal(t, 5*time.Second, DurationOr("bogus", 5*time.Second))
	assert.Equal(t, 5*time.Second, DurationOr("-1s", 5*time.Second))
	assert.Equal(t, 400*time.Millisecond, DurationOr("400ms", 5*time.Second))
}
