package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptClock(t *testing.T) {
	tests := []struct {
		name     string
		existing int64
		proposed int64
		want     bool
	}{
		{"greater", 5, 6, true},
		{"much greater", 0, 100, true},
		{"equal is conflict", 5, 5, false},
		{"older", 5, 4, false},
		{"negative", 0, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptClock(tt.existing, tt.proposed))
		})
	}
}
