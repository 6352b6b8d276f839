package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		t.Run(env, func(t *testing.T) {
			l, err := Init(env)
			require.NoError(t, err)
			assert.Same(t, l, Get())
			assert.Same(t, l, zap.L())
		})
	}
}

func TestGetWithoutInit(t *testing.T) {
	logger = nil
	assert.NotNil(t, Get())
}
