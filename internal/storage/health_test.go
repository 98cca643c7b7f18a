package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubChecker struct {
	name     string
	critical bool
	err      error
}

func (s stubChecker) HealthCheck(ctx context.Context) error { return s.err }
func (s stubChecker) IsCritical() bool                      { return s.critical }
func (s stubChecker) Name() string                          { return s.name }

func TestStartupHealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("non-critical failure is tolerated", func(t *testing.T) {
		h := NewHealthManager(zap.NewNop())
		h.AddChecker(stubChecker{name: "database", critical: true})
		h.AddChecker(stubChecker{name: "cache", err: errors.New("down")})
		assert.NoError(t, h.StartupHealthCheck(ctx))
	})

	t.Run("critical failure fails startup", func(t *testing.T) {
		h := NewHealthManager(zap.NewNop())
		h.AddChecker(stubChecker{name: "database", critical: true, err: errors.New("refused")})
		err := h.StartupHealthCheck(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database")
	})
}

func TestRuntimeHealthCheck(t *testing.T) {
	h := NewHealthManager(zap.NewNop())
	h.AddChecker(NewConfigHealthChecker(func() error { return nil }))
	h.AddChecker(stubChecker{name: "database", critical: true, err: errors.New("refused")})

	results := h.RuntimeHealthCheck(context.Background())
	require.Len(t, results, 2)
	assert.NoError(t, results["configuration"])
	assert.Error(t, results["database"])
}

func TestConfigHealthCheckerWithoutValidator(t *testing.T) {
	assert.Error(t, NewConfigHealthChecker(nil).HealthCheck(context.Background()))
}
