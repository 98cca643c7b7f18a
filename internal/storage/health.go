package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// HealthChecker checks one dependency of the server
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	IsCritical() bool // Critical services block startup if unhealthy
	Name() string
}

// HealthManager runs a set of health checkers
type HealthManager struct {
	checkers []HealthChecker
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewHealthManager creates a new health manager
func NewHealthManager(logger *zap.Logger) *HealthManager {
	return &HealthManager{
		checkers: make([]HealthChecker, 0),
		logger:   logger,
	}
}

// AddChecker adds a health checker to the manager
func (h *HealthManager) AddChecker(checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
}

// StartupHealthCheck fails when any critical checker fails. Non-critical
// failures are only logged.
func (h *HealthManager) StartupHealthCheck(ctx context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var criticalFailures []error

	for _, checker := range h.checkers {
		err := checker.HealthCheck(ctx)
		switch {
		case err == nil:
			h.logger.Info("Service health check passed",
				zap.String("service", checker.Name()),
				zap.Bool("critical", checker.IsCritical()))
		case checker.IsCritical():
			criticalFailures = append(criticalFailures, fmt.Errorf("%s: %w", checker.Name(), err))
			h.logger.Error("Critical service health check failed",
				zap.String("service", checker.Name()),
				zap.Error(err))
		default:
			h.logger.Warn("Non-critical service health check failed",
				zap.String("service", checker.Name()),
				zap.Error(err))
		}
	}

	if len(criticalFailures) > 0 {
		return fmt.Errorf("critical services failed health check: %v", criticalFailures)
	}
	return nil
}

// RuntimeHealthCheck returns the result of every checker by name
func (h *HealthManager) RuntimeHealthCheck(ctx context.Context) map[string]error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	results := make(map[string]error, len(h.checkers))
	for _, checker := range h.checkers {
		results[checker.Name()] = checker.HealthCheck(ctx)
	}
	return results
}

// DatabaseHealthChecker checks database connectivity
type DatabaseHealthChecker struct {
	db *bun.DB
}

// NewDatabaseHealthChecker creates a database health checker
func NewDatabaseHealthChecker(db *bun.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db}
}

func (d *DatabaseHealthChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseHealthChecker) IsCritical() bool {
	return true
}

func (d *DatabaseHealthChecker) Name() string {
	return "database"
}

// ConfigHealthChecker checks configuration validity
type ConfigHealthChecker struct {
	validate func() error
}

// NewConfigHealthChecker creates a config health checker from a validation func
func NewConfigHealthChecker(validate func() error) *ConfigHealthChecker {
	return &ConfigHealthChecker{validate: validate}
}

func (c *ConfigHealthChecker) HealthCheck(ctx context.Context) error {
	if c.validate == nil {
		return fmt.Errorf("configuration is nil")
	}
	return c.validate()
}

func (c *ConfigHealthChecker) IsCritical() bool {
	return true
}

func (c *ConfigHealthChecker) Name() string {
	return "configuration"
}
