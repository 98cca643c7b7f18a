package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taskboard/taskboard/internal/api"
	"github.com/taskboard/taskboard/internal/config"
	"github.com/taskboard/taskboard/internal/relations"
	"github.com/taskboard/taskboard/internal/storage"
	"github.com/taskboard/taskboard/internal/tasks"
	"github.com/taskboard/taskboard/internal/users"
)

// AppState holds all application services
type AppState struct {
	Logger      *zap.Logger
	Config      *config.Config
	DB          *bun.DB // nil with the memory driver
	Health      *storage.HealthManager
	TaskService tasks.TaskManager
	UserService users.UserManager
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	config.Load()
	if err := config.Get().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := initLogger()
	defer logger.Sync()

	as, err := newAppState(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application state: %w", err)
	}

	if err := as.Health.StartupHealthCheck(ctx); err != nil {
		as.Close()
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(&api.Handlers{
		Tasks:            as.TaskService,
		Users:            as.UserService,
		Health:           as.Health,
		Logger:           logger,
		TaskDefaultLimit: config.Query().TaskDefaultLimit,
		UserDefaultLimit: config.Query().UserDefaultLimit,
		MaxRequestSize:   config.Http().MaxRequestSize,
		MetricsPath:      metricsPath(),
	})

	addr := config.Http().Addr()
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := setupSignalHandler(as, server, logger)

	logger.Info("Starting taskboard server",
		zap.String("address", addr),
		zap.String("storage", config.Storage().Driver))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		as.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-done
	logger.Info("Server shutdown complete")
	return nil
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	config.Load()
	logger := initLogger()
	defer logger.Sync()

	if config.Storage().Driver != config.DriverPostgres {
		return fmt.Errorf("migrate requires the %q storage driver, configured %q", config.DriverPostgres, config.Storage().Driver)
	}

	pgConfig := config.Postgres()
	db, err := storage.Open(ctx, pgConfig.DSN(), pgConfig.MaxOpenConnections)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}

	logger.Info("Database schema is up to date",
		zap.String("host", pgConfig.Host),
		zap.String("database", pgConfig.Database))
	return nil
}

// newAppState wires the stores, the relationship manager and the services
// for the configured storage driver
func newAppState(ctx context.Context, logger *zap.Logger) (*AppState, error) {
	health := storage.NewHealthManager(logger)
	health.AddChecker(storage.NewConfigHealthChecker(config.Get().Validate))

	var (
		db        *bun.DB
		userStore users.UserStore
		taskStore tasks.TaskStore
	)

	switch config.Storage().Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory storage; data is lost on shutdown")
		userStore = users.NewInMemoryStore()
		taskStore = tasks.NewInMemoryStore()

	default:
		pgConfig := config.Postgres()
		logger.Info("Database configuration",
			zap.String("host", pgConfig.Host),
			zap.Int("port", pgConfig.Port),
			zap.String("database", pgConfig.Database),
			zap.String("user", pgConfig.User))

		var err error
		db, err = storage.Open(ctx, pgConfig.DSN(), pgConfig.MaxOpenConnections)
		if err != nil {
			return nil, err
		}

		if config.Storage().MigrateOnStart {
			if err := storage.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		health.AddChecker(storage.NewDatabaseHealthChecker(db))
		userStore = users.NewPostgresStore(db)
		taskStore = tasks.NewPostgresStore(db)
	}

	manager := relations.NewManager(userStore, taskStore, logger.Named("relations"))

	return &AppState{
		Logger:      logger,
		Config:      config.Get(),
		DB:          db,
		Health:      health,
		TaskService: tasks.NewService(taskStore, manager, logger.Named("tasks")),
		UserService: users.NewService(userStore, manager, logger.Named("users")),
	}, nil
}

// Close releases the database connection pool, if any
func (as *AppState) Close() error {
	if as.DB == nil {
		return nil
	}
	return as.DB.Close()
}

func metricsPath() string {
	if !config.Metrics().Enabled {
		return ""
	}
	return config.Metrics().Path
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	switch logConfig.Level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

func setupSignalHandler(as *AppState, server *http.Server, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		if err := as.Close(); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}

		done <- struct{}{}
	}()

	return done
}
