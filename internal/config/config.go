package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// this is a pointer so that if someone attempts to use it before loading it will
// panic and force them to load it first.
// it is also private so that it cannot be modified after loading.
var _loaded *Config

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the main configuration structure
type Config struct {
	Common Common `yaml:"common"`
}

// Load loads the configuration following proper precedence: defaults → config file → environment variables
func Load() {
	LoadDefault()

	configFile := os.Getenv("TASKBOARD_CONFIG_FILE")
	if configFile == "" {
		configFile = "taskboard.yaml"
	}

	if err := LoadFromFile(configFile); err != nil {
		log.Printf("Failed to load config file: %v, using defaults", err)
	} else {
		log.Printf("Loaded config from file: %s", configFile)
	}

	ApplyEnvOverrides()
}

func LoadDefault() {
	config := defaultConfig
	_loaded = &config
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Merge YAML values over defaults
	cfg := defaultConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	_loaded = &cfg
	return nil
}

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Common: Common{
		Log: logConfig{
			Level:  "info",
			Format: "json",
		},
		Http: httpConfig{
			Host:           "0.0.0.0",
			Port:           4000,
			MaxRequestSize: 1048576,
		},
		Postgres: postgresConfig{
			User:               "postgres",
			Password:           "postgres",
			Host:               "localhost",
			Port:               5432,
			Database:           "taskboard",
			SSLMode:            "disable",
			MaxOpenConnections: 10,
		},
		Storage: storageConfig{
			Driver:         DriverPostgres,
			MigrateOnStart: true,
		},
		Query: queryConfig{
			TaskDefaultLimit: 100,
			UserDefaultLimit: 0,
		},
		Metrics: metricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	},
}

type Common struct {
	Log      logConfig      `yaml:"log"`
	Http     httpConfig     `yaml:"http"`
	Postgres postgresConfig `yaml:"postgres"`
	Storage  storageConfig  `yaml:"storage"`
	Query    queryConfig    `yaml:"query"`
	Metrics  metricsConfig  `yaml:"metrics"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type httpConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxRequestSize int64  `yaml:"max_request_size"`
}

func (c httpConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type postgresConfig struct {
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	SSLMode            string `yaml:"ssl_mode"`
	MaxOpenConnections int    `yaml:"max_open_connections"`
}

func (c postgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		url.QueryEscape(c.SSLMode),
	)
}

type storageConfig struct {
	Driver         string `yaml:"driver"`           // "postgres" or "memory"
	MigrateOnStart bool   `yaml:"migrate_on_start"` // create tables and indexes when serving
}

type queryConfig struct {
	TaskDefaultLimit int `yaml:"task_default_limit"` // 0 means unlimited
	UserDefaultLimit int `yaml:"user_default_limit"`
}

type metricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate reports settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Common.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Common.Storage.Driver)
	}
	if c.Common.Http.Port <= 0 || c.Common.Http.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Common.Http.Port)
	}
	if c.Common.Query.TaskDefaultLimit < 0 || c.Common.Query.UserDefaultLimit < 0 {
		return fmt.Errorf("default limits must not be negative")
	}
	return nil
}

// there should be a getter for each top level field in the config struct.
// these getters will panic if the config has not been loaded.

func Logger() logConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Log
}

func Http() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Http
}

func Postgres() postgresConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Postgres
}

func Storage() storageConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Storage
}

func Query() queryConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Query
}

func Metrics() metricsConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Metrics
}

func Get() *Config {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded
}

func ApplyEnvOverrides() {
	if _loaded == nil {
		return
	}

	if level := os.Getenv("TASKBOARD_LOG_LEVEL"); level != "" {
		_loaded.Common.Log.Level = level
	}
	if format := os.Getenv("TASKBOARD_LOG_FORMAT"); format != "" {
		_loaded.Common.Log.Format = format
	}

	if dbHost := os.Getenv("TASKBOARD_DB_HOST"); dbHost != "" {
		_loaded.Common.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("TASKBOARD_DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			_loaded.Common.Postgres.Port = port
		}
	}
	if dbUser := os.Getenv("TASKBOARD_DB_USER"); dbUser != "" {
		_loaded.Common.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("TASKBOARD_DB_PASSWORD"); dbPassword != "" {
		_loaded.Common.Postgres.Password = dbPassword
	}
	if dbName := os.Getenv("TASKBOARD_DB_NAME"); dbName != "" {
		_loaded.Common.Postgres.Database = dbName
	}
	if sslMode := os.Getenv("TASKBOARD_DB_SSLMODE"); sslMode != "" {
		_loaded.Common.Postgres.SSLMode = sslMode
	}

	if httpHost := os.Getenv("TASKBOARD_HTTP_HOST"); httpHost != "" {
		_loaded.Common.Http.Host = httpHost
	}
	if httpPort := os.Getenv("TASKBOARD_HTTP_PORT"); httpPort != "" {
		if port, err := strconv.Atoi(httpPort); err == nil {
			_loaded.Common.Http.Port = port
		}
	}

	if driver := os.Getenv("TASKBOARD_STORAGE_DRIVER"); driver != "" {
		_loaded.Common.Storage.Driver = driver
	}
	if limit := os.Getenv("TASKBOARD_TASK_DEFAULT_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			_loaded.Common.Query.TaskDefaultLimit = n
		}
	}
	if enabled := os.Getenv("TASKBOARD_METRICS_ENABLED"); enabled != "" {
		if on, err := strconv.ParseBool(enabled); err == nil {
			_loaded.Common.Metrics.Enabled = on
		}
	}
}
