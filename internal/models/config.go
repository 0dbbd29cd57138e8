package models

// Config holds the application configuration
type Config struct {
	Redis    RedisConfig    `json:"redis"`
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Retry    RetryConfig    `json:"retry"`
	Sync     SyncConfig     `json:"sync"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"log_level"`
}

// RedisConfig holds cache backend related configurations
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ServerConfig holds HTTP server related configurations
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// RetryConfig holds retry queue related configurations
type RetryConfig struct {
	SweepIntervalMin int `json:"sweepIntervalMin"`
}

// SyncConfig holds sync engine related configurations
type SyncConfig struct {
	WorkerPoolSize int `json:"workerPoolSize"`
}

// TracingConfig holds OpenTelemetry related configurations
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	ServiceName string `json:"serviceName"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
