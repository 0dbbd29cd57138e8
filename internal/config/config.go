package config

import (
	"encoding/json"
	"os"
	"strconv"

	"linguasync/internal/constants"
	"linguasync/internal/models"
)

var (
	ErrMissingRedisAddr = models.ConfigError{Message: "missing redis address"}
	ErrMissingDBPath    = models.ConfigError{Message: "missing database path"}
)

// LoadConfig reads the JSON config file, validates it, and applies
// LINGUASYNC_* environment overrides.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Retry.SweepIntervalMin == 0 {
		c.Retry.SweepIntervalMin = int(constants.DefaultRetrySweepInterval.Minutes())
	}
	if c.Sync.WorkerPoolSize == 0 {
		c.Sync.WorkerPoolSize = constants.DefaultSyncWorkers
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if addr := os.Getenv("LINGUASYNC_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("LINGUASYNC_REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if db := os.Getenv("LINGUASYNC_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.Redis.DB = n
		}
	}
	if path := os.Getenv("LINGUASYNC_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("LINGUASYNC_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Server.Port = n
		}
	}
	if level := os.Getenv("LINGUASYNC_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

func validate(c *models.Config) error {
	if c.Redis.Addr == "" {
		return ErrMissingRedisAddr
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Sync.WorkerPoolSize < 1 {
		return models.ConfigError{Message: "sync workerPoolSize must be at least 1"}
	}
	return nil
}
