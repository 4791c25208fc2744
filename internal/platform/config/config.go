package config

import (
	"fmt"

	"github.com/shopforge/commerce-backend/internal/platform/envutil"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

// Config carries the settings shared by every service binary. Values are
// read from SERVICE_* environment variables with per-service defaults.
type Config struct {
	ServiceName string
	Environment string
	Host        string
	Port        int

	DatabaseURL string
	RedisAddr   string
}

func Load(serviceName string, defaultPort int, log *logger.Logger) Config {
	cfg := Config{
		ServiceName: serviceName,
		Environment: envutil.GetEnv("SERVICE_ENVIRONMENT", "development", log),
		Host:        envutil.GetEnv("SERVICE_HOST", "0.0.0.0", log),
		Port:        envutil.GetEnvAsInt("SERVICE_PORT", defaultPort, log),
		DatabaseURL: envutil.GetEnv("SERVICE_DATABASE_URL", serviceName+".db", log),
		RedisAddr:   envutil.GetEnv("SERVICE_REDIS_ADDR", "", log),
	}
	return cfg
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
