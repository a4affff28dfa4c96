package appconfig

import (
	"errors"
	"strings"

	"psnapi/core/psn/adapters/upstream"
	"psnapi/core/psn/domain"
	"psnapi/modules/db/redis"
	"psnapi/modules/middleware/ratelimit"
	"psnapi/modules/telemetry"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env string `env:"ENV" envDefault:"dev"`

	// --- http server ----
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8000"`

	// --- facade ----
	ProfileCacheSize int             `env:"PROFILE_CACHE_SIZE" envDefault:"100"`
	Upstream         upstream.Config // NPSSO and PSN_* carry no shared prefix

	// --- core infra ----
	Redis redis.RedisConfig `envPrefix:"REDIS_"`

	// --- middlewares ----
	RateLimit ratelimit.RestHTTPConfig `envPrefix:"RATE_LIMIT_"`

	// --- otel ----
	// since it has special naming conventions, we do not use prefix here
	Otel telemetry.Config
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Upstream.NPSSO) == "" {
		return errors.New("appconfig: NPSSO must be set")
	}
	if c.ProfileCacheSize <= 0 {
		c.ProfileCacheSize = domain.DefaultCacheSize
	}
	return nil
}
