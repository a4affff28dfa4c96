package ratelimit

import (
	"time"
)

type KeyStrategyId string

const (
	RemoteIpKeyStrategy KeyStrategyId = "remote_ip"
)

type (
	// RestHTTPConfig runs open by default: routes without a policy pass
	// through until limits are configured.
	RestHTTPConfig struct {
		Routes              []Route      `envPrefix:"ROUTE_"`
		DefaultPolicy       EndpointRule `envPrefix:"DEFAULT_"`
		AllowIfNoMatch      bool         `env:"ALLOW_IF_NO_MATCH" envDefault:"true"`
		AllowIfNoIdentifier bool         `env:"ALLOW_IF_NO_ID" envDefault:"true"`
	}

	Route struct {
		// TODO: define common convention for pattern
		Pattern       string         `env:"PATTERN"`
		EndpointRules []EndpointRule `envPrefix:"POLICY_"`
	}

	EndpointRule struct {
		Method      string        `env:"METHOD"`
		Limit       int64         `env:"LIMIT" envDefault:"10000"`
		Window      time.Duration `env:"WINDOW"`
		KeyStrategy KeyStrategyId `env:"KEY_STRATEGY"`
	}
)
