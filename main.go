// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"psnapi/modules/appconfig"
	"psnapi/modules/clock"
	"psnapi/modules/db/redis"
	"psnapi/modules/db/redis/counter"
	"psnapi/modules/middleware"
	"psnapi/modules/middleware/ratelimit"
	rl "psnapi/modules/ratelimit"
	"psnapi/modules/server"
	"psnapi/modules/services"
	"psnapi/modules/telemetry"

	"psnapi/core/psn/adapters/upstream"
	"psnapi/core/psn/domain"
	"psnapi/oapi"
)

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	// cancel the context when these signals occur
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer cancel()

	// manual dependency injection, no need for DI frameworks at this size

	// --- application config ----
	appConfig, err := appconfig.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	if appConfig.Env == "dev" {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// --- infrastructure ---

	otelShutdown, err := telemetry.Init(ctx, appConfig.Otel)
	if err != nil {
		slog.ErrorContext(ctx, "telemetry not properly configured", slog.Any("error", err))
		exitCode = 1
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "telemetry shutdown error", slog.Any("error", err))
		}
	}()

	upstreamMetrics, err := telemetry.NewUpstreamMetrics(appConfig.Otel.ServiceName)
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize upstream metrics, continuing without", slog.Any("error", err))
		upstreamMetrics = nil
	}

	// The credential is validated here so a misconfigured deployment dies on
	// startup, not on its first request.
	networkClient, err := upstream.New(appConfig.Upstream, upstream.WithMetrics(upstreamMetrics))
	if err != nil {
		slog.ErrorContext(ctx, "upstream client setup error", slog.Any("error", err))
		exitCode = 1
		return
	}

	// --- application layer ---

	app, err := domain.NewApp(networkClient, appConfig.ProfileCacheSize)
	if err != nil {
		slog.ErrorContext(ctx, "application setup error", slog.Any("error", err))
		exitCode = 1
		return
	}

	if err := telemetry.RegisterCacheGauge(appConfig.Otel.ServiceName, app.CachedUsers); err != nil {
		slog.WarnContext(ctx, "failed to register cache gauge", slog.Any("error", err))
	}

	// --- rate limiting ---
	//
	// With a Redis URL configured the limiter counts in a shared sliding
	// window across replicas; without one each process enforces its own
	// token bucket.
	var limiterFactory rl.LimiterFactory
	if appConfig.Redis.URL != "" {
		redisClient, err := redis.NewRueidisClient(ctx, appConfig.Redis)
		if err != nil {
			slog.ErrorContext(ctx, "redis not properly setup", slog.Any("error", err))
			exitCode = 1
			return
		}
		defer redisClient.Close()

		redisCounter := counter.NewRedisCounterStore(redisClient, appConfig.Env)
		limiterFactory = rl.SlidingWindowFactory(clock.RealClockProvider(), redisCounter, appConfig.Env)
	} else {
		slog.InfoContext(ctx, "no redis configured, using process-local rate limiting")
		limiterFactory = rl.TokenBucketFactory()
	}

	keyStrategies := map[ratelimit.KeyStrategyId]ratelimit.KeyFunc{
		ratelimit.RemoteIpKeyStrategy: ratelimit.RemoteIpKeyFunc,
	}

	rtp, err := ratelimit.ParsePolicy(
		limiterFactory,
		&appConfig.RateLimit,
		func(r *http.Request) ratelimit.RouteInfo {
			id := ratelimit.Pattern(r.Pattern)
			// pattern is empty if request did not match a registered pattern
			if r.Pattern == "" {
				id = ratelimit.Pattern(r.URL.Path)
			}
			return ratelimit.RouteInfo{
				ID:     id,
				Method: r.Method,
				Path:   r.URL.Path,
			}
		},
		keyStrategies,
	)
	if err != nil {
		slog.ErrorContext(ctx, "ratelimit config not properly parsed", slog.Any("error", err))
		exitCode = 1
		return
	}

	// --- http ---

	httpMetrics, err := telemetry.NewHTTPMetrics(appConfig.Otel.ServiceName)
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize HTTP metrics, continuing without metrics", slog.Any("error", err))
		httpMetrics = nil
	}

	psnSvc := services.NewPSNAPIService(app, oapi.FS, oapi.SpecPath)

	srv, err := server.New(
		appConfig.Host, appConfig.Port,
		server.WithWriteTimeout(10*time.Second),
		server.WithReadTimeout(10*time.Second),
		server.WithServices(psnSvc),
		server.WithGlobalMiddlewares(
			middleware.Telemetry(httpMetrics),
			middleware.RequestID(),
			ratelimit.NewRateLimitMiddleware(rtp),
		),
	)
	if err != nil {
		slog.ErrorContext(ctx, "init server error", slog.Any("error", err))
		exitCode = 1
		return
	}

	if err := srv.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "running server error", slog.Any("error", err))
		exitCode = 1
		return
	}
}
