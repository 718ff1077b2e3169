package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"skywatch/internal/config"
	"skywatch/internal/db"
	apihttp "skywatch/internal/http"
	"skywatch/internal/logging"
	"skywatch/internal/repository"
	"skywatch/internal/service"
	"skywatch/internal/weather"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfigFor(config.DefaultDataPort)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.RunMigrations {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	jwtSvc, err := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL(), cfg.JWTIssuer)
	if err != nil {
		logger.Fatal("jwt init", zap.Error(err))
	}

	cache := service.NewMemoryWeatherCache(cfg.WeatherCacheEntries, cfg.WeatherCacheTTL())
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory weather cache", zap.Error(err))
		} else {
			cache = service.NewRedisWeatherCache(redisClient)
		}
		cancel()
	}

	if cfg.OpenWeatherAPIKey == "" {
		logger.Warn("openweather api key not configured, weather endpoints disabled")
	}
	provider := weather.NewHTTPClient(cfg.OpenWeatherBaseURL, cfg.OpenWeatherGeoBaseURL, cfg.OpenWeatherAPIKey, logger)

	userRepo := repository.NewPgUserRepository(pool)
	locationRepo := repository.NewPgLocationRepository(pool)
	locationSvc := service.NewLocationService(logger, locationRepo)
	weatherSvc := service.NewWeatherService(logger, provider, cache, cfg.WeatherCacheTTL())

	router := apihttp.NewDataRouter(apihttp.RouterConfig{
		Logger:            logger,
		CORSOrigin:        cfg.CORSOrigin,
		ExposeErrorDetail: cfg.IsDevelopment(),
		HealthCheck:       pool.Ping,
	},
		apihttp.NewLocationHandler(logger, locationSvc),
		apihttp.NewWeatherHandler(logger, weatherSvc),
		jwtSvc,
		userRepo,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting userdata server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
