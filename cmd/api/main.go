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
	"go.uber.org/zap"

	"skywatch/internal/config"
	"skywatch/internal/db"
	apihttp "skywatch/internal/http"
	"skywatch/internal/logging"
	"skywatch/internal/repository"
	"skywatch/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
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

	var identity service.IdentityVerifier = service.NewDisabledVerifier()
	if cfg.GoogleClientID != "" {
		verifier, err := service.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			logger.Fatal("google verifier init", zap.Error(err))
		}
		identity = verifier
	} else {
		logger.Warn("google client id not configured, google-auth disabled")
	}

	userRepo := repository.NewPgUserRepository(pool)
	hasher := service.NewArgon2Hasher(cfg.Argon2MemoryKB, cfg.Argon2Iterations, cfg.Argon2Parallelism)
	userSvc := service.NewUserService(logger, userRepo, hasher, identity, cfg.UsernameCaseInsensitive)
	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Logger:            logger,
		CORSOrigin:        cfg.CORSOrigin,
		ExposeErrorDetail: cfg.IsDevelopment(),
		HealthCheck:       pool.Ping,
	}, userHandler, jwtSvc, userRepo)

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

	logger.Info("starting accounts server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
