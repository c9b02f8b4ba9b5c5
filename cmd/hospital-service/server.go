package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"qms/hospital-service/internal/auth"
	"qms/hospital-service/internal/calls"
	"qms/hospital-service/internal/config"
	"qms/hospital-service/internal/db"
	"qms/hospital-service/internal/events"
	"qms/hospital-service/internal/httpapi"
	"qms/hospital-service/internal/hub"
	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/reports"
	"qms/hospital-service/internal/store"
	"qms/hospital-service/internal/store/memory"
	"qms/hospital-service/internal/store/postgres"
	"qms/hospital-service/internal/telemetry"
)

const devJWTSecret = "development-only-secret"

func runServer(cfg config.Config) error {
	logger := telemetry.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	shutdownTelemetry, err := telemetry.Setup(context.Background(), telemetry.TracingConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		SampleRatio: cfg.TraceSampleRatio,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("tracing disabled")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn().Msg("JWT_SECRET not set, using development secret")
		secret = devJWTSecret
	}

	st, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	displays := hub.New(logger)
	publisher, closePublisher := newPublisher(cfg, displays, logger)
	defer closePublisher()

	engine := calls.NewEngine(st, calls.Options{
		Location:     loc,
		SystemUserID: cfg.SystemUserID,
		Publisher:    publisher,
		Logger:       logger,
	})
	tokens := auth.NewTokenManager(secret, cfg.TokenTTL())
	handler := httpapi.NewHandler(st, httpapi.Options{
		Engine:       engine,
		Tokens:       tokens,
		Reports:      reports.NewService(st),
		PDF:          reports.PDFRenderer{FontPath: cfg.ReportFontPath},
		Realtime:     httpapi.NewRealtimeHandler(displays, logger),
		SystemUserID: cfg.SystemUserID,
		Logger:       logger,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:   cfg.RateLimitPerMinute,
		IPBurst:       cfg.RateLimitBurst,
		UserPerMinute: cfg.UserRateLimitPerMinute,
		UserBurst:     cfg.UserRateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/", handler.Routes())

	chain := httpapi.AuthMiddleware(tokens, limiter.Middleware(mux))
	chain = httpapi.LoggingMiddleware(logger, chain)
	chain = httpapi.RequestIDMiddleware(chain)
	chain = httpapi.RecoveryMiddleware(logger, chain)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(chain, cfg.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("store", cfg.StoreDriver).Msg("hospital-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
		return err
	}
	return nil
}

// openStore returns the configured store and its release func. The memory store
// is seeded with the system user that owns escalated calls.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		st := memory.New()
		_, err := st.CreateUser(ctx, models.User{
			UserID:       cfg.SystemUserID,
			FullName:     "System",
			Email:        "system@hospital.local",
			PasswordHash: "!",
			RoleID:       models.RoleIDAdministrator,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("seed system user: %w", err)
		}
		return st, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewStore(pool), pool.Close, nil
}

// newPublisher always feeds the display hub and adds Kafka when brokers are configured.
func newPublisher(cfg config.Config, displays *hub.Hub, logger zerolog.Logger) (events.Publisher, func()) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return displays, func() {}
	}
	kafka := events.NewKafkaPublisher(brokers, cfg.KafkaTopic, logger)
	logger.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("publishing call events to kafka")
	return events.Multi{displays, kafka}, func() {
		if err := kafka.Close(); err != nil {
			logger.Warn().Err(err).Msg("close kafka writer")
		}
	}
}
