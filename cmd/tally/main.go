package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tally/internal/amqp"
	"tally/internal/auth"
	"tally/internal/cli"
	"tally/internal/config"
	apphttp "tally/internal/http"
	"tally/internal/log"
	"tally/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("tally")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateServer)

	backend := cli.InitBackend(context.Background(), logger, cfg)
	defer backend.Close()
	logger.Info("Initialized storage backend", "backend", cfg.DataBackend)

	ready := map[string]apphttp.ReadinessCheck{
		"backend": backend.Ping,
	}

	var (
		sessions       auth.SessionStore
		memorySessions *auth.MemoryStore
	)
	switch cfg.SessionStore {
	case "memcached":
		mc := auth.NewMemcacheStore(cfg.MemcachedHosts...)
		if err := mc.Ping(); err != nil {
			logger.Warn("Memcached is not reachable yet", "hosts", cfg.MemcachedHosts, log.FieldError, err)
		}
		ready["sessions"] = func(context.Context) error { return mc.Ping() }
		sessions = mc
		logger.Info("Using memcached session store", "hosts", cfg.MemcachedHosts)
	default:
		memorySessions = auth.NewMemoryStore(cfg.MaxWorkspaces*4, cfg.SessionTTL)
		sessions = memorySessions
		logger.Info("Using in-memory session store")
	}

	manager := auth.NewManager(auth.ManagerConfig{
		ClientID:     cfg.GoogleOAuthClientID,
		ClientSecret: cfg.GoogleOAuthClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		SessionTTL:   cfg.SessionTTL,
	}, sessions, logger)

	// Record events are optional; writes still succeed without a broker
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, record events disabled", log.FieldError, err)
		} else {
			amqpClient = client
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	records := services.NewRecordService(backend, publisher, logger)
	profiles := services.NewProfileService(backend, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		Auth:           manager,
		Records:        records,
		Profiles:       profiles,
		Logger:         logger,
		CurrencySymbol: cfg.CurrencySymbol,
		RateLimitRPM:   cfg.RateLimitRPM,
		MaxWorkspaces:  cfg.MaxWorkspaces,
		WorkspaceTTL:   cfg.SessionTTL,
		Ready:          ready,
	})
	if memorySessions != nil {
		srv.RegisterCache("sessions", memorySessions.Cleaner())
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting tally server", "port", cfg.Port, "backend", cfg.DataBackend, "sessions", cfg.SessionStore)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
