package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stayease/internal/api"
	"stayease/internal/checkout"
	"stayease/internal/config"
	"stayease/internal/events"
	"stayease/internal/facade"
	"stayease/internal/metrics"
	"stayease/internal/persist"
	"stayease/internal/store"
)

func main() {
	if err := run(); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Error().Err(err).Msg("storefront exited")
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always runs.
func run() error {
	cfg, err := config.Load(os.Getenv("STOREFRONT_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		storage persist.SessionStorage
		db      *persist.SQLite
	)
	switch cfg.Storage.Driver {
	case "memory":
		storage = persist.NewMemory()
	default:
		db, err = persist.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open session db: %w", err)
		}
		defer db.Close()
		storage = db

		if cfg.Storage.Backup.Enabled {
			go persist.NewBackupService(db, cfg.Storage.Backup, &logger).Start(ctx)
		}
	}

	backendTransport := api.NewTransport(api.Options{
		Name:          "backend",
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.BackendTimeout(),
		RatePerSecond: cfg.Backend.RatePerSecond,
		Burst:         cfg.Backend.Burst,
		Logger:        &logger,
	})
	paymentTransport := api.NewTransport(api.Options{
		Name:    "payment",
		BaseURL: cfg.Payment.BaseURL,
		Timeout: cfg.PaymentTimeout(),
		Logger:  &logger,
	})
	backend := api.NewBackend(backendTransport)
	payments := api.NewPayments(paymentTransport)

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		backend.UseRedisCache(rdb, cfg.CacheTTL())
	}

	bus := events.NewEventBus()
	bus.OnError(func(event events.Event, err error) {
		logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
	})
	if cfg.Events.AMQPURL != "" {
		events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue, nil, logger).Attach(bus)
	}

	opts := store.Options{OverlapPolicy: cfg.Stores.OverlapPolicy, Bus: bus, Logger: &logger}
	session := store.NewSessionStore(backend, storage, opts)
	backendTransport.SetTokenSource(session)
	paymentTransport.SetTokenSource(session)
	if restored := session.Restore(ctx); restored.IsAuthenticated() {
		logger.Info().Int64("user_id", restored.UserID).Str("role", string(restored.Role)).Msg("session restored")
	}

	checkouts := checkout.NewRegistry(checkout.Deps{
		Payments: payments,
		Bookings: backend,
		Bus:      bus,
		Logger:   &logger,
		Settings: checkout.Settings{
			Currency:        cfg.Payment.Currency,
			MerchantName:    cfg.Payment.MerchantName,
			ThemeColor:      cfg.Payment.ThemeColor,
			AllowZeroNights: cfg.Checkout.AllowZeroNights,
			IdempotencyKeys: cfg.UseIdempotencyKeys(),
		},
	}, cfg.CheckoutIdleTimeout())
	go cleanupCheckouts(ctx, checkouts, &logger)

	server := facade.New(facade.Deps{
		Session:   session,
		Catalog:   store.NewCatalogStore(backend, opts),
		Bookings:  store.NewBookingStore(backend, opts),
		Checkouts: checkouts,
		Payments:  payments,
		Logger:    &logger,
	})

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("facade shutdown error")
		}
	}()

	if cfg.LastResolvedWins() {
		logger.Warn().Msg("stores use last_resolved; a slow stale response can overwrite a newer one")
	}
	logger.Info().Str("policy", cfg.Stores.OverlapPolicy).Msg("storefront started")
	if err := server.Start(cfg.Facade.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("facade server: %w", err)
	}
	logger.Info().Msg("storefront stopped")
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Log.Format == "json" {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func cleanupCheckouts(ctx context.Context, checkouts *checkout.Registry, logger *zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := checkouts.Cleanup(); n > 0 {
				logger.Debug().Int("removed", n).Msg("expired checkouts dropped")
			}
		}
	}
}

func startHealthServer(ctx context.Context, port int, db *persist.SQLite, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if db != nil {
			if err := db.Ping(ctxPing); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, fmt.Sprintf(":%d", port), mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, fmt.Sprintf(":%d", port), mux, "metrics", logger)
}

func serve(ctx context.Context, addr string, h http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
