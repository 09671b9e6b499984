package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tutorportal/internal/api"
	"tutorportal/internal/apiclient"
	"tutorportal/internal/config"
	"tutorportal/internal/events"
	"tutorportal/internal/metrics"
	"tutorportal/internal/session"
	"tutorportal/internal/views"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("PORTAL_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = configureLogger(logger, cfg)

	if cfg.API.BaseURL == "" {
		logger.Fatal().Msg("set api.base_url in config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	var (
		backend  session.Backend
		database *session.DB
	)
	switch cfg.Session.Backend {
	case "redis":
		if rdb == nil {
			logger.Fatal().Msg("session.backend is redis but redis.address is empty")
		}
		backend = session.NewRedisBackend(rdb, cfg.SessionIdle())
	case "memory":
		backend = session.NewMemoryBackend()
	default:
		database, err = session.NewDB(cfg.Database.Path)
		if err != nil {
			logger.Fatal().Err(err).Msg("open session db error")
		}
		defer database.Close()
		backend = database
	}

	client := apiclient.NewClient(cfg.API.BaseURL, cfg.APITimeout(), &logger)
	client.UseRateLimit(cfg.API.RatePerSecond, cfg.API.Burst)
	if rdb != nil && cfg.CacheTTL() > 0 {
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	bus := events.NewEventBus()
	bus.OnError(func(e events.Event, err error) {
		logger.Error().Err(err).Str("type", e.Type).Str("session", e.SessionID).Msg("event handler failed")
	})
	bus.Subscribe(events.BookingCreated, func(e events.Event) error {
		var p views.BookingCreatedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		logger.Info().Str("session", e.SessionID).Int64("appointment_id", p.AppointmentID).
			Int64("teacher_id", p.TeacherID).Str("date", p.Date).Str("start", p.StartTime).Msg("booking created")
		return nil
	})

	rules := views.NewRules(cfg.Booking)
	if err := config.WatchBookingRules(ctx, cfg.Path(), 30*time.Second, func(updated config.BookingRules) {
		rules.Set(updated)
		logger.Info().Time("reloaded_at", time.Now()).Msg("booking rules reloaded")
	}); err != nil {
		logger.Error().Err(err).Msg("booking rules watch failed")
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, client, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if database != nil && cfg.Backup.Enabled {
		backupService := session.NewBackupService(database, cfg.Backup, cfg.SessionIdle(), &logger)
		go backupService.Start(ctx)
	}

	server := api.NewHTTPServer(api.Options{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		Sessions:          session.NewManager(backend),
		Client:            client,
		Bus:               bus,
		Rules:             rules,
		PreviewMaxBytes:   cfg.Session.PreviewMaxBytes,
		IdleTimeout:       cfg.SessionIdle(),
		Logger:            &logger,
	})

	logger.Info().Str("session_backend", cfg.Session.Backend).Msg("tutor portal started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("tutor portal stopped")
}

func configureLogger(logger zerolog.Logger, cfg *config.Config) zerolog.Logger {
	if cfg.Log.Format == "json" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warn().Str("level", cfg.Log.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func startHealthServer(ctx context.Context, port int, database *session.DB, rdb *redis.Client, client *apiclient.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if database != nil {
			if err := database.PingContext(ctxPing); err != nil {
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
		if err := client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "school api not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
