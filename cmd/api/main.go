package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/internal/auth"
	"backoffice/internal/httpapi"
	"backoffice/internal/journal"
	"backoffice/internal/lifecycle"
	"backoffice/internal/lock"
	"backoffice/internal/notify"
	"backoffice/internal/payment"
	"backoffice/pkg/config"
	"backoffice/pkg/db"
	"backoffice/pkg/remote"
)

func main() {
	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.AppEnv != "prod" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	credentials := auth.Expiring{Source: auth.Chain{
		auth.Static(cfg.Remote.Token),
		auth.EnvKeys(cfg.Remote.TokenFallbacks),
		auth.File(cfg.Remote.TokenFile),
	}}
	if _, err := auth.Require(ctx, credentials); err != nil {
		logger.Warn("no remote store credential; transitions will be refused", "err", err)
	}
	client := remote.New(cfg.Remote.BaseURL,
		remote.WithCredentials(credentials),
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithRateLimit(cfg.Remote.RPS, cfg.Remote.Burst),
	)

	var j lifecycle.Journal
	if cfg.JournalEnabled() {
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			log.Fatalf("db open: %v", err)
		}
		defer conn.Close()

		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		j = journal.NewRepository(conn)
	}

	var guard lifecycle.Guard = lifecycle.NewLocalGuard()
	if cfg.Redis.Addr != "" {
		rdb := lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		guard = lock.NewRedisGuard(rdb, lock.TTLFor(cfg.Remote.Timeout))
	}

	var notifier lifecycle.Notifier
	if cfg.RabbitURL != "" {
		pub, err := notify.NewPublisher(cfg.RabbitURL, logger)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer pub.Close()
		notifier = pub
	}

	newManager := func(kind lifecycle.Kind) *lifecycle.Manager {
		m, err := lifecycle.NewManager(lifecycle.Config{
			Kind:     kind,
			Store:    client,
			Guard:    guard,
			Journal:  j,
			Notifier: notifier,
			Logger:   logger,
			Timeout:  cfg.Remote.Timeout,
		})
		if err != nil {
			log.Fatalf("%s manager: %v", kind, err)
		}
		return m
	}
	bookings := newManager(lifecycle.KindBooking)
	tasks := newManager(lifecycle.KindTask)

	go bookings.Poll(ctx, cfg.PollInterval)
	go tasks.Poll(ctx, cfg.PollInterval)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:        cfg,
		Bookings:   bookings,
		Tasks:      tasks,
		Reconciler: payment.Reconciler{Store: client, Timeout: cfg.Remote.Timeout, Logger: logger},
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "remote", cfg.Remote.BaseURL, "journal", j != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
}
