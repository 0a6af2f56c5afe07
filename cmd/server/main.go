package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/example/carpool/internal/auth"
	"github.com/example/carpool/internal/backend"
	"github.com/example/carpool/internal/booking"
	"github.com/example/carpool/internal/config"
	"github.com/example/carpool/internal/events"
	httpapi "github.com/example/carpool/internal/http"
	"github.com/example/carpool/internal/logging"
	"github.com/example/carpool/internal/notify"
	"github.com/example/carpool/internal/rides"
	"github.com/example/carpool/internal/storage"
)

type store interface {
	storage.BookingStore
	storage.RideStore
}

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger("carpool-api", cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.DevMode {
		logger.Warn("DEV_MODE enabled: do not run this configuration in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var be backend.Backend
	if cfg.BackendURL != "" {
		be = backend.NewHTTPClient(cfg.BackendURL)
		logger.Info("using remote backend", "url", cfg.BackendURL)
	} else {
		fx, err := backend.LoadFixtures(cfg.FixturesFile)
		if err != nil {
			logger.Error("load fixtures", "error", err)
			os.Exit(1)
		}
		be = backend.NewSimulated(fx, cfg.BackendLatency)
		logger.Info("using simulated backend", "latency", cfg.BackendLatency.String())
	}

	var checks []func(context.Context) error

	var kv storage.KV = storage.NewMemoryKV()
	if cfg.RedisAddr != "" {
		rkv := storage.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		defer rkv.Close()
		kv = rkv
		checks = append(checks, rkv.Ping)
	}

	var st store = storage.NewMemoryStore()
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable, falling back to memory store", "error", err)
		} else {
			defer ps.Close()
			if cfg.RunMigrations {
				migrate(ctx, ps, logger)
			}
			st = ps
			checks = append(checks, ps.Ping)
		}
	}

	var pub interface {
		booking.Publisher
		rides.Publisher
	} = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
	}

	srv := httpapi.NewServer(httpapi.Options{
		Backend:   be,
		SessionKV: kv,
		Bookings:  booking.NewService(be, st, pub, cfg.BackendTimeout, logger),
		Rides: &rides.Service{
			Catalog:  be,
			Rides:    st,
			Bookings: st,
			Events:   pub,
			Timeout:  cfg.BackendTimeout,
			Logger:   logger,
		},
		Tokens:          auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL),
		Notifier:        notify.NewRegistry(),
		Logger:          logger,
		BackendTimeout:  cfg.BackendTimeout,
		LoginRatePerMin: cfg.LoginRatePerMin,
		TrustedProxies:  cfg.TrustedProxies,
		Ready: func(ctx context.Context) error {
			for _, c := range checks {
				if err := c(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	defer srv.Close()

	hs := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		logger.Info("carpool listening", "addr", cfg.HTTPAddr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

// migrate applies migrations/001_create_tables.sql when it is present.
func migrate(ctx context.Context, ps *storage.PostgresStore, logger *slog.Logger) {
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_tables.sql"))
	if err != nil {
		logger.Warn("migration file not readable", "error", err)
		return
	}
	if err := ps.Migrate(ctx, string(b)); err != nil {
		logger.Error("migration exec error", "error", err)
		return
	}
	logger.Info("migration applied", "file", "001_create_tables.sql")
}
