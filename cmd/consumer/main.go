package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/example/carpool/internal/config"
	"github.com/example/carpool/internal/events"
	"github.com/example/carpool/internal/logging"
	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/storage"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projector_messages_consumed_total",
		Help: "Total carpool event messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projector_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	storeWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projector_store_writes_total",
		Help: "Total successful store writes",
	})
	storeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projector_store_errors_total",
		Help: "Total store errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, storeWrites, storeErrors)
}

var errUnknownEvent = errors.New("unknown event")

func main() {
	cfg, err := config.LoadConsumerConfig()
	logger := logging.NewLogger("carpool-projector", cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ps, err := storage.NewPostgresStore(cfg.PGDSN)
	if err != nil {
		logger.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}

	// start metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := ps.Ping(r.Context()); err != nil {
				http.Error(w, "postgres not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = ps.Close()
	}()

	logger.Info("projector consuming", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down projector")
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff.String())
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		// reset backoff on success
		backoff = time.Second

		msgsConsumed.Inc()

		var e events.Envelope
		if err := json.Unmarshal(m.Value, &e); err != nil {
			msgsInvalid.Inc()
			logger.Warn("invalid message", "error", err, "offset", m.Offset)
			continue
		}

		if err := projectWithRetry(ctx, ps, e, 3, 200*time.Millisecond); err != nil {
			if errors.Is(err, errUnknownEvent) {
				msgsInvalid.Inc()
			} else {
				storeErrors.Inc()
			}
			logger.Error("projection failed", "type", e.Type, "key", string(m.Key), "error", err)
			continue
		}
		storeWrites.Inc()
	}
}

// Projector is the subset of the store the projector writes to.
type Projector interface {
	SaveBooking(ctx context.Context, b *models.Booking) error
	SaveRide(ctx context.Context, r *models.Ride) error
}

// projectWithRetry writes the event's payload to p, retrying store errors
// with doubling delay. Events without a known payload are not retried.
func projectWithRetry(ctx context.Context, p Projector, e events.Envelope, attempts int, delay time.Duration) error {
	var write func() error
	switch {
	case e.Type == events.TypeBookingConfirmed && e.Booking != nil:
		write = func() error { return p.SaveBooking(ctx, e.Booking) }
	case e.Type == events.TypeRidePublished && e.Ride != nil:
		write = func() error { return p.SaveRide(ctx, e.Ride) }
	default:
		return fmt.Errorf("%w: %q", errUnknownEvent, e.Type)
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = write(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
