package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	// BackendURL selects the remote API; empty runs the simulated backend.
	BackendURL     string
	BackendLatency time.Duration
	BackendTimeout time.Duration
	FixturesFile   string

	// SessionSecret signs session tokens. Required unless DevMode is set.
	SessionSecret   string
	SessionTTL      time.Duration
	LoginRatePerMin int

	// TrustedProxies lists the peers (IPs or CIDRs) allowed to set X-Forwarded-For.
	TrustedProxies []netip.Prefix
	DevMode        bool

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		KafkaTopic:      "carpool-events",
		BackendLatency:  time.Second,
		BackendTimeout:  5 * time.Second,
		SessionTTL:      7 * 24 * time.Hour,
		LoginRatePerMin: 10,
		LogLevel:        "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setStringFromEnv(&cfg.BackendURL, "BACKEND_URL")
	setDurationFromEnv(&cfg.BackendLatency, "BACKEND_LATENCY", &errs)
	setDurationFromEnv(&cfg.BackendTimeout, "BACKEND_TIMEOUT", &errs)
	setStringFromEnv(&cfg.FixturesFile, "FIXTURES_FILE")

	cfg.DevMode = strings.EqualFold(os.Getenv("DEV_MODE"), "true")
	setStringFromEnv(&cfg.SessionSecret, "SESSION_SECRET")
	if cfg.SessionSecret == "" && cfg.DevMode {
		cfg.SessionSecret = devSessionSecret
	}
	setDurationFromEnv(&cfg.SessionTTL, "SESSION_TTL", &errs)
	setIntFromEnv(&cfg.LoginRatePerMin, "LOGIN_RATE_PER_MIN", &errs)
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		for _, p := range splitAndTrim(v) {
			prefix, err := parsePrefix(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", p, err))
				continue
			}
			cfg.TrustedProxies = append(cfg.TrustedProxies, prefix)
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.BackendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("BACKEND_TIMEOUT must be > 0"))
	}
	if cfg.BackendLatency < 0 {
		errs = append(errs, fmt.Errorf("BACKEND_LATENCY must be >= 0"))
	}
	if cfg.LoginRatePerMin <= 0 {
		errs = append(errs, fmt.Errorf("LOGIN_RATE_PER_MIN must be > 0"))
	}
	switch {
	case cfg.SessionSecret == "":
		errs = append(errs, fmt.Errorf("SESSION_SECRET is required (set DEV_MODE=true for a local default)"))
	case len(cfg.SessionSecret) < 16:
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least 16 bytes"))
	}

	return cfg, errors.Join(errs...)
}

// ConsumerConfig configures the event projector.
type ConsumerConfig struct {
	MetricsAddr  string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string
	PGDSN        string
	LogLevel     string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := ConsumerConfig{
		MetricsAddr:  ":2112",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "carpool-events",
		KafkaGroup:   "carpool-projector",
		LogLevel:     "info",
	}
	var errs []error
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	cfg.PGDSN = os.Getenv("PG_DSN")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if cfg.PGDSN == "" {
		errs = append(errs, fmt.Errorf("PG_DSN is required"))
	}
	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must list at least one broker"))
	}
	return cfg, errors.Join(errs...)
}

// devSessionSecret is only used when DEV_MODE=true and no secret is set.
const devSessionSecret = "dev-secret-change-me"

// parsePrefix accepts a CIDR or a bare address.
func parsePrefix(v string) (netip.Prefix, error) {
	if strings.Contains(v, "/") {
		return netip.ParsePrefix(v)
	}
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
