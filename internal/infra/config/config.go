package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	QuoteTTL           time.Duration
	SearchConcurrency  int
	PMSBaseURL         string
	PMSTokenURL        string
	PMSClientID        string
	PMSClientSecret    string
	PMSTimeout         time.Duration
	PaymentsURL        string
}

// Load parses configuration from the current environment. Mongo and Kafka
// are optional: without MONGO_URI the service runs on in-memory storage,
// without KAFKA_BROKERS the outbox worker stays off.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "staymarket"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		PMSBaseURL:       getEnv("PMS_BASE_URL", ""),
		PMSTokenURL:      getEnv("PMS_TOKEN_URL", ""),
		PMSClientID:      os.Getenv("PMS_CLIENT_ID"),
		PMSClientSecret:  os.Getenv("PMS_CLIENT_SECRET"),
		PaymentsURL:      getEnv("PAYMENTS_URL", ""),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	quoteTTL, err := parseDurationEnv("QUOTE_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.QuoteTTL = quoteTTL

	pmsTimeout, err := parseDurationEnv("PMS_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.PMSTimeout = pmsTimeout

	concurrency, err := parseIntEnv("SEARCH_CONCURRENCY", 8)
	if err != nil {
		return Config{}, err
	}
	if concurrency < 1 {
		return Config{}, fmt.Errorf("SEARCH_CONCURRENCY must be positive")
	}
	cfg.SearchConcurrency = concurrency

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.PMSBaseURL != "" && cfg.PMSTokenURL == "" {
		return Config{}, fmt.Errorf("PMS_TOKEN_URL is required when PMS_BASE_URL is set")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}
