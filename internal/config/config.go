package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenPhone webhook signing. Empty secret disables verification.
	OpenPhoneSigningSecret string

	// CRM (HubSpot-compatible) API access.
	CRMBaseURL string
	CRMToken   string
	CRMTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Storm history provider: "simulated" or "noaa".
	StormProvider   string
	StormAPIBaseURL string
	StormAPIToken   string
	StormTimeout    time.Duration
	StormLookback   time.Duration

	// Kafka-backed office notifications. Disabled when no brokers are set.
	KafkaBrokers      []string
	NotifyTopic       string
	NotifyDLQTopic    string
	NotifyGroupID     string
	NotifyEnabled     bool
	NotifyMaxAttempts int

	// SMS / email delivery for office alerts.
	SMSAPIKey     string
	SMSFromNumber string
	EmailAPIKey   string
	EmailFrom     string
	AlertPhone    string
	AlertEmail    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	crmTimeout, err := parseDurationEnv("CRM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDurationEnv("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	stormTimeout, err := parseDurationEnv("STORM_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	stormLookback, err := parseDurationEnv("STORM_LOOKBACK", "87600h") // 10 years
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	notifyEnabled := len(brokers) > 0
	if v := os.Getenv("NOTIFY_ENABLED"); v != "" {
		notifyEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OpenPhoneSigningSecret: os.Getenv("OPENPHONE_SIGNING_SECRET"),

		CRMBaseURL: envOrDefault("CRM_BASE_URL", "https://api.hubapi.com"),
		CRMToken:   os.Getenv("CRM_TOKEN"),
		CRMTimeout: crmTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveIntEnv("MAPBOX_CACHE_SIZE", 1000),

		StormProvider:   envOrDefault("STORM_PROVIDER", "simulated"),
		StormAPIBaseURL: envOrDefault("STORM_API_BASE_URL", "https://www.ncei.noaa.gov/access/services/search/v1"),
		StormAPIToken:   os.Getenv("STORM_API_TOKEN"),
		StormTimeout:    stormTimeout,
		StormLookback:   stormLookback,

		KafkaBrokers:      brokers,
		NotifyTopic:       envOrDefault("NOTIFY_TOPIC", "office-notifications"),
		NotifyDLQTopic:    envOrDefault("NOTIFY_DLQ_TOPIC", "office-notifications-dlq"),
		NotifyGroupID:     envOrDefault("NOTIFY_GROUP_ID", "lead-intake-notifier"),
		NotifyEnabled:     notifyEnabled,
		NotifyMaxAttempts: parsePositiveIntEnv("NOTIFY_MAX_ATTEMPTS", 3),

		SMSAPIKey:     os.Getenv("SMS_API_KEY"),
		SMSFromNumber: os.Getenv("SMS_FROM_NUMBER"),
		EmailAPIKey:   os.Getenv("EMAIL_API_KEY"),
		EmailFrom:     envOrDefault("EMAIL_FROM", "leads@ridgelineexteriors.com"),
		AlertPhone:    os.Getenv("ALERT_PHONE"),
		AlertEmail:    os.Getenv("ALERT_EMAIL"),
	}

	switch cfg.StormProvider {
	case "simulated", "noaa":
	default:
		return nil, errors.New(`STORM_PROVIDER must be "simulated" or "noaa"`)
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.NotifyEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("NOTIFY_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveIntEnv(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
