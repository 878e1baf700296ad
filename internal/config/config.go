// Package config loads process configuration from the environment, with an
// optional YAML file override for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

// Config holds every runtime setting of the billing engine.
type Config struct {
	Environment string `yaml:"environment"`
	HTTPAddr    string `yaml:"http_addr"`
	ServiceName string `yaml:"service_name"`

	DatabaseDSN string `yaml:"database_dsn"`

	// Payment processor settings.
	StripeAPIKey        string        `yaml:"stripe_api_key"`
	StripeWebhookSecret string        `yaml:"stripe_webhook_secret"`
	ProcessorBaseURL    string        `yaml:"processor_base_url"`
	ProcessorTimeout    time.Duration `yaml:"processor_timeout"`

	// Shared token for the internal API surface. RBAC lives in the gateway.
	InternalAPIToken string `yaml:"internal_api_token"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPProtocol string `yaml:"otlp_protocol"`
}

// Load builds the config from GRIDFARE_* environment variables. When
// GRIDFARE_CONFIG_FILE points at a YAML file, the file is read first and the
// environment overrides it.
func Load() (Config, error) {
	cfg := Config{
		Environment:      "development",
		HTTPAddr:         ":8080",
		ServiceName:      "gridfare",
		DatabaseDSN:      "file::memory:?cache=shared",
		ProcessorBaseURL: "https://api.stripe.com",
		ProcessorTimeout: 10 * time.Second,
		OTLPProtocol:     "http",
	}

	if path := strings.TrimSpace(os.Getenv("GRIDFARE_CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "GRIDFARE_ENVIRONMENT")
	setString(&cfg.HTTPAddr, "GRIDFARE_HTTP_ADDR")
	setString(&cfg.ServiceName, "GRIDFARE_SERVICE_NAME")
	setString(&cfg.DatabaseDSN, "GRIDFARE_DATABASE_DSN")
	setString(&cfg.StripeAPIKey, "GRIDFARE_STRIPE_API_KEY")
	setString(&cfg.StripeWebhookSecret, "GRIDFARE_STRIPE_WEBHOOK_SECRET")
	setString(&cfg.ProcessorBaseURL, "GRIDFARE_PROCESSOR_BASE_URL")
	setString(&cfg.InternalAPIToken, "GRIDFARE_INTERNAL_API_TOKEN")
	setString(&cfg.OTLPEndpoint, "GRIDFARE_OTLP_ENDPOINT")
	setString(&cfg.OTLPProtocol, "GRIDFARE_OTLP_PROTOCOL")

	if raw := strings.TrimSpace(os.Getenv("GRIDFARE_PROCESSOR_TIMEOUT_SECONDS")); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			cfg.ProcessorTimeout = time.Duration(seconds) * time.Second
		}
	}
}

func setString(target *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}
