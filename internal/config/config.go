package config // package config loads application configuration from environment variables

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultBrokerHost is used when TAXABOOKING_BROKER_HOST is unset or empty.
const DefaultBrokerHost = "localhost"

// Config holds the runtime configuration shared by the booking and handler
// services. Each field maps to one environment variable.
type Config struct {
	Env     string `envconfig:"APP_ENV" default:"dev"`   // application environment (dev/test/prod)
	Port    string `envconfig:"APP_PORT"`                // HTTP port; falls back to the service default
	Version string `envconfig:"SERVICE_VERSION" default:"dev"`

	BrokerHost string `envconfig:"TAXABOOKING_BROKER_HOST"` // broker host name or a full amqp:// URL
	BrokerPort int    `envconfig:"TAXABOOKING_BROKER_PORT" default:"5672"`
	BrokerUser string `envconfig:"TAXABOOKING_BROKER_USER" default:"guest"`
	BrokerPass string `envconfig:"TAXABOOKING_BROKER_PASS" default:"guest"`

	// PublishConfirm makes the gateway wait for a broker confirmation of
	// each publish, bounded by ConfirmTimeout.
	PublishConfirm bool          `envconfig:"BOOKING_PUBLISH_CONFIRM" default:"false"`
	ConfirmTimeout time.Duration `envconfig:"BOOKING_CONFIRM_TIMEOUT" default:"5s"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"1"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file and then the process environment.
// defaultPort is used when APP_PORT is empty so both services can run side
// by side with no configuration.
func Load(defaultPort string) (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if c.Port == "" {
		c.Port = defaultPort
	}
	if strings.TrimSpace(c.BrokerHost) == "" {
		c.BrokerHost = DefaultBrokerHost
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 5 * time.Second
	}
	if c.WorkerConcurrency < 1 {
		c.WorkerConcurrency = 1
	}
	return c, nil
}
