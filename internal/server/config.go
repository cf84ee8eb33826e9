package server

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds server configuration
type Config struct {
	Address         string        `envconfig:"ADDRESS" default:":8080"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	Debug           bool          `envconfig:"DEBUG" default:"false"`
	TrustedCertsDir string        `envconfig:"TRUSTED_CERTS_DIR"`
}

// LoadConfigFromEnv reads the configuration from FACTURX_* environment
// variables
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("FACTURX", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
