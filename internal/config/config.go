// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds the full application configuration.
type Config struct {
	HTTPAddr      string        `env:"HTTP_ADDR"           envDefault:":8080"`
	MongoURI      string        `env:"MONGO_URI"           envDefault:"mongodb://localhost:27017"`
	MongoDatabase string        `env:"MONGO_DATABASE"      envDefault:"noteflow"`
	UploadDir     string        `env:"UPLOAD_DIR"          envDefault:"uploads"`
	ReapInterval  time.Duration `env:"TOKEN_REAP_INTERVAL" envDefault:"1h"`

	// Fixed-window rate limit applied to the credential endpoints.
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT"        envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_LIMIT_WINDOW" envDefault:"1m"`

	Token TokenConfig
}

// TokenConfig holds the parameters of issued credentials and one-time codes.
type TokenConfig struct {
	Issuer                string        `env:"TOKEN_ISSUER"   envDefault:"noteflow-api"`
	Audience              string        `env:"TOKEN_AUDIENCE" envDefault:"noteflow-api"`
	PrivateKeyFile        string        `env:"TOKEN_PRIVATE_KEY_FILE"`
	AccessTokenExpiresIn  time.Duration `env:"ACCESS_TOKEN_EXPIRES_IN"      envDefault:"24h"`
	ResetOTPExpiresIn     time.Duration `env:"RESET_OTP_EXPIRES_IN"         envDefault:"10m"`
	VerificationExpiresIn time.Duration `env:"VERIFICATION_CODE_EXPIRES_IN" envDefault:"24h"`
}

// NewConfig creates a Config instance from environment variables.
func NewConfig(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate configuration")
	}

	return &cfg
}

// validate checks if the configuration is usable.
func (c *Config) validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}
	if c.Token.PrivateKeyFile == "" {
		return fmt.Errorf("missing TOKEN_PRIVATE_KEY_FILE environment variable")
	}
	if c.Token.AccessTokenExpiresIn <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRES_IN must be positive")
	}
	if c.Token.ResetOTPExpiresIn <= 0 {
		return fmt.Errorf("RESET_OTP_EXPIRES_IN must be positive")
	}

	return nil
}
