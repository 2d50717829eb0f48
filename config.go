package verdandi

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Configuration defaults.
const (
	DefaultRefreshInterval  = 60 * time.Minute
	DefaultTrackingInterval = time.Second
	DefaultSessionDuration  = 30 * time.Minute
	DefaultNetworkTimeout   = 10 * time.Second

	minRefreshInterval  = time.Minute
	minTrackingInterval = 100 * time.Millisecond
	minSessionDuration  = time.Minute
)

// Config holds the client settings. The zero value is usable: Validate
// fills every unset field with its default. Environment variables with the
// VERDANDI prefix override fields when loaded through LoadConfig.
type Config struct {
	// Environment selects which environment's feature flags are served.
	// Empty means the default environment.
	Environment string `envconfig:"ENVIRONMENT"`

	// ClientID and ClientSecret authenticate calls to the automation API.
	// Both empty means unauthenticated operation.
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`

	// RefreshInterval is the configuration polling period.
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL"`

	// TrackingInterval is the delay between tracking flushes.
	TrackingInterval time.Duration `envconfig:"TRACKING_INTERVAL"`

	// SessionDuration is how long an inactive visitor is kept in memory.
	SessionDuration time.Duration `envconfig:"SESSION_DURATION"`

	// NetworkTimeout bounds every single network call.
	NetworkTimeout time.Duration `envconfig:"NETWORK_TIMEOUT"`

	LogLevel  string `envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" validate:"oneof=json text"`

	// Logger overrides the logger built from LogLevel/LogFormat. Useful
	// when the embedding application already owns a *slog.Logger.
	Logger *slog.Logger `ignored:"true"`
}

// LoadConfig reads the configuration from VERDANDI_* environment variables
// and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("VERDANDI", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills defaults and checks the configuration. It is called by
// NewClient, calling it twice is harmless.
func (c *Config) Validate() error {
	c.setDefaults()

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.RefreshInterval < minRefreshInterval {
		return fmt.Errorf("refresh interval must be at least %s, got %s", minRefreshInterval, c.RefreshInterval)
	}
	if c.TrackingInterval < minTrackingInterval {
		return fmt.Errorf("tracking interval must be at least %s, got %s", minTrackingInterval, c.TrackingInterval)
	}
	if c.SessionDuration < minSessionDuration {
		return fmt.Errorf("session duration must be at least %s, got %s", minSessionDuration, c.SessionDuration)
	}
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return fmt.Errorf("client ID and client secret must be provided together")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.TrackingInterval == 0 {
		c.TrackingInterval = DefaultTrackingInterval
	}
	if c.SessionDuration == 0 {
		c.SessionDuration = DefaultSessionDuration
	}
	if c.NetworkTimeout == 0 {
		c.NetworkTimeout = DefaultNetworkTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}
