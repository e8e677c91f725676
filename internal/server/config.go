// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the TalkNow service.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var validate = validator.New()

// RateLimitConfig defines the parameters for per-connection message rate limiting.
// A zero Burst disables limiting, which is the default.
type RateLimitConfig struct {
	Burst          int           `envconfig:"BURST" default:"0" validate:"gte=0"`
	RefillInterval time.Duration `envconfig:"REFILL_INTERVAL" default:"1s" validate:"gte=0"`
}

// Config holds the server configuration settings.
type Config struct {
	Port           string   `envconfig:"SERVER_PORT" default:":5000" validate:"required"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	// MaxMessageSize caps inbound websocket frames in bytes. Zero means no cap.
	MaxMessageSize  int64           `envconfig:"MAX_MESSAGE_SIZE" default:"0" validate:"gte=0"`
	RateLimit       RateLimitConfig `envconfig:"RATE_LIMIT"`
	SendBufferSize  int             `envconfig:"SEND_BUFFER_SIZE" default:"256" validate:"gt=0"`
	MeetingTTL      time.Duration   `envconfig:"MEETING_TTL" default:"0" validate:"gte=0"`
	ShutdownTimeout time.Duration   `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
	LogLevel        string          `envconfig:"LOG_LEVEL" default:"INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() Config {
	return Config{
		Port:           ":5000",
		AllowedOrigins: []string{"*"},
		RateLimit: RateLimitConfig{
			RefillInterval: time.Second,
		},
		SendBufferSize:  256,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "INFO",
	}
}

// LoadConfig reads the configuration from the environment. Variables found in
// envFile are loaded first without overriding the real environment; an empty
// envFile means an optional ".env" in the working directory.
func LoadConfig(envFile string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}

	cfg = sanitizeConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadEnvFile(envFile string) error {
	if envFile == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

func sanitizeConfig(cfg Config) Config {
	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))
	cfg.AllowedOrigins = parseOrigins(cfg.AllowedOrigins)
	return cfg
}

func parseOrigins(origins []string) []string {
	parsed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			parsed = append(parsed, trimmed)
		}
	}
	return parsed
}
