package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT" validate:"required"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Object storage (rehosted assets)
	StorageEndpoint  string `mapstructure:"STORAGE_ENDPOINT" validate:"required"`
	StorageAccessKey string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageUseSSL    bool   `mapstructure:"STORAGE_USE_SSL"`
	StorageBucket    string `mapstructure:"STORAGE_BUCKET"`
	// StoragePublicBaseURL is the CDN-facing prefix of rehosted assets. Also
	// the provenance signal for the "already hosted" upload short-circuit.
	StoragePublicBaseURL string `mapstructure:"STORAGE_PUBLIC_BASE_URL" validate:"required,url"`

	// Scraping service (metadata extraction capability)
	ScrapeBaseURL  string `mapstructure:"SCRAPE_BASE_URL"`
	ScrapeAPIToken string `mapstructure:"SCRAPE_API_TOKEN"`

	// Speech-to-text
	WhisperCmd              string  `mapstructure:"WHISPER_CMD"`
	WhisperModel            string  `mapstructure:"WHISPER_MODEL"`
	WhisperDevice           string  `mapstructure:"WHISPER_DEVICE"`
	WhisperLanguage         string  `mapstructure:"WHISPER_LANGUAGE"`
	WhisperScratchDir       string  `mapstructure:"WHISPER_SCRATCH_DIR"`
	TranscribeRatePerMinute float64 `mapstructure:"TRANSCRIBE_RATE_PER_MINUTE"`

	// Metrics refresher
	MetricsConcurrency int `mapstructure:"METRICS_CONCURRENCY"`

	// Sessions
	SessionSecret string `mapstructure:"SESSION_SECRET"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag != "" {
			viper.BindEnv(tag)
		}
	}
	slog.Info("Environment variables bound", "config", c)
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("STORAGE_BUCKET", "media")
	viper.SetDefault("WHISPER_CMD", "whisper")
	viper.SetDefault("WHISPER_MODEL", "small")
	viper.SetDefault("WHISPER_DEVICE", "cpu")
	viper.SetDefault("TRANSCRIBE_RATE_PER_MINUTE", 0.006)
	viper.SetDefault("METRICS_CONCURRENCY", 8)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
