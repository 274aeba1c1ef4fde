// Package config loads runtime configuration from environment variables
// using github.com/caarlos0/env. A local .env file is honored when present
// so development shells don't need to export anything.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"timelens/internal/wanx"
)

// R2Config holds the S3-compatible storage settings for publishing videos
// to a Cloudflare R2 bucket.
type R2Config struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"timelens-videos"`
	// PublicBaseURL, when set, rewrites metadata records with public URLs
	// after an upload (e.g. https://pub-xxxx.r2.dev).
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	UseSSL        bool   `env:"USE_SSL" envDefault:"true"`
}

type Config struct {
	// APIKey authenticates against DashScope. Required for any command
	// that submits generation work; its absence is the one fatal startup
	// condition.
	APIKey  string `env:"DASHSCOPE_API_KEY"`
	BaseURL string `env:"DASHSCOPE_BASE_URL"`

	PollIntervalSeconds int `env:"WANX_POLL_INTERVAL_SECONDS" envDefault:"15"`
	MaxPollAttempts     int `env:"WANX_MAX_POLL_ATTEMPTS" envDefault:"40"`

	SpotsPath    string `env:"TIMELENS_SPOTS_PATH" envDefault:"src/lib/data/spots.json"`
	MetadataPath string `env:"TIMELENS_METADATA_PATH" envDefault:"src/lib/data/generated-videos.json"`
	VideosDir    string `env:"TIMELENS_VIDEOS_DIR" envDefault:"static/videos"`

	R2 R2Config `envPrefix:"R2_"`
}

// Load reads configuration from the environment, after loading a .env file
// when one exists (missing files are fine).
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *Config) Sanitize() {
	if c.BaseURL == "" {
		c.BaseURL = wanx.DefaultBaseURL
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = int(wanx.DefaultPollInterval / time.Second)
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = wanx.DefaultMaxPollAttempts
	}
	if c.SpotsPath == "" {
		c.SpotsPath = "src/lib/data/spots.json"
	}
	if c.MetadataPath == "" {
		c.MetadataPath = "src/lib/data/generated-videos.json"
	}
	if c.VideosDir == "" {
		c.VideosDir = "static/videos"
	}
	if c.R2.Bucket == "" {
		c.R2.Bucket = "timelens-videos"
	}
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RequireAPIKey returns the fatal configuration error for generation
// commands run without a credential.
func (c Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return errors.New("DASHSCOPE_API_KEY environment variable not set (export DASHSCOPE_API_KEY=your-api-key)")
	}
	return nil
}

// RequireR2 validates the settings the upload command needs.
func (c Config) RequireR2() error {
	if c.R2.Endpoint == "" || c.R2.AccessKey == "" || c.R2.SecretKey == "" {
		return errors.New("R2 upload requires R2_ENDPOINT, R2_ACCESS_KEY and R2_SECRET_KEY")
	}
	return nil
}
