package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/pscheid92/memepulse/internal/domain"
	apperrors "github.com/pscheid92/memepulse/internal/errors"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Comma-separated subreddit list, processed in order.
	Subreddits string `env:"SUBREDDITS" default:"wallstreetbets,stocks,investing"`

	UpdateInterval time.Duration `env:"UPDATE_INTERVAL" default:"5m"`
	CycleTimeout   time.Duration `env:"CYCLE_TIMEOUT" default:"90s"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" default:"30s"`

	MinPosts             int `env:"MIN_POSTS" default:"5"`
	MinKarma             int `env:"MIN_KARMA" default:"100"`
	EvictionWindowDays   int `env:"EVICTION_WINDOW_DAYS" default:"7"`
	MaxConcurrentFetches int `env:"MAX_CONCURRENT_FETCHES" default:"4"`

	WeightVolume        float64 `env:"WEIGHT_VOLUME" default:"0.40"`
	WeightSentiment     float64 `env:"WEIGHT_SENTIMENT" default:"0.30"`
	WeightMomentum      float64 `env:"WEIGHT_MOMENTUM" default:"0.20"`
	WeightShortInterest float64 `env:"WEIGHT_SHORT_INTEREST" default:"0.10"`

	LikelihoodPrior float64 `env:"LIKELIHOOD_PRIOR" default:"0.5"`

	PostsTTL time.Duration `env:"POSTS_TTL" default:"5m"`
	BarsTTL  time.Duration `env:"BARS_TTL" default:"10m"`
	ShortTTL time.Duration `env:"SHORT_TTL" default:"1h"`

	// Optional integrations.
	RedisURL   string `env:"REDIS_URL" default:""`
	SQLitePath string `env:"SQLITE_PATH" default:"memepulse.db"`
	FixtureDir string `env:"FIXTURE_DIR" default:"fixtures"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SubredditList returns the configured subreddits, trimmed and without blanks.
func (c *Config) SubredditList() []string {
	var out []string
	for _, s := range strings.Split(c.Subreddits, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Weights returns the configured composite blend factors.
func (c *Config) Weights() domain.Weights {
	return domain.Weights{
		Volume:        c.WeightVolume,
		Sentiment:     c.WeightSentiment,
		Momentum:      c.WeightMomentum,
		ShortInterest: c.WeightShortInterest,
	}
}

func validate(cfg *Config) error {
	if len(cfg.SubredditList()) == 0 {
		return apperrors.ValidationError("SUBREDDITS must name at least one subreddit")
	}
	if cfg.UpdateInterval < time.Minute {
		return apperrors.ValidationError("UPDATE_INTERVAL must be at least 1m")
	}
	if cfg.CycleTimeout <= 0 || cfg.FetchTimeout <= 0 {
		return apperrors.ValidationError("CYCLE_TIMEOUT and FETCH_TIMEOUT must be positive")
	}
	if cfg.FetchTimeout > cfg.CycleTimeout {
		return apperrors.ValidationError("FETCH_TIMEOUT must not exceed CYCLE_TIMEOUT")
	}
	if cfg.MinPosts < 1 {
		return apperrors.ValidationError("MIN_POSTS must be at least 1")
	}
	if cfg.MinKarma < 0 {
		return apperrors.ValidationError("MIN_KARMA must not be negative")
	}
	if cfg.EvictionWindowDays < 1 {
		return apperrors.ValidationError("EVICTION_WINDOW_DAYS must be at least 1")
	}
	if cfg.MaxConcurrentFetches < 1 {
		return apperrors.ValidationError("MAX_CONCURRENT_FETCHES must be at least 1")
	}
	if err := ValidateWeights(cfg.Weights()); err != nil {
		return err
	}
	if cfg.LikelihoodPrior <= 0 || cfg.LikelihoodPrior >= 1 {
		return apperrors.ValidationError("LIKELIHOOD_PRIOR must be strictly between 0 and 1")
	}
	return nil
}

// ValidateWeights checks the composite blend factors. The sum is deliberately
// not forced to 1; keeping the weights proportionate is the caller's call.
func ValidateWeights(w domain.Weights) error {
	if w.Volume < 0 || w.Sentiment < 0 || w.Momentum < 0 || w.ShortInterest < 0 {
		return apperrors.ValidationError("weights must not be negative")
	}
	if w.Sum() <= 0 {
		return apperrors.ValidationError("at least one weight must be positive")
	}
	return nil
}
