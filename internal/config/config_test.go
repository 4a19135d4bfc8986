package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/memepulse/internal/domain"
	apperrors "github.com/pscheid92/memepulse/internal/errors"
)

func validConfig() *Config {
	return &Config{
		Subreddits:           "wallstreetbets,stocks",
		UpdateInterval:       5 * time.Minute,
		CycleTimeout:         90 * time.Second,
		FetchTimeout:         30 * time.Second,
		MinPosts:             5,
		MinKarma:             100,
		EvictionWindowDays:   7,
		MaxConcurrentFetches: 4,
		WeightVolume:         0.4,
		WeightSentiment:      0.3,
		WeightMomentum:       0.2,
		WeightShortInterest:  0.1,
		LikelihoodPrior:      0.5,
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, validate(validConfig()))
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no subreddits", func(c *Config) { c.Subreddits = " , ," }},
		{"interval too short", func(c *Config) { c.UpdateInterval = 30 * time.Second }},
		{"zero cycle timeout", func(c *Config) { c.CycleTimeout = 0 }},
		{"fetch exceeds cycle", func(c *Config) { c.FetchTimeout = 2 * time.Minute }},
		{"zero min posts", func(c *Config) { c.MinPosts = 0 }},
		{"negative karma", func(c *Config) { c.MinKarma = -1 }},
		{"zero eviction window", func(c *Config) { c.EvictionWindowDays = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentFetches = 0 }},
		{"negative weight", func(c *Config) { c.WeightVolume = -0.1 }},
		{"all weights zero", func(c *Config) {
			c.WeightVolume, c.WeightSentiment, c.WeightMomentum, c.WeightShortInterest = 0, 0, 0, 0
		}},
		{"prior at zero", func(c *Config) { c.LikelihoodPrior = 0 }},
		{"prior at one", func(c *Config) { c.LikelihoodPrior = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			require.Error(t, err)
			assert.Equal(t, apperrors.TypeValidation, apperrors.TypeOf(err))
		})
	}
}

func TestSubredditList_TrimsAndDropsBlanks(t *testing.T) {
	cfg := &Config{Subreddits: " wallstreetbets , stocks ,, investing "}
	assert.Equal(t, []string{"wallstreetbets", "stocks", "investing"}, cfg.SubredditList())
}

func TestValidateWeights(t *testing.T) {
	assert.NoError(t, ValidateWeights(domain.DefaultWeights()))
	assert.NoError(t, ValidateWeights(domain.Weights{Volume: 3}))

	assert.Error(t, ValidateWeights(domain.Weights{Volume: -1, Sentiment: 2}))
	assert.Error(t, ValidateWeights(domain.Weights{}))
}

func TestWeights_MapsFields(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, domain.DefaultWeights(), cfg.Weights())
}
