// Copyright (c) 2025 BVK Chaitanya

// Package config loads the bot configuration from a YAML file, with secrets
// supplied through the environment or an optional .env file next to it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/bvk/floatbid/bot"
	"github.com/bvk/floatbid/checker"
	"github.com/bvk/floatbid/csfloat"
	"github.com/bvk/floatbid/governor"
	"github.com/bvk/floatbid/outbid"
	"github.com/bvk/floatbid/telegram"
)

type Config struct {
	// PollInterval is the time between two passes over all accounts, as a
	// Go duration string.
	PollInterval string `yaml:"poll_interval"`

	// OutbidStep is the minor-currency increment over a competitor's bid.
	OutbidStep int64 `yaml:"outbid_step"`

	// MaxOutbids caps re-prices per order.
	MaxOutbids int `yaml:"max_outbids"`

	// CeilingMultiplier and CeilingPremium bound price wars relative to the
	// cheapest sell price.
	CeilingMultiplier float64 `yaml:"ceiling_multiplier"`
	CeilingPremium    int64   `yaml:"ceiling_premium"`

	// GlobalRateLimit and AccountRateLimit are request budgets per minute.
	GlobalRateLimit  int `yaml:"global_rate_limit"`
	AccountRateLimit int `yaml:"account_rate_limit"`

	Marketplace MarketplaceConfig `yaml:"marketplace"`

	Telegram TelegramConfig `yaml:"telegram"`
}

type MarketplaceConfig struct {
	Hostname string `yaml:"hostname"`
}

type TelegramConfig struct {
	Enabled bool `yaml:"enabled"`

	// BotToken comes from the FLOATBID_TELEGRAM_TOKEN environment variable,
	// never from the YAML file.
	BotToken string `yaml:"-"`

	Owner  string   `yaml:"owner"`
	Admin  string   `yaml:"admin"`
	Others []string `yaml:"others"`
}

// Load reads the YAML config at the given path. A .env file in the same
// directory, when present, is merged into the process environment first.
func Load(path string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not load env file %q: %w", envPath, err)
	}

	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config file %q: %w", path, err)
	}
	defer fp.Close()

	c := new(Config)
	if err := yaml.NewDecoder(fp).Decode(c); err != nil {
		return nil, fmt.Errorf("could not decode config file %q: %w", path, err)
	}
	c.Telegram.BotToken = os.Getenv("FLOATBID_TELEGRAM_TOKEN")

	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return c, nil
}

func (c *Config) Check() error {
	if len(c.PollInterval) != 0 {
		if _, err := time.ParseDuration(c.PollInterval); err != nil {
			return fmt.Errorf("invalid poll interval %q: %w", c.PollInterval, err)
		}
	}
	if c.OutbidStep < 0 {
		return fmt.Errorf("outbid step cannot be negative")
	}
	if c.MaxOutbids < 0 {
		return fmt.Errorf("max outbids cannot be negative")
	}
	if c.CeilingMultiplier != 0 && c.CeilingMultiplier <= 1 {
		return fmt.Errorf("ceiling multiplier must be above one")
	}
	if c.CeilingPremium < 0 {
		return fmt.Errorf("ceiling premium cannot be negative")
	}
	if c.GlobalRateLimit < 0 || c.AccountRateLimit < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}
	if c.Telegram.Enabled {
		if len(c.Telegram.BotToken) == 0 {
			return fmt.Errorf("telegram is enabled but FLOATBID_TELEGRAM_TOKEN is not set")
		}
		if len(c.Telegram.Owner) == 0 {
			return fmt.Errorf("telegram is enabled but owner is not set")
		}
	}
	return nil
}

// BotOptions converts the file values into scheduler options. Zero values
// fall back to the package defaults.
func (c *Config) BotOptions() *bot.Options {
	opts := &bot.Options{
		Governor: governor.Options{
			GlobalPerMinute:  c.GlobalRateLimit,
			AccountPerMinute: c.AccountRateLimit,
		},
		Engine: outbid.Options{
			Step:           c.OutbidStep,
			MaxOutbids:     c.MaxOutbids,
			CeilingPremium: c.CeilingPremium,
		},
		Checker: checker.Options{},
		CSFloat: csfloat.Options{
			RestHostname: c.Marketplace.Hostname,
		},
	}
	if len(c.PollInterval) != 0 {
		opts.PollInterval, _ = time.ParseDuration(c.PollInterval)
	}
	if c.CeilingMultiplier != 0 {
		opts.Engine.CeilingMultiplier = decimal.NewFromFloat(c.CeilingMultiplier)
	}
	return opts
}

// TelegramSecrets returns the Telegram credentials, or nil when the
// integration is disabled.
func (c *Config) TelegramSecrets() *telegram.Secrets {
	if !c.Telegram.Enabled {
		return nil
	}
	return &telegram.Secrets{
		BotToken: c.Telegram.BotToken,
		OwnerID:  c.Telegram.Owner,
		AdminID:  c.Telegram.Admin,
		OtherIDs: c.Telegram.Others,
	}
}
