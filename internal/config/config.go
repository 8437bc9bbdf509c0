package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"volbot/internal/volatility"
)

const (
	SourceCSV   = "csv"
	SourceYahoo = "yahoo"
)

// Config holds all application configuration.
type Config struct {
	Analysis struct {
		Underlying    string `yaml:"underlying"`
		VolIndex      string `yaml:"vol_index"`
		RollingWindow int    `yaml:"rolling_window_days"`
		Lag           int    `yaml:"lag_days"`
		Start         string `yaml:"start"`
	} `yaml:"analysis"`
	DataSource struct {
		Kind        string        `yaml:"kind"`
		CSVDir      string        `yaml:"csv_dir"`
		YahooHosts  []string      `yaml:"yahoo_hosts"`
		Proxy       string        `yaml:"proxy"`
		Cache       bool          `yaml:"cache"`
		CacheMaxAge time.Duration `yaml:"cache_max_age"`
	} `yaml:"data_source"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		WebhookURL string `yaml:"webhook_url"`
		ChatID     int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	OpenAI struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func defaults() *Config {
	cfg := &Config{}
	d := volatility.DefaultParams()
	cfg.Analysis.Underlying = d.Underlying
	cfg.Analysis.VolIndex = d.VolIndex
	cfg.Analysis.RollingWindow = d.RollingWindow
	cfg.Analysis.Lag = d.Lag
	cfg.Analysis.Start = d.Start.Format(time.DateOnly)
	cfg.DataSource.Kind = SourceCSV
	cfg.DataSource.CSVDir = "./prices"
	cfg.DataSource.CacheMaxAge = 12 * time.Hour
	cfg.Database.Path = "data/volbot.db"
	cfg.OpenAI.Model = "gpt-4"
	cfg.Server.Port = "9095"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", volatility.ErrConfig, err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("WEBHOOK_PUBLIC_URL"); v != "" {
		cfg.Telegram.WebhookURL = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: TELEGRAM_CHAT_ID %q is not a chat id", volatility.ErrConfig, v)
		}
		cfg.Telegram.ChatID = id
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource.Kind = v
	}
	if v := os.Getenv("PRICES_DIR"); v != "" {
		cfg.DataSource.CSVDir = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	cfg.DataSource.Kind = strings.ToLower(strings.TrimSpace(cfg.DataSource.Kind))

	return cfg, nil
}

// Params converts the analysis section into pipeline parameters.
func (c *Config) Params() (volatility.Params, error) {
	start, err := time.Parse(time.DateOnly, c.Analysis.Start)
	if err != nil {
		return volatility.Params{}, fmt.Errorf("%w: analysis.start %q is not YYYY-MM-DD", volatility.ErrConfig, c.Analysis.Start)
	}
	return volatility.Params{
		Underlying:    c.Analysis.Underlying,
		VolIndex:      c.Analysis.VolIndex,
		RollingWindow: c.Analysis.RollingWindow,
		Lag:           c.Analysis.Lag,
		Start:         start,
	}, nil
}

// Validate checks the settings every entry point needs.
func (c *Config) Validate() error {
	p, err := c.Params()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	switch c.DataSource.Kind {
	case SourceCSV:
		if c.DataSource.CSVDir == "" {
			return fmt.Errorf("%w: data_source.csv_dir is required", volatility.ErrConfig)
		}
	case SourceYahoo:
	default:
		return fmt.Errorf("%w: unknown data_source.kind %q", volatility.ErrConfig, c.DataSource.Kind)
	}
	if c.DataSource.Cache && c.Database.Path == "" {
		return fmt.Errorf("%w: data_source.cache needs database.path", volatility.ErrConfig)
	}
	return nil
}

// ValidateBot additionally requires the webhook bot settings.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: telegram.bot_token is required", volatility.ErrConfig)
	}
	if c.Telegram.WebhookURL == "" {
		return fmt.Errorf("%w: telegram.webhook_url is required", volatility.ErrConfig)
	}
	return nil
}
