// Package config loads scanner settings from an optional YAML file,
// SCANNER_-prefixed environment variables and defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"discover-scanner/internal/domain"
)

// EnvPrefix is prepended to environment overrides, e.g. SCANNER_FEED_ENDPOINT.
const EnvPrefix = "SCANNER"

// Config represents the complete scanner configuration
type Config struct {
	Feed      FeedConfig      `mapstructure:"feed"`
	Keepalive KeepaliveConfig `mapstructure:"keepalive"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// FeedConfig holds the discover feed connection settings
type FeedConfig struct {
	Endpoint             string        `mapstructure:"endpoint"`
	Origin               string        `mapstructure:"origin"`
	Channel              string        `mapstructure:"channel"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	HandshakeTimeout     time.Duration `mapstructure:"handshake_timeout"`
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	WriteTimeout         time.Duration `mapstructure:"write_timeout"`
}

// KeepaliveConfig holds ping scheduling
type KeepaliveConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// FilterConfig holds admission thresholds. Money values are decimal strings.
type FilterConfig struct {
	MinMarketCap         string  `mapstructure:"min_market_cap"`
	MaxMarketCap         string  `mapstructure:"max_market_cap"`
	MaxTopHoldersPercent float64 `mapstructure:"max_top_holders_percent"`
	MinBuySellRatio      string  `mapstructure:"min_buy_sell_ratio"`
	MinVolume            string  `mapstructure:"min_volume"`
	MinPooledLiquidity   string  `mapstructure:"min_pooled_liquidity"`
	MinVolumeMcapRatio   string  `mapstructure:"min_volume_mcap_ratio"`
}

// ReportingConfig selects match sinks
type ReportingConfig struct {
	Console         bool           `mapstructure:"console"`
	Format          string         `mapstructure:"format"`
	OutputFile      string         `mapstructure:"output_file"`
	SuppressRepeats int            `mapstructure:"suppress_repeats"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
	NATS            NATSConfig     `mapstructure:"nats"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// NATSConfig holds match publishing configuration
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// StorageConfig selects the match journal backend
type StorageConfig struct {
	Journal string `mapstructure:"journal"` // none, memory, postgres, clickhouse
	DSN     string `mapstructure:"dsn"`
}

// MetricsConfig holds the status server address
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// Load reads configuration from path (optional) and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Feed
	v.SetDefault("feed.endpoint", "wss://ws-token-sol-lb.tinyastro.io/cable")
	v.SetDefault("feed.origin", "https://photon-sol.tinyastro.io")
	v.SetDefault("feed.channel", "DiscoverLpChannel")
	v.SetDefault("feed.reconnect_delay", "5s")
	v.SetDefault("feed.max_reconnect_attempts", 10)
	v.SetDefault("feed.handshake_timeout", "10s")
	v.SetDefault("feed.read_timeout", "90s")
	v.SetDefault("feed.write_timeout", "10s")

	v.SetDefault("keepalive.interval", "30s")

	// Filter
	v.SetDefault("filter.min_market_cap", "40000")
	v.SetDefault("filter.max_market_cap", "500000")
	v.SetDefault("filter.max_top_holders_percent", 25)
	v.SetDefault("filter.min_buy_sell_ratio", "1.2")
	v.SetDefault("filter.min_volume", "5000")
	v.SetDefault("filter.min_pooled_liquidity", "20")
	v.SetDefault("filter.min_volume_mcap_ratio", "0.1")

	// Reporting
	v.SetDefault("reporting.console", true)
	v.SetDefault("reporting.format", "markdown")
	v.SetDefault("reporting.output_file", "")
	v.SetDefault("reporting.suppress_repeats", 0)
	v.SetDefault("reporting.telegram.enabled", false)
	v.SetDefault("reporting.telegram.bot_token", "")
	v.SetDefault("reporting.telegram.chat_id", "")
	v.SetDefault("reporting.telegram.max_retries", 3)
	v.SetDefault("reporting.telegram.retry_delay_base", "1s")
	v.SetDefault("reporting.nats.enabled", false)
	v.SetDefault("reporting.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("reporting.nats.subject", "scanner.matches")

	// Storage
	v.SetDefault("storage.journal", "none")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("metrics.addr", ":9102")
	v.SetDefault("logging.verbose", false)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.Feed.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("feed.endpoint must be a ws:// or wss:// URL")
	}
	if c.Feed.Channel == "" {
		return fmt.Errorf("feed.channel is required")
	}
	if c.Feed.ReconnectDelay <= 0 {
		return fmt.Errorf("feed.reconnect_delay must be positive")
	}
	if c.Feed.MaxReconnectAttempts < 0 {
		return fmt.Errorf("feed.max_reconnect_attempts must not be negative")
	}
	if c.Keepalive.Interval < time.Second {
		return fmt.Errorf("keepalive.interval must be at least 1 second")
	}

	th, err := c.Filter.Thresholds()
	if err != nil {
		return err
	}
	if th.MinMarketCap.GreaterThan(th.MaxMarketCap) {
		return fmt.Errorf("filter.min_market_cap must not exceed filter.max_market_cap")
	}
	if c.Filter.MaxTopHoldersPercent < 0 || c.Filter.MaxTopHoldersPercent > 100 {
		return fmt.Errorf("filter.max_top_holders_percent must be between 0 and 100")
	}

	switch c.Reporting.Format {
	case "markdown", "csv":
	default:
		return fmt.Errorf("reporting.format must be one of: markdown, csv")
	}
	if c.Reporting.SuppressRepeats < 0 {
		return fmt.Errorf("reporting.suppress_repeats must not be negative")
	}
	if c.Reporting.Telegram.Enabled {
		if c.Reporting.Telegram.BotToken == "" {
			return fmt.Errorf("reporting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Reporting.Telegram.ChatID == "" {
			return fmt.Errorf("reporting.telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Reporting.NATS.Enabled && c.Reporting.NATS.URL == "" {
		return fmt.Errorf("reporting.nats.url is required when nats is enabled")
	}

	switch c.Storage.Journal {
	case "none", "memory":
	case "postgres", "clickhouse":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the %s journal", c.Storage.Journal)
		}
	default:
		return fmt.Errorf("storage.journal must be one of: none, memory, postgres, clickhouse")
	}

	return nil
}

// Thresholds parses the filter section into domain thresholds.
func (f FilterConfig) Thresholds() (domain.FilterThresholds, error) {
	th := domain.FilterThresholds{MaxTopHoldersPercent: f.MaxTopHoldersPercent}

	fields := []struct {
		key string
		raw string
		dst *decimal.Decimal
	}{
		{"filter.min_market_cap", f.MinMarketCap, &th.MinMarketCap},
		{"filter.max_market_cap", f.MaxMarketCap, &th.MaxMarketCap},
		{"filter.min_buy_sell_ratio", f.MinBuySellRatio, &th.MinBuySellRatio},
		{"filter.min_volume", f.MinVolume, &th.MinVolume},
		{"filter.min_pooled_liquidity", f.MinPooledLiquidity, &th.MinPooledLiquidity},
		{"filter.min_volume_mcap_ratio", f.MinVolumeMcapRatio, &th.MinVolumeMcapRatio},
	}
	for _, fld := range fields {
		d, err := decimal.NewFromString(fld.raw)
		if err != nil {
			return domain.FilterThresholds{}, fmt.Errorf("%s: invalid decimal %q: %w", fld.key, fld.raw, err)
		}
		if d.IsNegative() {
			return domain.FilterThresholds{}, fmt.Errorf("%s must not be negative", fld.key)
		}
		*fld.dst = d
	}

	return th, nil
}
