// Package config loads the aggregator's instance configuration
// (spec.md §6) from a YAML file with FENRIR_* environment variable
// overrides, the way internal/config/config.go in the market-making
// pack example loads its own config: viper.New, AutomaticEnv with a
// prefix, Unmarshal into a typed struct.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"fenrir/internal/book"
	"fenrir/internal/fees"
)

// Config is the aggregator instance configuration (spec.md §6
// "Configuration (aggregator instance)").
type Config struct {
	MakerFeeBps          int64  `mapstructure:"maker_fee_bps"`
	TakerFeeBps          int64  `mapstructure:"taker_fee_bps"`
	TradeHistoryCapacity int    `mapstructure:"trade_history_capacity"`
	SelfTradePolicy      string `mapstructure:"self_trade_policy"` // cancel_taker|cancel_resting|cancel_both|reject
	PriceScale           int32  `mapstructure:"price_scale"`
	MaxDepthLevels       int    `mapstructure:"max_depth_levels"` // 0 means unbounded

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls zerolog's output (level and human/JSON format),
// mirroring the pack example's own LoggingConfig shape.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console"|"json"
}

// Default returns the spec's documented defaults.
func Default() Config {
	return Config{
		MakerFeeBps:          fees.DefaultMakerBps,
		TakerFeeBps:          fees.DefaultTakerBps,
		TradeHistoryCapacity: book.DefaultTradeHistoryCapacity,
		SelfTradePolicy:      "cancel_taker",
		PriceScale:           8,
		MaxDepthLevels:       0,
		Logging:              LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads config from a YAML file at path, if it exists, layered over
// Default(), with FENRIR_* environment variables taking precedence over
// both (e.g. FENRIR_MAKER_FEE_BPS, FENRIR_SELF_TRADE_POLICY).
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FENRIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("maker_fee_bps", cfg.MakerFeeBps)
	v.SetDefault("taker_fee_bps", cfg.TakerFeeBps)
	v.SetDefault("trade_history_capacity", cfg.TradeHistoryCapacity)
	v.SetDefault("self_trade_policy", cfg.SelfTradePolicy)
	v.SetDefault("price_scale", cfg.PriceScale)
	v.SetDefault("max_depth_levels", cfg.MaxDepthLevels)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// SelfTradePolicyValue parses the configured policy name into a
// book.SelfTradePolicy, defaulting to book.CancelTaker on an unrecognized
// or empty value.
func (c Config) SelfTradePolicyValue() book.SelfTradePolicy {
	switch c.SelfTradePolicy {
	case "cancel_resting":
		return book.CancelResting
	case "cancel_both":
		return book.CancelBoth
	case "reject":
		return book.Reject
	default:
		return book.CancelTaker
	}
}

// Validate checks the loaded configuration's value ranges.
func (c Config) Validate() error {
	if c.TradeHistoryCapacity <= 0 {
		return fmt.Errorf("trade_history_capacity must be > 0")
	}
	if c.PriceScale <= 0 {
		return fmt.Errorf("price_scale must be > 0")
	}
	if c.MaxDepthLevels < 0 {
		return fmt.Errorf("max_depth_levels must be >= 0")
	}
	switch c.SelfTradePolicy {
	case "cancel_taker", "cancel_resting", "cancel_both", "reject":
	default:
		return fmt.Errorf("self_trade_policy must be one of cancel_taker, cancel_resting, cancel_both, reject")
	}
	return nil
}
