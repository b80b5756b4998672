// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

type Config struct {
	TreasuryWallet string `mapstructure:"treasury_wallet"`
	PostgresURL    string `mapstructure:"postgres_url"`
	LogFile        string `mapstructure:"log_file"`
	DebugLogging   bool   `mapstructure:"debug_logging"`

	MaxCombinedFeeBps uint32 `mapstructure:"max_combined_fee_bps"`

	MarketCapThreshold       float64 `mapstructure:"market_cap_threshold"`
	SustainWindowHours       int     `mapstructure:"sustain_window_hours"`
	MilestoneDeadlineHours   int     `mapstructure:"milestone_deadline_hours"`
	PremiumClaimIntervalDays int     `mapstructure:"premium_claim_interval_days"`

	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	PollRetries         int `mapstructure:"poll_retries"`
	PollWorkers         int `mapstructure:"poll_workers"`

	EventBufferSize int `mapstructure:"event_buffer_size"`
}

const (
	DefaultMaxCombinedFeeBps        = 2000
	DefaultMarketCapThreshold       = 50000.0
	DefaultSustainWindowHours       = 48
	DefaultMilestoneDeadlineHours   = 96
	DefaultPremiumClaimIntervalDays = 7
	DefaultPollIntervalSeconds      = 30
	DefaultPollRetries              = 3
	DefaultPollWorkers              = 4
	DefaultEventBufferSize          = 256
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"log_file":                    "engine.log",
		"max_combined_fee_bps":        DefaultMaxCombinedFeeBps,
		"market_cap_threshold":        DefaultMarketCapThreshold,
		"sustain_window_hours":        DefaultSustainWindowHours,
		"milestone_deadline_hours":    DefaultMilestoneDeadlineHours,
		"premium_claim_interval_days": DefaultPremiumClaimIntervalDays,
		"poll_interval_seconds":       DefaultPollIntervalSeconds,
		"poll_retries":                DefaultPollRetries,
		"poll_workers":                DefaultPollWorkers,
		"event_buffer_size":           DefaultEventBufferSize,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.TreasuryWallet == "" {
		return errors.New("missing treasury_wallet in configuration")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.TreasuryWallet); err != nil {
		return errors.New("invalid treasury_wallet address")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.MaxCombinedFeeBps == 0 || cfg.MaxCombinedFeeBps > 10000 {
		return errors.New("invalid max_combined_fee_bps")
	}
	if cfg.MarketCapThreshold <= 0 {
		return errors.New("invalid market_cap_threshold")
	}
	if cfg.SustainWindowHours <= 0 {
		return errors.New("invalid sustain_window_hours")
	}
	if cfg.MilestoneDeadlineHours <= 0 {
		return errors.New("invalid milestone_deadline_hours")
	}
	if cfg.PremiumClaimIntervalDays <= 0 {
		return errors.New("invalid premium_claim_interval_days")
	}
	if cfg.PollIntervalSeconds <= 0 {
		return errors.New("invalid poll_interval_seconds")
	}
	if cfg.PollRetries < 0 {
		return errors.New("invalid poll_retries count")
	}
	if cfg.PollWorkers <= 0 {
		return errors.New("invalid poll_workers count")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("WYBE_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envTreasury := v.GetString("TREASURY_WALLET"); envTreasury != "" {
		cfg.TreasuryWallet = envTreasury
	}
	if envPostgres := v.GetString("POSTGRES_URL"); envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}
	return nil
}
