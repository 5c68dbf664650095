package main

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Owners        int     `mapstructure:"OWNERS"`
	InitialCash   string  `mapstructure:"INITIAL_CASH"`
	InitialShares int64   `mapstructure:"INITIAL_SHARES"`
	Orders        int     `mapstructure:"ORDERS"`
	PriceMean     float64 `mapstructure:"PRICE_MEAN"`
	PriceStddev   float64 `mapstructure:"PRICE_STDDEV"`
	MaxQuantity   int64   `mapstructure:"MAX_QUANTITY"`
	Seed          int64   `mapstructure:"SEED"`
	DepthLevels   uint32  `mapstructure:"DEPTH_LEVELS"`
}

// loadConfig reads marketsim.{yaml,toml,json} from the working directory
// if present, with environment variables taking precedence. Every knob
// has a default matching the classic demo run: 20 owners with 10000
// cash and 50 shares each, 1000 orders priced around 50.
func loadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("marketsim")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("OWNERS", 20)
	v.SetDefault("INITIAL_CASH", "10000")
	v.SetDefault("INITIAL_SHARES", 50)
	v.SetDefault("ORDERS", 1000)
	v.SetDefault("PRICE_MEAN", 50)
	v.SetDefault("PRICE_STDDEV", 10)
	v.SetDefault("MAX_QUANTITY", 100)
	v.SetDefault("SEED", 0)
	v.SetDefault("DEPTH_LEVELS", 10)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
