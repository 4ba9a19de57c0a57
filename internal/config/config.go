package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	// Mode selects order execution: "paper" simulates fills at the live
	// quoted price, "live" submits real market orders.
	Mode   string                 `mapstructure:"mode" validate:"oneof=paper live"`
	Engine EngineConfig           `mapstructure:"engine"`
	Venues map[string]VenueConfig `mapstructure:"venues" validate:"len=2,dive"`
}

// EngineConfig defines the parameters of the arbitrage loop. All three
// values must be strictly positive; a zero or negative threshold would
// oscillate on noise and is rejected before the loop ever starts.
type EngineConfig struct {
	Threshold    float64       `mapstructure:"threshold" validate:"gt=0"`
	TradeAmount  float64       `mapstructure:"trade_amount" validate:"gt=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// VenueConfig defines settings for a specific venue. Pair is the venue's
// own symbol for the traded asset (e.g. ETH/USDT on binance vs ETH/USD
// on kraken).
type VenueConfig struct {
	Pair      string `mapstructure:"pair" validate:"required"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

var validate = validator.New()

// Validate checks the engine parameters. The controller calls this again
// at Start time so values handed to it directly get the same checks as
// values loaded from file.
func (c EngineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}

// Validate checks the full application configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("mode", "paper")
	viper.SetDefault("engine.threshold", 10.0)
	viper.SetDefault("engine.trade_amount", 0.1)
	viper.SetDefault("engine.poll_interval", "3s")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	err = config.Validate()
	return
}
