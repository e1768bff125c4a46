package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode          string        `mapstructure:"mode"`
	Bind          string        `mapstructure:"bind"`
	Port          int           `mapstructure:"port"`
	Secret        string        `mapstructure:"secret"`
	TxnAttempts   int           `mapstructure:"txn_attempts"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	GameOverTTL   time.Duration `mapstructure:"game_over_ttl"`
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive: %s", c.SweepInterval)
	}
	return nil
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PARLOR")
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("bind", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "parlor-dev-secret")
	v.SetDefault("txn_attempts", 32)
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("game_over_ttl", "15m")

	if err := v.ReadInConfig(); err == nil {
		fmt.Printf("Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
