package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `yaml:"Server"`
	DB         DBConfig         `yaml:"DB"`
	Auth       AuthConfig       `yaml:"Auth"`
	Rail       RailConfig       `yaml:"Rail"`
	Payout     PayoutConfig     `yaml:"Payout"`
	Settlement SettlementConfig `yaml:"Settlement"`
	Reconcile  ReconcileConfig  `yaml:"Reconcile"`
	Logger     LoggerConfig     `yaml:"Logger"`
}

type ServerConfig struct {
	Port            string `yaml:"port"`
	CORSAllowOrigin string `yaml:"corsAllowOrigin"`
}

// DBConfig configures the MySQL pool. An empty DSN switches the service
// to the in-memory store (local development and tests).
type DBConfig struct {
	DSN                string        `yaml:"dsn"`
	MaxOpenConnection  int           `yaml:"maxOpenConnection"`
	MaxIdleConnection  int           `yaml:"maxIdleConnection"`
	ConnectionLifetime time.Duration `yaml:"connectionLifetime"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

// RailConfig points at the external payment-rail capability endpoint.
type RailConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

type PayoutConfig struct {
	Workers     int `yaml:"workers"`
	MaxAttempts int `yaml:"maxAttempts"`
}

type SettlementConfig struct {
	// EstimateCostPercent drives the documented fallback for unknown
	// supplier costs (percent of sale price).
	EstimateCostPercent int64 `yaml:"estimateCostPercent"`
}

type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./internal/config")

	viper.SetDefault("Server.port", "8080")
	viper.SetDefault("Server.corsAllowOrigin", "http://localhost:5173")
	viper.SetDefault("DB.maxOpenConnection", 25)
	viper.SetDefault("DB.maxIdleConnection", 25)
	viper.SetDefault("DB.connectionLifetime", 5*time.Minute)
	viper.SetDefault("Auth.tokenTTL", 72*time.Hour)
	viper.SetDefault("Rail.timeout", 30*time.Second)
	viper.SetDefault("Payout.workers", 4)
	viper.SetDefault("Payout.maxAttempts", 3)
	viper.SetDefault("Settlement.estimateCostPercent", 70)
	viper.SetDefault("Reconcile.interval", time.Hour)
	viper.SetDefault("Logger.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("config file not found, relying on defaults and environment")
		} else {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &config, nil
}
