package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config is the root configuration structure, loaded once at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents   string `mapstructure:"ledger_events"`
	TopupConfirmed string `mapstructure:"topup_confirmed"`
}

// BusinessConfig carries the ledger policy knobs. Pricing and bonus math
// receive these at construction instead of reading globals, so tests can
// vary them per case.
type BusinessConfig struct {
	ReferralPercent          float64        `mapstructure:"referral_percent"`
	TierPrices               map[string]int `mapstructure:"tier_prices"`
	AnimateCostDiamonds      int            `mapstructure:"animate_cost_diamonds"`
	GenerationTimeoutMinutes int            `mapstructure:"generation_timeout_minutes"`
	MaxRetryCount            int            `mapstructure:"max_retry_count"`
}

// LoadConfig reads the YAML config file. The service cannot run without a
// complete configuration, so any problem is fatal.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	if config.Business.ReferralPercent == 0 {
		config.Business.ReferralPercent = 10.0
	}
	if config.Business.AnimateCostDiamonds == 0 {
		config.Business.AnimateCostDiamonds = 5
	}
	if config.Business.GenerationTimeoutMinutes == 0 {
		config.Business.GenerationTimeoutMinutes = 30
	}
	if config.Business.MaxRetryCount == 0 {
		config.Business.MaxRetryCount = 5
	}

	return config
}
