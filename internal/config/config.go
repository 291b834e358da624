package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	MediaAppID    string        `mapstructure:"media_app_id"`
	MediaSecret   string        `mapstructure:"media_secret"`
	MediaTokenTTL time.Duration `mapstructure:"media_token_ttl"`

	RoomLifetime  time.Duration `mapstructure:"room_lifetime"`
	AdminGrace    time.Duration `mapstructure:"admin_grace"`
	MessageTTL    time.Duration `mapstructure:"message_ttl"`
	GuardCapacity int           `mapstructure:"guard_capacity"`

	ChatRateLimit    int           `mapstructure:"chat_rate_limit"`
	ChatRateInterval time.Duration `mapstructure:"chat_rate_interval"`

	Categories []string `mapstructure:"categories"`
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

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("media_token_ttl", "1h")
	v.SetDefault("room_lifetime", "5h")
	v.SetDefault("admin_grace", "60s")
	v.SetDefault("message_ttl", "5m")
	v.SetDefault("guard_capacity", 1000)
	v.SetDefault("chat_rate_limit", 10)
	v.SetDefault("chat_rate_interval", "10s")
	v.SetDefault("categories", []string{"music", "tech", "sports", "culture", "news", "other"})

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
