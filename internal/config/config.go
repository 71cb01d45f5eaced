package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type RoomsConfig struct {
	// EvictEmpty garbage-collects a room when its last member leaves.
	// Default false: empty rooms are retained, matching historic behavior.
	EvictEmpty bool `mapstructure:"evict_empty"`
}

type Config struct {
	Mode        string        `mapstructure:"mode"`
	ListenAddr  string        `mapstructure:"listen_addr"`
	HTTPAddr    string        `mapstructure:"http_addr"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	ReadLimit   int           `mapstructure:"read_limit"`
	SendBuffer  int           `mapstructure:"send_buffer"`
	Rooms       RoomsConfig   `mapstructure:"rooms"`
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
	v.SetDefault("listen_addr", ":2422")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("read_timeout", "60s")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("send_buffer", 32)
	v.SetDefault("rooms.evict_empty", false)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
