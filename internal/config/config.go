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
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	MaxMembers             int           `mapstructure:"max_members"`
	RoomIdleTimeout        time.Duration `mapstructure:"room_idle_timeout"`
	SweepInterval          time.Duration `mapstructure:"sweep_interval"`
	ConnIdleTimeout        time.Duration `mapstructure:"conn_idle_timeout"`
	ShutdownGrace          time.Duration `mapstructure:"shutdown_grace"`
	RestrictPlaybackToHost bool          `mapstructure:"restrict_playback_to_host"`
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
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("max_members", 50)
	v.SetDefault("room_idle_timeout", "5m")
	v.SetDefault("sweep_interval", "5m")
	v.SetDefault("conn_idle_timeout", "30m")
	v.SetDefault("shutdown_grace", "3s")
	v.SetDefault("restrict_playback_to_host", false)

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
