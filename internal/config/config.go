package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the server runtime parameters.
type Config struct {
	ListenAddress       string        `mapstructure:"listen_address"`
	HTTPAddress         string        `mapstructure:"http_address"`
	LogLevel            string        `mapstructure:"log_level"`
	EventBuffer         int           `mapstructure:"event_buffer"`
	ClientBuffer        int           `mapstructure:"client_buffer"`
	MaxMessageSize      int           `mapstructure:"max_message_size"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

const (
	defaultListenAddress       = ":12345"
	defaultHTTPAddress         = ":9090"
	defaultLogLevel            = "info"
	defaultEventBuffer         = 128
	defaultClientBuffer        = 64
	defaultMaxMessageSize      = 512
	defaultShutdownGracePeriod = 5 * time.Second
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddress:       defaultListenAddress,
		HTTPAddress:         defaultHTTPAddress,
		LogLevel:            defaultLogLevel,
		EventBuffer:         defaultEventBuffer,
		ClientBuffer:        defaultClientBuffer,
		MaxMessageSize:      defaultMaxMessageSize,
		ShutdownGracePeriod: defaultShutdownGracePeriod,
	}
}

// Load reads configuration from the provided file path (if any) and the
// environment. Environment variables are prefixed with CHATAPP_ and override
// file values.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHATAPP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("listen_address", defaultListenAddress)
	v.SetDefault("http_address", defaultHTTPAddress)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("event_buffer", defaultEventBuffer)
	v.SetDefault("client_buffer", defaultClientBuffer)
	v.SetDefault("max_message_size", defaultMaxMessageSize)
	v.SetDefault("shutdown_grace_period", defaultShutdownGracePeriod.String())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Viper leaves durations as strings; normalize here.
	dur, err := time.ParseDuration(v.GetString("shutdown_grace_period"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid shutdown_grace_period: %w", err)
	}
	cfg.ShutdownGracePeriod = dur

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = defaultClientBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	return cfg, nil
}
