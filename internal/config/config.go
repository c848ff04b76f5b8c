package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	RedisAddr    string `mapstructure:"redis_addr" yaml:"redis_addr"`
	NATSURL      string `mapstructure:"nats_url" yaml:"nats_url"`
	IndexPath    string `mapstructure:"index_path" yaml:"index_path"`

	RoomHistoryLimit int           `mapstructure:"room_history_limit" yaml:"room_history_limit"`
	RoomTypingExpiry time.Duration `mapstructure:"room_typing_expiry" yaml:"room_typing_expiry"`
	DMTypingExpiry   time.Duration `mapstructure:"dm_typing_expiry" yaml:"dm_typing_expiry"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty" yaml:"log_pretty"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "chatline.db",
		RedisAddr:         "127.0.0.1:6379",
		NATSURL:           "", // empty disables activity publishing
		IndexPath:         "chatline-activity.bluge",
		RoomHistoryLimit:  50,
		RoomTypingExpiry:  800 * time.Millisecond,
		DMTypingExpiry:    time.Second,
		LogLevel:          "info",
		LogPretty:         true,
	}
}
