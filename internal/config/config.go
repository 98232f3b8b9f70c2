package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Host              string        `mapstructure:"host" yaml:"host"`
	Port              int           `mapstructure:"port" yaml:"port"`
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	Color             bool          `mapstructure:"color" yaml:"color"`
	ReadBufferBytes   int           `mapstructure:"read_buffer_bytes" yaml:"read_buffer_bytes"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              3000,
		HTTPAddr:          ":8080",
		LogLevel:          "info",
		Color:             true,
		ReadBufferBytes:   4096,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Addr is the TCP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports configuration values the server cannot run with.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ReadBufferBytes <= 0 {
		return fmt.Errorf("read_buffer_bytes must be positive, got %d", c.ReadBufferBytes)
	}
	if c.WriteTimeout < 0 || c.ShutdownTimeout < 0 || c.ReadHeaderTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}
