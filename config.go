package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// duration wraps time.Duration so TOML files can carry values like "45s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `toml:"bind_address"`
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string `toml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int `toml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `toml:"log_level"`
	// ServerHost and ServerPort identify the remote endpoint of the
	// persistent uplink session
	ServerHost string `toml:"server_host"`
	ServerPort int    `toml:"server_port"`
	// APN of the packet-data context
	APN string `toml:"apn"`
	// KeepAliveInterval is how long the uplink may idle before a probe
	KeepAliveInterval duration `toml:"keep_alive_interval"`
	// MaintainInterval is how often the maintenance loop runs
	MaintainInterval duration `toml:"maintain_interval"`
	// CommandTimeout is the per-command deadline floor
	CommandTimeout duration `toml:"command_timeout"`
	// MaxReconnects bounds consecutive reconnection attempts
	MaxReconnects int `toml:"max_reconnects"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.ServerPort = 12607
		c.APN = "em"
		c.KeepAliveInterval = duration{30 * time.Second}
		c.MaintainInterval = duration{5 * time.Second}
		c.CommandTimeout = duration{5 * time.Second}
		c.MaxReconnects = 3
		return nil
	}
}

// WithFile loads configuration from a TOML file. An empty path is a
// no-op so the flag can stay optional.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		if _, err := toml.DecodeFile(path, c); err != nil {
			return fmt.Errorf("load config file %q: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if host := os.Getenv("SERVER_HOST"); host != "" {
			c.ServerHost = host
		}

		if port := os.Getenv("SERVER_PORT"); port != "" {
			if p, err := strconv.Atoi(port); err == nil {
				c.ServerPort = p
			}
		}

		if apn := os.Getenv("APN"); apn != "" {
			c.APN = apn
		}

		if keepAlive := os.Getenv("KEEP_ALIVE_INTERVAL"); keepAlive != "" {
			if d, err := time.ParseDuration(keepAlive); err == nil {
				c.KeepAliveInterval = duration{d}
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "server-host":
				c.ServerHost = f.Value.String()
			case "server-port":
				if p, err := strconv.Atoi(f.Value.String()); err == nil {
					c.ServerPort = p
				}
			case "apn":
				c.APN = f.Value.String()
			}
		})
		return nil
	}
}
