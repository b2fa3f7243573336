package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := LoadConfig(WithDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.BindAddress != "0.0.0.0:8080" {
			t.Errorf("unexpected bind address: %q", config.BindAddress)
		}
		if config.SerialPort != "/dev/ttyUSB0" {
			t.Errorf("unexpected serial port: %q", config.SerialPort)
		}
		if config.BaudRate != 115200 {
			t.Errorf("unexpected baud rate: %d", config.BaudRate)
		}
		if config.KeepAliveInterval.Duration != 30*time.Second {
			t.Errorf("unexpected keep-alive interval: %s", config.KeepAliveInterval)
		}
		if config.MaxReconnects != 3 {
			t.Errorf("unexpected reconnect budget: %d", config.MaxReconnects)
		}
	})

	t.Run("Environment overrides defaults", func(t *testing.T) {
		t.Setenv("SERIAL_PORT", "/dev/ttyACM3")
		t.Setenv("SERVER_HOST", "db.example.com")
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("KEEP_ALIVE_INTERVAL", "45s")

		config, err := LoadConfig(WithDefaults(), WithEnv())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyACM3" {
			t.Errorf("unexpected serial port: %q", config.SerialPort)
		}
		if config.ServerHost != "db.example.com" {
			t.Errorf("unexpected server host: %q", config.ServerHost)
		}
		if config.ServerPort != 9000 {
			t.Errorf("unexpected server port: %d", config.ServerPort)
		}
		if config.KeepAliveInterval.Duration != 45*time.Second {
			t.Errorf("unexpected keep-alive interval: %s", config.KeepAliveInterval)
		}
	})

	t.Run("Invalid environment values are ignored", func(t *testing.T) {
		t.Setenv("BAUD_RATE", "not-a-number")
		t.Setenv("KEEP_ALIVE_INTERVAL", "soon")

		config, err := LoadConfig(WithDefaults(), WithEnv())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.BaudRate != 115200 {
			t.Errorf("unexpected baud rate: %d", config.BaudRate)
		}
		if config.KeepAliveInterval.Duration != 30*time.Second {
			t.Errorf("unexpected keep-alive interval: %s", config.KeepAliveInterval)
		}
	})

	t.Run("Flags override everything", func(t *testing.T) {
		fSet := flag.NewFlagSet("test", flag.ContinueOnError)
		fSet.String("serial-port", "/dev/ttyUSB0", "")
		fSet.String("server-host", "", "")
		fSet.Int("server-port", 12607, "")
		if err := fSet.Parse([]string{"-serial-port", "/dev/ttyUSB7", "-server-host", "uplink.example.com"}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithFlags(fSet))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyUSB7" {
			t.Errorf("unexpected serial port: %q", config.SerialPort)
		}
		if config.ServerHost != "uplink.example.com" {
			t.Errorf("unexpected server host: %q", config.ServerHost)
		}
		// Unvisited flags must not clobber defaults.
		if config.ServerPort != 12607 {
			t.Errorf("unexpected server port: %d", config.ServerPort)
		}
	})

	t.Run("TOML file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ltelink.toml")
		data := []byte(`
server_host = "db.example.com"
server_port = 12607
apn = "iot.provider"
keep_alive_interval = "1m"
command_timeout = "8s"
`)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithFile(path))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.ServerHost != "db.example.com" {
			t.Errorf("unexpected server host: %q", config.ServerHost)
		}
		if config.APN != "iot.provider" {
			t.Errorf("unexpected APN: %q", config.APN)
		}
		if config.KeepAliveInterval.Duration != time.Minute {
			t.Errorf("unexpected keep-alive interval: %s", config.KeepAliveInterval)
		}
		if config.CommandTimeout.Duration != 8*time.Second {
			t.Errorf("unexpected command timeout: %s", config.CommandTimeout)
		}
		// Values the file does not mention keep their defaults.
		if config.SerialPort != "/dev/ttyUSB0" {
			t.Errorf("unexpected serial port: %q", config.SerialPort)
		}
	})

	t.Run("Missing file fails", func(t *testing.T) {
		if _, err := LoadConfig(WithDefaults(), WithFile("/no/such/file.toml")); err == nil {
			t.Fatal("expected an error for a missing config file")
		}
	})
}
