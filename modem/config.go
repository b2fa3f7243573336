package modem

import (
	"log/slog"
	"time"
)

// Config carries everything a Session needs: how to reach the modem, the
// remote endpoint of the persistent connection, and the tuning knobs for
// keep-alive and reconnection.
type Config struct {
	// Dialer opens the transport to the modem. Required.
	Dialer Dialer
	// ServerHost and ServerPort identify the remote endpoint of the
	// persistent TCP session. Required.
	ServerHost string
	ServerPort int
	// KeepAliveInterval is how long the session may stay idle before a
	// keep-alive probe is due.
	KeepAliveInterval time.Duration
	// CommandTimeout is the per-command deadline floor. The adaptive
	// policy may raise the effective deadline above it.
	CommandTimeout time.Duration
	// MaxReconnects bounds consecutive reconnection attempts before the
	// session hard-fails and requires an external network re-attach.
	MaxReconnects int
	// Radio reports network attachment and signal quality. Optional; a
	// nil Radio skips the readiness precondition and hard-fail
	// escalation.
	Radio Radio
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	if c.ServerHost == "" || c.ServerPort <= 0 {
		return ErrNoServer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = 30 * time.Second
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 5 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 3
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the transport dialer.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

// WithServer sets the remote endpoint of the persistent session.
func (b *ConfigBuilder) WithServer(host string, port int) *ConfigBuilder {
	b.config.ServerHost = host
	b.config.ServerPort = port
	return b
}

// WithKeepAliveInterval sets the idle interval before a probe is due.
func (b *ConfigBuilder) WithKeepAliveInterval(d time.Duration) *ConfigBuilder {
	b.config.KeepAliveInterval = d
	return b
}

// WithCommandTimeout sets the per-command deadline floor.
func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.CommandTimeout = d
	return b
}

// WithMaxReconnects bounds consecutive reconnection attempts.
func (b *ConfigBuilder) WithMaxReconnects(n int) *ConfigBuilder {
	b.config.MaxReconnects = n
	return b
}

// WithRadio sets the power/attach collaborator.
func (b *ConfigBuilder) WithRadio(r Radio) *ConfigBuilder {
	b.config.Radio = r
	return b
}

// WithLogger sets the structured logger.
func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

// Build validates the configuration and applies defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	cfg := b.config
	cfg.setDefaults()
	return cfg, nil
}
