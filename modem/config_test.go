package modem_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"i4.energy/across/ltelink/modem"
)

func TestConfigBuilder(t *testing.T) {
	require := require.New(t)

	t.Run("Dialer is required", func(t *testing.T) {
		_, err := modem.NewConfigBuilder().
			WithServer("db.example.com", 12607).
			Build()
		require.ErrorIs(err, modem.ErrNoDialer)
	})

	t.Run("Server endpoint is required", func(t *testing.T) {
		_, err := modem.NewConfigBuilder().
			WithDialer(modem.SerialDialer{PortName: "/dev/ttyUSB0"}).
			Build()
		require.ErrorIs(err, modem.ErrNoServer)

		_, err = modem.NewConfigBuilder().
			WithDialer(modem.SerialDialer{PortName: "/dev/ttyUSB0"}).
			WithServer("db.example.com", 0).
			Build()
		require.ErrorIs(err, modem.ErrNoServer)
	})

	t.Run("Defaults are applied on build", func(t *testing.T) {
		cfg, err := modem.NewConfigBuilder().
			WithDialer(modem.SerialDialer{PortName: "/dev/ttyUSB0"}).
			WithServer("db.example.com", 12607).
			Build()
		require.NoError(err)
		require.Equal(30*time.Second, cfg.KeepAliveInterval)
		require.Equal(5*time.Second, cfg.CommandTimeout)
		require.Equal(3, cfg.MaxReconnects)
		require.NotNil(cfg.Logger)
	})

	t.Run("Explicit values survive build", func(t *testing.T) {
		cfg, err := modem.NewConfigBuilder().
			WithDialer(modem.SerialDialer{PortName: "/dev/ttyUSB0"}).
			WithServer("db.example.com", 12607).
			WithKeepAliveInterval(time.Minute).
			WithCommandTimeout(10 * time.Second).
			WithMaxReconnects(5).
			WithLogger(discardLogger()).
			Build()
		require.NoError(err)
		require.Equal(time.Minute, cfg.KeepAliveInterval)
		require.Equal(10*time.Second, cfg.CommandTimeout)
		require.Equal(5, cfg.MaxReconnects)
	})
}
