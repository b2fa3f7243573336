package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phsym/console-slog"
	"golang.org/x/sync/errgroup"

	"i4.energy/across/ltelink/modem"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("server-host", "", "Host of the persistent uplink endpoint")
	flag.Int("server-port", 12607, "Port of the persistent uplink endpoint")
	flag.String("apn", "em", "APN of the packet-data context")
	configPath := flag.String("config", "", "Path to a TOML configuration file")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(config.LogLevel)

	if config.ServerHost == "" {
		logger.Error("No uplink endpoint configured, set server_host")
		os.Exit(1)
	}

	modemConfig, err := modem.NewConfigBuilder().
		WithServer(config.ServerHost, config.ServerPort).
		WithKeepAliveInterval(config.KeepAliveInterval.Duration).
		WithCommandTimeout(config.CommandTimeout.Duration).
		WithMaxReconnects(config.MaxReconnects).
		WithLogger(logger).
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	session, err := modem.NewSession(context.Background(), modemConfig)
	if err != nil {
		logger.Error("Failed to create modem session", "error", err)
		os.Exit(1)
	}

	// The radio drives its attach sequence through the session's engine,
	// so it is wired in after construction.
	radio := modem.NewLTERadio(session.Engine(), modem.LTEConfig{APN: config.APN}, logger)
	session.SetRadio(radio)

	probe := modem.NewProbe(session.Engine().Transport(), logger)
	link := NewLink(session, radio, probe)

	logger.Info("Starting LTE uplink",
		"serial_port", config.SerialPort,
		"server", config.ServerHost,
		"server_port", config.ServerPort,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := link.session.Open(ctx); err != nil {
		// The maintenance loop keeps retrying; startup only logs.
		logger.Warn("Initial session open failed", "error", err)
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger: logger.With("component", "server"),
			Link:   link,
		},
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(config.MaintainInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := link.Maintain(ctx); err != nil {
					logger.Warn("Session maintenance failed", "error", err)
				}
			}
		}
	})

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Closing uplink session")
		if err := link.Close(shutdownCtx); err != nil {
			logger.Error("Failed to close session", "error", err)
		}

		logger.Info("Closing HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("Daemon exited with error", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger: human-readable console output in
// development, JSON everywhere else.
func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if os.Getenv("ENV") == "development" {
		handler = console.NewHandler(os.Stderr, &console.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}
