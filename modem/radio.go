package modem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/ltelink/at"
)

// Radio is the power/attach collaborator the session depends on. It must
// report ready before a session is opened and is the escalation path
// once the reconnect budget is spent. SignalQuality is sampled
// periodically and fed into the engine's SignalState by the outer loop.
type Radio interface {
	// EnsureReady brings the underlying network layer up (RF on,
	// packet-data context attached) or verifies it still is.
	EnsureReady(ctx context.Context) error

	// SignalQuality reports the current quality figure, 0..31 or
	// at.QualityUnknown.
	SignalQuality(ctx context.Context) (int, error)
}

// LTEConfig tunes the attach sequence.
type LTEConfig struct {
	// APN of the packet-data context, e.g. "em".
	APN string
	// NetworkMode is the RAT selection figure (38 = LTE only).
	NetworkMode int
	// BandMode is the LTE band preference (1 = CAT-M, 2 = NB-IoT, 3 = both).
	BandMode int
	// AttachWait bounds the readiness poll after context activation.
	AttachWait time.Duration
}

func (c *LTEConfig) setDefaults() {
	if c.NetworkMode == 0 {
		c.NetworkMode = 38
	}
	if c.BandMode == 0 {
		c.BandMode = 1
	}
	if c.AttachWait == 0 {
		c.AttachWait = 45 * time.Second
	}
}

// LTERadio drives the CAT-M/NB-IoT attach sequence of SIM7080-class
// chips through the command engine: RAT and band selection, packet-data
// context definition and activation, then a bounded readiness poll.
type LTERadio struct {
	engine   *Engine
	config   LTEConfig
	logger   *slog.Logger
	attached bool
}

// NewLTERadio wires a radio controller to the engine. The engine is
// shared with the session; calls must come from the same control loop.
func NewLTERadio(engine *Engine, config LTEConfig, logger *slog.Logger) *LTERadio {
	if logger == nil {
		logger = slog.Default()
	}
	config.setDefaults()
	return &LTERadio{
		engine: engine,
		config: config,
		logger: logger.With("component", "radio"),
	}
}

// EnsureReady verifies the packet-data context is active, running the
// full attach sequence when it is not.
func (r *LTERadio) EnsureReady(ctx context.Context) error {
	if r.attached {
		out := r.engine.Execute(ctx, NewCommand(at.CmdPDPStatus, at.Result(at.PDPActive), 0))
		if out.OK() {
			return nil
		}
		r.logger.Warn("packet-data context lost, re-attaching")
		r.attached = false
	}
	return r.attach(ctx)
}

func (r *LTERadio) attach(ctx context.Context) error {
	r.logger.Info("attaching to network",
		"apn", r.config.APN,
		"network_mode", r.config.NetworkMode,
		"band_mode", r.config.BandMode,
	)

	required := []string{
		at.CmdAt,
		at.NetworkMode(r.config.NetworkMode),
		at.BandMode(r.config.BandMode),
		at.PDPContext(r.config.APN),
		at.CmdActivatePDP,
	}
	for _, cmd := range required {
		if out := r.engine.Execute(ctx, NewCommand(cmd, at.Result(at.OK), 0)); !out.OK() {
			return fmt.Errorf("%w: %s: %w", ErrNotReady, cmd, out.Err())
		}
		// Band configuration is tuned right after band mode, best-effort:
		// some firmware revisions reject it without consequence.
		if cmd == at.BandMode(r.config.BandMode) {
			r.engine.Execute(ctx, NewCommand(at.BandConfig("CAT-M", 2, 4, 5), at.Result(at.OK), 0))
			r.engine.Execute(ctx, NewCommand(at.BandConfig("NB-IOT"), at.Result(at.OK), 0))
		}
	}

	deadline := time.Now().Add(r.config.AttachWait)
	for time.Now().Before(deadline) {
		out := r.engine.Execute(ctx, NewCommand(at.CmdPDPStatus, at.Result(at.PDPActive), 0))
		if out.OK() {
			r.attached = true
			r.logger.Info("network attached")
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: network attach timed out after %s", ErrNotReady, r.config.AttachWait)
}

// SignalQuality samples the current RSSI figure via +CSQ.
func (r *LTERadio) SignalQuality(ctx context.Context) (int, error) {
	out := r.engine.Execute(ctx, NewCommand(at.CmdSignal, at.Result(at.OK), 0))
	if !out.OK() {
		return at.QualityUnknown, fmt.Errorf("query signal quality: %w", out.Err())
	}
	return at.ParseCSQ(string(out.Response))
}
