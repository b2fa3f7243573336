package modem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/ltelink/at"
)

// State is the persistent-connection lifecycle state.
type State int

const (
	// StateClosed means no session exists.
	StateClosed State = iota
	// StateOpening means an establish-session command is in flight.
	StateOpening
	// StateOpen means the session is usable for sending.
	StateOpen
	// StateDegraded means a probe or send failed; the session is
	// unusable until a reconnect succeeds.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Session owns the single persistent TCP connection (session index 0)
// riding on the modem's packet-data context. It drives keep-alive probes,
// bounded reconnection and the binary-safe send sub-protocol on top of
// the command engine.
//
// All operations are synchronous and must be invoked from one control
// loop; only that one logical actor touches the session, so no locking
// is used. Data may be sent only while Open; probes are issued only from
// Open or Degraded; reconnection is attempted only from Closed or
// Degraded.
type Session struct {
	engine *Engine
	config Config
	logger *slog.Logger

	state        State
	hardFailed   bool
	reconnects   int
	lastActivity time.Time

	// now is swapped in tests to drive the keep-alive timer.
	now func() time.Time
}

// NewSession dials the modem transport and prepares a Session in state
// Closed. It does not contact the remote endpoint; call Open for that.
func NewSession(ctx context.Context, config Config) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial modem transport: %w", err)
	}
	if transport == nil {
		return nil, errors.New("dialer returned nil transport")
	}

	engine := NewEngine(transport, NewSignalState(), config.Logger)
	return &Session{
		engine: engine,
		config: config,
		logger: config.Logger.With("component", "session"),
		state:  StateClosed,
		now:    time.Now,
	}, nil
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// HardFailed reports whether the reconnect budget is exhausted and the
// underlying network layer must be re-attached before the session can
// be reopened.
func (s *Session) HardFailed() bool {
	return s.hardFailed
}

// ReconnectAttempts reports the consumed reconnect budget.
func (s *Session) ReconnectAttempts() int {
	return s.reconnects
}

// Engine exposes the underlying command engine, e.g. for periodic signal
// sampling or diagnostics wiring.
func (s *Session) Engine() *Engine {
	return s.engine
}

// Configure updates the keep-alive interval. It takes effect on the next
// due-check and does not reset the timer's last-activity baseline.
func (s *Session) Configure(keepAliveInterval time.Duration) {
	s.config.KeepAliveInterval = keepAliveInterval
}

// SetRadio installs the network-layer collaborator. The LTE radio drives
// commands through the session's own engine, so it can only be built
// after the session exists; call this right after NewSession.
func (s *Session) SetRadio(r Radio) {
	s.config.Radio = r
}

// Open establishes the persistent session. On success the session is
// Open, the reconnect budget is reset and the keep-alive timer armed.
// On failure the session returns to Closed and the caller decides
// whether to retry.
func (s *Session) Open(ctx context.Context) error {
	if s.state == StateOpen {
		return nil
	}
	if s.hardFailed {
		return ErrBudgetExhausted
	}
	if err := s.ensureRadio(ctx); err != nil {
		return err
	}

	s.setState(StateOpening)
	out := s.engine.Execute(ctx, NewCommand(
		at.Open(s.config.ServerHost, s.config.ServerPort),
		at.Result(at.SessionOpened),
		s.config.CommandTimeout,
	))
	if !out.OK() {
		s.setState(StateClosed)
		return fmt.Errorf("open session to %s:%d: %w",
			s.config.ServerHost, s.config.ServerPort, out.Err())
	}

	s.setState(StateOpen)
	s.reconnects = 0
	s.touch()
	return nil
}

// Close tears the session down. The remote close command is best-effort:
// its failure is logged but local state always moves to Closed.
func (s *Session) Close(ctx context.Context) error {
	if s.state == StateClosed {
		return nil
	}
	out := s.engine.Execute(ctx, NewCommand(at.CmdClose, at.Result(at.OK), s.config.CommandTimeout))
	if !out.OK() {
		s.logger.Warn("remote close failed, closing locally", "outcome", out.Kind.String())
	}
	s.setState(StateClosed)
	s.reconnects = 0
	return nil
}

// Reconnect re-establishes a lost session from Closed or Degraded. Any
// stale remote session is closed first, best-effort. A failed attempt
// consumes one unit of the reconnect budget; exhausting the budget puts
// the session in the hard-failed sub-state where further Reconnect calls
// are no-ops until Maintain performs the external network re-attach.
func (s *Session) Reconnect(ctx context.Context) error {
	if s.state == StateOpen {
		return nil
	}
	if s.hardFailed || s.reconnects >= s.config.MaxReconnects {
		s.hardFailed = true
		return ErrBudgetExhausted
	}
	if err := s.ensureRadio(ctx); err != nil {
		return err
	}

	s.logger.Info("reconnecting session",
		"attempt", s.reconnects+1,
		"max", s.config.MaxReconnects,
	)

	// Drop any stale remote session; the outcome is intentionally ignored.
	s.engine.Execute(ctx, NewCommand(at.CmdClose, at.Result(at.OK), s.config.CommandTimeout))

	prev := s.state
	s.setState(StateOpening)
	out := s.engine.Execute(ctx, NewCommand(
		at.Open(s.config.ServerHost, s.config.ServerPort),
		at.Result(at.SessionOpened),
		s.config.CommandTimeout,
	))
	if !out.OK() {
		s.setState(prev)
		s.reconnects++
		if s.reconnects >= s.config.MaxReconnects {
			s.hardFailed = true
			s.logger.Error("reconnect budget exhausted, network re-attach required")
		}
		return fmt.Errorf("reconnect session: %w", out.Err())
	}

	s.setState(StateOpen)
	s.reconnects = 0
	s.touch()
	return nil
}

// Maintain keeps the session healthy and is intended to be invoked
// periodically. From Open it issues a keep-alive probe when due and
// attempts one inline reconnect on probe failure. From Degraded it
// attempts a budget-bounded reconnect. Once the budget is exhausted it
// runs the external network re-attach path exactly once per call, never
// recursing within a single call. Maintain is idempotent when nothing is
// due.
func (s *Session) Maintain(ctx context.Context) error {
	switch {
	case s.hardFailed:
		return s.reattach(ctx)

	case s.state == StateOpen:
		if !s.keepAliveDue() {
			return nil
		}
		if s.probe(ctx) {
			s.touch()
			return nil
		}
		s.logger.Warn("keep-alive probe failed")
		s.setState(StateDegraded)
		return s.recoverOnce(ctx)

	case s.state == StateDegraded:
		return s.recoverOnce(ctx)

	default:
		return nil
	}
}

// Send delivers payload over the persistent session using the
// length-prefixed send sub-protocol. If the session is not usable it
// first tries one reconnect; if the session still is not Open it fails
// with ErrNoSession without touching the transport further. A failed
// send degrades the session and is retried exactly once after a fresh
// reconnect, bounding worst-case latency to one reconnect-plus-resend
// cycle. A successful send rearms the keep-alive timer.
func (s *Session) Send(ctx context.Context, payload []byte, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.config.CommandTimeout
	}

	if !s.isActive(ctx) {
		if err := s.Reconnect(ctx); err != nil || s.state != StateOpen {
			if err == nil {
				err = fmt.Errorf("session %s", s.state)
			}
			return fmt.Errorf("%w: %w", ErrNoSession, err)
		}
	}

	err := s.sendData(ctx, payload, timeout)
	if err == nil {
		s.touch()
		return nil
	}

	s.logger.Warn("send failed, retrying after reconnect", "error", err)
	s.setState(StateDegraded)
	if rerr := s.Reconnect(ctx); rerr != nil {
		return err
	}
	if err := s.sendData(ctx, payload, timeout); err != nil {
		s.setState(StateDegraded)
		return err
	}
	s.touch()
	return nil
}

// sendData performs one pass of the binary-safe send sub-protocol:
// request a prompt for the payload length (plus the 2-byte terminator
// the chip accounts for), write the raw payload followed by CRLF, then
// wait for any delivery confirmation versus the send failure set.
func (s *Session) sendData(ctx context.Context, payload []byte, timeout time.Duration) error {
	prompt := NewCommand(at.Send(len(payload)+2), at.Result(at.Prompt), timeout)
	if out := s.engine.Execute(ctx, prompt); !out.OK() {
		return fmt.Errorf("send prompt: %w", out.Err())
	}

	raw := Request{
		Payload:  append(append([]byte(nil), payload...), at.CRLF...),
		Verdicts: at.SendResult,
		Timeout:  timeout,
	}
	if out := s.engine.Execute(ctx, raw); !out.OK() {
		return fmt.Errorf("send payload (%d bytes): %w", len(payload), out.Err())
	}
	return nil
}

// isActive verifies the session with a state query. A failed query marks
// the session Degraded. No query is issued unless the session believes
// itself Open.
func (s *Session) isActive(ctx context.Context) bool {
	if s.state != StateOpen {
		return false
	}
	if s.probe(ctx) {
		s.touch()
		return true
	}
	s.logger.Warn("session lost")
	s.setState(StateDegraded)
	return false
}

// recoverOnce runs one reconnect attempt and, if that exhausts the
// budget, the external re-attach path once.
func (s *Session) recoverOnce(ctx context.Context) error {
	err := s.Reconnect(ctx)
	if err == nil {
		return nil
	}
	if s.hardFailed {
		return s.reattach(ctx)
	}
	return err
}

// reattach escalates to the external network layer after the reconnect
// budget is spent: close locally, re-attach the radio, then reopen.
// Without a radio collaborator the session stays hard-failed.
func (s *Session) reattach(ctx context.Context) error {
	if s.config.Radio == nil {
		return ErrBudgetExhausted
	}
	s.logger.Info("re-attaching network layer")
	_ = s.Close(ctx)
	if err := s.config.Radio.EnsureReady(ctx); err != nil {
		return fmt.Errorf("%w: re-attach failed: %w", ErrBudgetExhausted, err)
	}
	s.hardFailed = false
	s.reconnects = 0
	return s.Open(ctx)
}

func (s *Session) ensureRadio(ctx context.Context) error {
	if s.config.Radio == nil {
		return nil
	}
	if err := s.config.Radio.EnsureReady(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

func (s *Session) probe(ctx context.Context) bool {
	out := s.engine.Execute(ctx, NewCommand(at.CmdStatus, at.Result(at.SessionUp), s.config.CommandTimeout))
	return out.OK()
}

func (s *Session) keepAliveDue() bool {
	return s.now().Sub(s.lastActivity) > s.config.KeepAliveInterval
}

func (s *Session) touch() {
	s.lastActivity = s.now()
}

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("session state changed", "from", s.state.String(), "to", next.String())
	s.state = next
}
