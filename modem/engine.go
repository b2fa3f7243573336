package modem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"i4.energy/across/ltelink/at"
)

// OutcomeKind is the ternary result of a command exchange.
type OutcomeKind int

const (
	// OutcomeSuccess means a success token was found in the response.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeProtocolError means the chip explicitly reported failure.
	OutcomeProtocolError
	// OutcomeTimeout means no recognized token arrived within the deadline.
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeProtocolError:
		return "protocol-error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Request describes a single command exchange. It is immutable once
// issued and discarded after the outcome is produced.
type Request struct {
	// Payload is written to the transport verbatim.
	Payload []byte
	// Verdicts classifies the reply tokens.
	Verdicts at.Table
	// Timeout is the caller-suggested deadline. It acts as a floor: the
	// adaptive policy may raise the effective deadline, never lower it
	// below the adaptive minimum.
	Timeout time.Duration
}

// NewCommand builds a Request for a textual AT command, appending the
// carriage-return terminator the chip expects.
func NewCommand(cmd string, verdicts at.Table, timeout time.Duration) Request {
	return Request{
		Payload:  []byte(strings.TrimSpace(cmd) + "\r"),
		Verdicts: verdicts,
		Timeout:  timeout,
	}
}

// Outcome is the result of exactly one Request.
type Outcome struct {
	Kind OutcomeKind
	// Token is the matched success or error token.
	Token string
	// Response holds the accumulated window at match time, only on
	// success.
	Response []byte
	// Elapsed is the exchange duration.
	Elapsed time.Duration
}

// OK reports whether the exchange succeeded.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Err maps the outcome onto the error taxonomy: nil on success,
// ErrProtocol or ErrTimeout otherwise.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeProtocolError:
		return fmt.Errorf("%w: %s", ErrProtocol, o.Token)
	default:
		return fmt.Errorf("%w after %s", ErrTimeout, o.Elapsed.Round(time.Millisecond))
	}
}

// Observer receives every command outcome with its elapsed time. It is
// observational only; implementations must not affect control flow.
type Observer interface {
	ObserveCommand(label string, kind OutcomeKind, elapsed time.Duration)
}

// Engine executes one command at a time against the transport and
// classifies the reply. Commands are strictly serialized: the transport
// has no way to correlate replies to requests other than arrival order,
// so a new request is never issued while a prior one is pending. There
// is no mid-flight cancellation; the deadline baked into the wait is the
// only timeout mechanism.
type Engine struct {
	transport Transport
	signal    *SignalState
	logger    *slog.Logger
	observer  Observer
}

// NewEngine wires an Engine to a connected transport. The signal state
// is shared with the adaptive timeout policy and with periodic quality
// sampling.
func NewEngine(transport Transport, signal *SignalState, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		transport: transport,
		signal:    signal,
		logger:    logger,
	}
}

// SetObserver installs the outcome observer. A nil observer disables
// reporting.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Signal exposes the engine's signal state for periodic sampling.
func (e *Engine) Signal() *SignalState {
	return e.signal
}

// Transport exposes the underlying transport, e.g. to build a
// diagnostics probe over the same modem connection.
func (e *Engine) Transport() Transport {
	return e.transport
}

// Execute performs one request/response exchange.
//
// The effective deadline is the caller's suggested timeout or the
// adaptive minimum, whichever is larger, so slow-link conditions always
// get at least the adaptive floor. Stale bytes left over from a prior
// exchange (including unsolicited chip output) are discarded before the
// write; leftover bytes must not be mistaken for this exchange's
// response.
func (e *Engine) Execute(ctx context.Context, req Request) Outcome {
	deadline := AdaptiveTimeout(e.signal)
	if req.Timeout > deadline {
		deadline = req.Timeout
	}

	label := requestLabel(req.Payload)

	if err := e.transport.ResetInputBuffer(); err != nil {
		e.logger.Debug("input buffer flush failed", "error", err)
	}

	start := time.Now()
	if _, err := e.transport.Write(req.Payload); err != nil {
		out := Outcome{Kind: OutcomeTimeout, Elapsed: time.Since(start)}
		e.signal.recordFailure()
		e.logger.Warn("command write failed",
			"command", label,
			"error", err,
			"consecutive_failures", e.signal.Failures(),
		)
		e.observe(label, out)
		return out
	}

	out := awaitVerdict(ctx, e.transport, req.Verdicts, deadline)

	if out.OK() {
		e.signal.recordSuccess()
		e.logger.Debug("command succeeded",
			"command", label,
			"token", out.Token,
			"elapsed", out.Elapsed,
		)
	} else {
		e.signal.recordFailure()
		e.logger.Warn("command failed",
			"command", label,
			"outcome", out.Kind.String(),
			"token", out.Token,
			"expected", req.Verdicts.Tokens(at.KindSuccess),
			"deadline", deadline,
			"elapsed", out.Elapsed,
			"consecutive_failures", e.signal.Failures(),
		)
	}

	e.observe(label, out)
	return out
}

func (e *Engine) observe(label string, out Outcome) {
	if e.observer != nil {
		e.observer.ObserveCommand(label, out.Kind, out.Elapsed)
	}
}

// requestLabel renders a payload for logs and metrics: the trimmed
// command text when printable, a byte count otherwise.
func requestLabel(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	if len(s) > 64 {
		return fmt.Sprintf("<%d bytes>", len(payload))
	}
	for _, r := range s {
		if r > unicode.MaxASCII || (!unicode.IsPrint(r) && r != '\n' && r != '\r') {
			return fmt.Sprintf("<%d bytes>", len(payload))
		}
	}
	return s
}
