package modem

import (
	"context"
	"log/slog"
	"strings"

	"i4.energy/across/ltelink/at"
)

// Probe issues read-only status queries against the modem: hardware
// identity, SIM state, RF state, network registration and signal
// quality. It keeps a private SignalState, so probing never disturbs
// the session's failure counters, reconnect budget or timers.
//
// The probe shares the transport with the session; run it from the same
// control loop, between session operations.
type Probe struct {
	engine *Engine
}

// NewProbe creates a diagnostics probe over the transport.
func NewProbe(transport Transport, logger *slog.Logger) *Probe {
	return &Probe{engine: NewEngine(transport, NewSignalState(), logger)}
}

// Report is a point-in-time diagnostic snapshot. Fields are empty when
// the corresponding query failed.
type Report struct {
	Identity      string `json:"identity,omitempty"`
	SIMStatus     string `json:"sim_status,omitempty"`
	RFStatus      string `json:"rf_status,omitempty"`
	Registration  string `json:"registration,omitempty"`
	SignalQuality int    `json:"signal_quality"`
}

// Run collects a full diagnostic snapshot. Individual query failures are
// reflected as empty fields, not errors; diagnostics must never block
// the hard path.
func (p *Probe) Run(ctx context.Context) Report {
	report := Report{SignalQuality: at.QualityUnknown}

	queries := []struct {
		cmd  string
		dest *string
	}{
		{at.CmdIdentify, &report.Identity},
		{at.CmdSimStatus, &report.SIMStatus},
		{at.CmdRFStatus, &report.RFStatus},
		{at.CmdRegistration, &report.Registration},
	}
	for _, q := range queries {
		if out := p.engine.Execute(ctx, NewCommand(q.cmd, at.Result(at.OK), 0)); out.OK() {
			*q.dest = captured(out.Response)
		}
	}

	if out := p.engine.Execute(ctx, NewCommand(at.CmdSignal, at.Result(at.OK), 0)); out.OK() {
		if q, err := at.ParseCSQ(string(out.Response)); err == nil {
			report.SignalQuality = q
		}
	}
	return report
}

// captured strips terminal noise from a response window for reporting.
func captured(resp []byte) string {
	s := strings.TrimSpace(string(resp))
	s = strings.TrimSuffix(s, at.OK)
	return strings.TrimSpace(s)
}
