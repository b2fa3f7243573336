// Package at holds the AT command vocabulary and response tokens for
// SIM7080-class cellular modems, along with the classification tables
// used to turn free-form modem output into command outcomes.
package at

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = ">"

	// Response Codes
	OK        = "OK"
	ERROR     = "ERROR"
	NoCarrier = "NO CARRIER"
	CmeError  = "+CME ERROR"
	CmsError  = "+CMS ERROR"

	// TCP session replies (session index 0, single-session design)
	SessionOpened  = "+CAOPEN: 0,0"
	SessionUp      = "+CASTATE: 0,1"
	SendOK         = "SEND OK"
	SendFail       = "SEND FAIL"
	DataIndication = "+CADATAIND: 0"

	// Status replies
	SimReady  = "READY"
	RFActive  = "+CFUN: 1"
	PDPActive = "+CNACT: 0,1"
)

// Fixed commands.
const (
	CmdAt           = "AT"
	CmdIdentify     = "ATI"
	CmdSimStatus    = "AT+CPIN?"
	CmdRFStatus     = "AT+CFUN?"
	CmdRFOn         = "AT+CFUN=1"
	CmdRegistration = "AT+CREG?"
	CmdSignal       = "AT+CSQ"
	CmdClose        = "AT+CACLOSE=0"
	CmdStatus       = "AT+CASTATE?"
	CmdActivatePDP  = "AT+CNACT=0,1"
	CmdPDPStatus    = "AT+CNACT?"
)

// Open formats the establish-session command for a TCP connection to
// host:port on session index 0.
func Open(host string, port int) string {
	return fmt.Sprintf(`AT+CAOPEN=0,0,"TCP","%s",%d`, host, port)
}

// Send formats the send-prompt request for a payload of length bytes.
// The modem accounts for the trailing CRLF, so callers must include it
// in the length.
func Send(length int) string {
	return "AT+CASEND=0," + strconv.Itoa(length)
}

// NetworkMode formats the RAT selection command (e.g. 38 = LTE only).
func NetworkMode(mode int) string {
	return "AT+CNMP=" + strconv.Itoa(mode)
}

// BandMode formats the LTE band preference command
// (1 = CAT-M, 2 = NB-IoT, 3 = both).
func BandMode(mode int) string {
	return "AT+CMNB=" + strconv.Itoa(mode)
}

// BandConfig formats the per-RAT band list command.
func BandConfig(rat string, bands ...int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `AT+CBANDCFG="%s"`, rat)
	for _, band := range bands {
		fmt.Fprintf(&b, ",%d", band)
	}
	return b.String()
}

// PDPContext formats the packet-data context definition for the given APN.
func PDPContext(apn string) string {
	return fmt.Sprintf(`AT+CGDCONT=1,"IP","%s"`, apn)
}

// Kind tells whether a matched token signals success or failure.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
)

// Verdict binds a literal reply token to the outcome it signals.
type Verdict struct {
	Token string
	Kind  Kind
}

// Table is an outcome classification table. Adding a vendor-specific
// token is a data change here, not a control-flow change in the matcher.
// Failure entries always take priority over success entries regardless
// of position, since modems may echo a success-looking fragment before
// reporting an error.
type Table []Verdict

// Tokens returns the tokens of the given kind, preserving table order.
func (t Table) Tokens(k Kind) []string {
	var out []string
	for _, v := range t {
		if v.Kind == k {
			out = append(out, v.Token)
		}
	}
	return out
}

// failures is the generic error set shared by every command.
var failures = Table{
	{ERROR, KindFailure},
	{CmeError, KindFailure},
	{CmsError, KindFailure},
}

// Result builds a classification table from the given success tokens
// plus the generic failure set.
func Result(success ...string) Table {
	t := make(Table, 0, len(failures)+len(success))
	t = append(t, failures...)
	for _, s := range success {
		t = append(t, Verdict{s, KindSuccess})
	}
	return t
}

// SendResult classifies the reply to a raw payload write: delivery
// indication, explicit send acknowledgement or a bare OK all count as
// success; explicit send failure and carrier loss join the generic
// error set.
var SendResult = Table{
	{SendFail, KindFailure},
	{ERROR, KindFailure},
	{CmeError, KindFailure},
	{CmsError, KindFailure},
	{NoCarrier, KindFailure},
	{DataIndication, KindSuccess},
	{SendOK, KindSuccess},
	{OK, KindSuccess},
}

// QualityUnknown is the +CSQ value reporting "not known or not
// detectable".
const QualityUnknown = 99

// ParseCSQ extracts the RSSI figure (0..31, or QualityUnknown) from a
// +CSQ reply buffer.
func ParseCSQ(resp string) (int, error) {
	i := strings.Index(resp, "+CSQ:")
	if i < 0 {
		return QualityUnknown, fmt.Errorf("no +CSQ field in %q", resp)
	}
	rest := strings.TrimSpace(resp[i+len("+CSQ:"):])
	j := strings.IndexByte(rest, ',')
	if j < 0 {
		return QualityUnknown, fmt.Errorf("malformed +CSQ reply %q", resp)
	}
	q, err := strconv.Atoi(strings.TrimSpace(rest[:j]))
	if err != nil {
		return QualityUnknown, fmt.Errorf("malformed +CSQ reply %q: %w", resp, err)
	}
	if q < 0 || q > 31 {
		return QualityUnknown, nil
	}
	return q, nil
}
