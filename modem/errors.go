package modem

import "errors"

var (
	// ErrNoDialer is returned when a Config is built without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order
	// to establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNoServer is returned when a Config is built without a remote
	// server address or port for the persistent session.
	ErrNoServer = errors.New("no server address configured")

	// ErrTimeout reports that no recognized token arrived within the
	// command deadline: transport too slow, chip unresponsive, or the
	// token set is incomplete.
	ErrTimeout = errors.New("command timed out")

	// ErrProtocol reports that the chip explicitly answered a command
	// with an error token.
	ErrProtocol = errors.New("modem reported failure")

	// ErrNoSession is returned when a send is attempted while no session
	// is established and reconnection failed.
	ErrNoSession = errors.New("no active session")

	// ErrBudgetExhausted is returned once the reconnect budget is spent.
	// The underlying network layer must be re-attached externally before
	// the session can be reopened.
	ErrBudgetExhausted = errors.New("reconnect budget exhausted")

	// ErrNotReady is returned when the radio collaborator reports that
	// the network is not attached.
	ErrNotReady = errors.New("radio not ready")
)
