package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

// Transport represents an established, bidirectional byte stream to a
// cellular modem.
//
// A Transport is assumed to be already connected and ready for use. On top
// of the plain byte stream it must support bounding a single Read to a
// short poll quantum (a timed-out Read returns 0 bytes and no error, the
// way serial ports behave) and discarding bytes that have been received
// but not yet read. The protocol layer imposes its own token-based framing;
// no framing is assumed here.
type Transport interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds how long a subsequent Read may block waiting
	// for at least one byte.
	SetReadTimeout(d time.Duration) error

	// ResetInputBuffer discards any bytes received from the modem that
	// have not been read yet.
	ResetInputBuffer() error
}

// Dialer opens a Transport to a cellular modem.
//
// Dialer abstracts how the modem connection is created (serial port,
// TCP-based emulator, or test double) and is intended to be used during
// construction only. Once a Transport is obtained, the Dialer is no
// longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens a modem over a local serial port using
// go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate is used when Mode is nil; defaults to 115200.
	BaudRate int
	// Mode overrides the full port configuration when set.
	Mode *serial.Mode
}

// Dial opens the configured serial port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("ltelink: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("ltelink: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}
	return port, nil
}
