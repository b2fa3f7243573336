package modem

import (
	"bytes"
	"context"
	"time"

	"i4.energy/across/ltelink/at"
)

const (
	// Rolling accumulation window. The cap comfortably exceeds the
	// longest expected token, so a token spanning a trim boundary is
	// never lost.
	matchBufferCap  = 1024
	matchBufferKeep = 512

	// Poll quantum for a single bounded Read.
	readQuantum = 10 * time.Millisecond

	// Pause between empty polls so the wait loop does not spin hot on
	// transports that return immediately.
	idleSleep = time.Millisecond
)

// awaitVerdict drains the transport into a bounded rolling window and
// tests it against the classification table until a token matches or the
// deadline elapses. Failure tokens are tested before success tokens on
// every drain cycle: a window containing both is a failure, because the
// chip may echo a success-looking fragment before reporting an error.
//
// Matching is plain substring containment anywhere in the window; the
// chip's replies are unframed text. Transport read errors are
// indistinguishable from silence at this layer and surface as a timeout
// once the deadline elapses. This is a bounded blocking call; there is
// no background delivery of responses.
func awaitVerdict(ctx context.Context, tr Transport, table at.Table, deadline time.Duration) Outcome {
	start := time.Now()
	// Best effort: transports without a native timeout still terminate
	// via the deadline check below.
	_ = tr.SetReadTimeout(readQuantum)

	buf := make([]byte, 0, matchBufferCap)
	chunk := make([]byte, 256)

	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return Outcome{Kind: OutcomeTimeout, Elapsed: time.Since(start)}
			default:
			}
		}

		n, err := tr.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if len(buf) > matchBufferCap {
				copy(buf, buf[len(buf)-matchBufferKeep:])
				buf = buf[:matchBufferKeep]
			}

			if tok, ok := scanTokens(buf, table, at.KindFailure); ok {
				return Outcome{
					Kind:    OutcomeProtocolError,
					Token:   tok,
					Elapsed: time.Since(start),
				}
			}
			if tok, ok := scanTokens(buf, table, at.KindSuccess); ok {
				return Outcome{
					Kind:     OutcomeSuccess,
					Token:    tok,
					Response: append([]byte(nil), buf...),
					Elapsed:  time.Since(start),
				}
			}
		}

		if time.Since(start) >= deadline {
			return Outcome{Kind: OutcomeTimeout, Elapsed: time.Since(start)}
		}
		if n == 0 || err != nil {
			time.Sleep(idleSleep)
		}
	}
}

func scanTokens(buf []byte, table at.Table, kind at.Kind) (string, bool) {
	for _, v := range table {
		if v.Kind == kind && bytes.Contains(buf, []byte(v.Token)) {
			return v.Token, true
		}
	}
	return "", false
}
