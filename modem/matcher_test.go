package modem

import (
	"context"
	"strings"
	"testing"
	"time"

	"i4.energy/across/ltelink/at"
)

func TestAwaitVerdict(t *testing.T) {
	t.Run("Success token split across polls", func(t *testing.T) {
		tr := NewTestTransport()
		tr.Inject("O")
		tr.Inject("K")

		out := awaitVerdict(context.Background(), tr, at.Result(at.OK), time.Second)
		if out.Kind != OutcomeSuccess {
			t.Fatalf("expected success, got %s", out.Kind)
		}
		if out.Token != at.OK {
			t.Errorf("expected token %q, got %q", at.OK, out.Token)
		}
		if out.Elapsed >= time.Second {
			t.Errorf("expected match before the deadline, took %s", out.Elapsed)
		}
	})

	t.Run("Error token has priority over success token", func(t *testing.T) {
		tr := NewTestTransport()
		tr.Inject("AT+CAOPEN=0,0\r\nERROR\r\nOK\r\n")

		out := awaitVerdict(context.Background(), tr, at.Result(at.SessionOpened, at.OK), time.Second)
		if out.Kind != OutcomeProtocolError {
			t.Fatalf("expected protocol error, got %s", out.Kind)
		}
		if out.Token != at.ERROR {
			t.Errorf("expected token %q, got %q", at.ERROR, out.Token)
		}
	})

	t.Run("Timeout when nothing matches", func(t *testing.T) {
		tr := NewTestTransport()
		tr.Inject("unrelated chatter")

		deadline := 30 * time.Millisecond
		out := awaitVerdict(context.Background(), tr, at.Result(at.OK), deadline)
		if out.Kind != OutcomeTimeout {
			t.Fatalf("expected timeout, got %s", out.Kind)
		}
		if out.Elapsed < deadline {
			t.Errorf("returned before the deadline: %s", out.Elapsed)
		}
	})

	t.Run("Token survives buffer trim", func(t *testing.T) {
		tr := NewTestTransport()
		// Flood well past the buffer cap, then deliver the token. The
		// trim must keep the newest window so the token still matches.
		for i := 0; i < 10; i++ {
			tr.Inject(strings.Repeat("x", 300))
		}
		tr.Inject("+CASTATE: 0,1\r\n")

		out := awaitVerdict(context.Background(), tr, at.Result(at.SessionUp), time.Second)
		if out.Kind != OutcomeSuccess {
			t.Fatalf("expected success after trim, got %s", out.Kind)
		}
	})

	t.Run("Token split across trim boundary", func(t *testing.T) {
		tr := NewTestTransport()
		// First half of the token arrives at the end of an oversized
		// window, the second half in the next poll.
		tr.Inject(strings.Repeat("x", matchBufferCap-6) + "SEND")
		tr.Inject(" OK\r\n")

		out := awaitVerdict(context.Background(), tr, at.SendResult, time.Second)
		if out.Kind != OutcomeSuccess {
			t.Fatalf("expected success, got %s", out.Kind)
		}
		if out.Token != at.SendOK {
			t.Errorf("expected token %q, got %q", at.SendOK, out.Token)
		}
	})

	t.Run("Cancelled context stops the wait", func(t *testing.T) {
		tr := NewTestTransport()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := awaitVerdict(ctx, tr, at.Result(at.OK), time.Minute)
		if out.Kind != OutcomeTimeout {
			t.Fatalf("expected timeout on cancellation, got %s", out.Kind)
		}
		if out.Elapsed > time.Second {
			t.Errorf("cancellation took too long: %s", out.Elapsed)
		}
	})

	t.Run("Success captures the response window", func(t *testing.T) {
		tr := NewTestTransport()
		tr.Inject("+CSQ: 17,99\r\nOK\r\n")

		out := awaitVerdict(context.Background(), tr, at.Result(at.OK), time.Second)
		if out.Kind != OutcomeSuccess {
			t.Fatalf("expected success, got %s", out.Kind)
		}
		if !strings.Contains(string(out.Response), "+CSQ: 17,99") {
			t.Errorf("expected captured response to contain the data line, got %q", out.Response)
		}
	})
}
