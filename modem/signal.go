package modem

import "i4.energy/across/ltelink/at"

// SignalState tracks the current radio signal quality and the number of
// consecutive failed command exchanges. It is read by the adaptive
// timeout policy and mutated by every command outcome; the failure
// counter is reset only by a successful exchange, never externally.
//
// All access happens from the single control loop that owns the modem,
// so no locking is required.
type SignalState struct {
	quality  int
	failures int
}

// NewSignalState returns a SignalState with unknown quality and no
// recorded failures.
func NewSignalState() *SignalState {
	return &SignalState{quality: at.QualityUnknown}
}

// Quality reports the last sampled signal quality, 0..31 or
// at.QualityUnknown.
func (s *SignalState) Quality() int {
	return s.quality
}

// SetQuality records a periodically sampled signal quality figure.
// Values outside 0..31 are stored as unknown.
func (s *SignalState) SetQuality(q int) {
	if q < 0 || q > 31 {
		q = at.QualityUnknown
	}
	s.quality = q
}

// Failures reports the current consecutive-failure count.
func (s *SignalState) Failures() int {
	return s.failures
}

func (s *SignalState) recordFailure() {
	s.failures++
}

func (s *SignalState) recordSuccess() {
	s.failures = 0
}
