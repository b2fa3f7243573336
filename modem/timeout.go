package modem

import (
	"time"

	"i4.energy/across/ltelink/at"
)

const (
	timeoutShort  = 2 * time.Second
	timeoutMedium = 3 * time.Second
	timeoutLong   = 5 * time.Second

	// Linear penalty added per consecutive failed exchange.
	failurePenalty = 500 * time.Millisecond

	// Absolute band bounding the worst-case blocking time of a command.
	timeoutMin = 2 * time.Second
	timeoutMax = 8 * time.Second
)

// AdaptiveTimeout derives a command deadline from the current signal
// state: a short base under strong signal, a long base under weak or
// unknown signal, plus a capped linear penalty per consecutive failure.
// The result always lies within [timeoutMin, timeoutMax].
//
// It is a pure function of the signal state and must be evaluated fresh
// for every command, since quality and failure count change between
// exchanges.
func AdaptiveTimeout(sig *SignalState) time.Duration {
	var base time.Duration
	switch q := sig.Quality(); {
	case q == at.QualityUnknown || q < 5:
		base = timeoutLong
	case q > 15:
		base = timeoutShort
	default:
		base = timeoutMedium
	}

	base += time.Duration(sig.Failures()) * failurePenalty

	if base > timeoutMax {
		base = timeoutMax
	}
	if base < timeoutMin {
		base = timeoutMin
	}
	return base
}
