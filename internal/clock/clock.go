// Package clock supplies the wall-clock source used to stamp orders and
// trades. Time is read once per operation via Now(); timestamps are
// informational only, since matching priority follows insertion
// sequence and never compares timestamps.
package clock

import "time"

// Clock yields the current instant. Production code uses Real; tests can
// substitute a Sequence clock to pin timestamps deterministically,
// the way the teacher zeroed out ExchTimestamp in orderbook_test.go.
type Clock interface {
	Now() time.Time
}

// realClock reads the actual system clock, in UTC with nanosecond
// granularity, for serialization (spec.md §6). Go's time.Now() carries a
// monotonic reading alongside the wall clock, but UTC() strips it, so
// Now returns wall-clock time only; successive values are not guaranteed
// to be non-decreasing if the system clock is set backwards.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Real is the default production clock.
var Real Clock = realClock{}

// Sequence is a deterministic test clock that advances by one
// nanosecond on every call, guaranteeing strictly increasing timestamps
// without depending on wall-clock resolution.
type Sequence struct {
	base time.Time
	n    int64
}

// NewSequence returns a Sequence clock starting at base.
func NewSequence(base time.Time) *Sequence {
	return &Sequence{base: base.UTC()}
}

// Now returns the next instant in the sequence.
func (s *Sequence) Now() time.Time {
	t := s.base.Add(time.Duration(s.n))
	s.n++
	return t
}
