package Execution

import "time"

// Clock supplies the engine's notion of "now" so timing invariants are
// deterministic under test. All timestamps are UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns the wall-clock backed Clock used in production.
func SystemClock() Clock {
	return systemClock{}
}
