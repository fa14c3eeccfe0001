package auth

import "time"

// Clock is the time source used when stamping and verifying tokens.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

var _ Clock = RealClock{}
