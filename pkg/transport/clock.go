package transport

import "time"

// Timer is a pending callback scheduled by a Clock.
type Timer interface {
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
