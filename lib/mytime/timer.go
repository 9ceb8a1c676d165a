package mytime

import "time"

// Stopper cancels a scheduled callback. Stop reports whether the callback was
// still pending.
type Stopper interface {
	Stop() bool
}

// Timer schedules a callback to run once after a delay.
type Timer interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type RealTimer struct{}

func (t RealTimer) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}
