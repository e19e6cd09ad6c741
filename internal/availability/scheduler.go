package availability

import "time"

// Timer is a pending deferred call.
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was still pending.
	Stop() bool
}

// Scheduler arms deferred calls.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// RealScheduler schedules calls on the runtime timer.
var RealScheduler Scheduler = realScheduler{}

// debouncer owns the single pending timer of a field.
type debouncer struct {
	scheduler Scheduler
	delay     time.Duration
	pending   Timer
}

// schedule cancels any pending call before arming fn.
func (d *debouncer) schedule(fn func()) {
	d.cancel()
	d.pending = d.scheduler.AfterFunc(d.delay, fn)
}

func (d *debouncer) cancel() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
