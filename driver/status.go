package driver

import "github.com/inputbridge/kmf"

// Observe returns a point-in-time copy of the loop's observable status,
// safe to call from a host UI goroutine concurrently with Run.
func (l *Loop) Observe() kmf.MasterStatus {
	return l.status.Snapshot()
}

// Stop clears the running flag from outside the loop goroutine — the next
// tick or event will cause Run to return and ungrab any grabbed device.
func (l *Loop) Stop() {
	l.running.Store(false)
}
