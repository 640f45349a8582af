package kmf

import "time"

// AdaptivePoll is an exponential back-off sleep utility. Neither the driver
// loop (which uses a fixed ticker at DriverPoll) nor the slave's receive
// loop (which uses a fixed read deadline) uses it.
type AdaptivePoll struct {
	Cur    time.Duration
	Fast   time.Duration
	Steady time.Duration
	skip   bool
}

// NewAdaptivePoll builds a poller initialized to the fast interval.
func NewAdaptivePoll(fast, steady time.Duration) *AdaptivePoll {
	if fast <= 0 {
		fast = DefaultDriverPoll
	}
	if steady < fast {
		steady = fast
	}
	return &AdaptivePoll{Cur: fast, Fast: fast, Steady: steady}
}

// Sleep waits for the current interval, then backs off exponentially
// toward Steady.
func (p *AdaptivePoll) Sleep() {
	if p.skip {
		p.skip = false
		return
	}
	time.Sleep(p.Cur)
	if p.Cur < p.Steady {
		p.Cur *= 2
		if p.Cur > p.Steady {
			p.Cur = p.Steady
		}
	}
}

// Reset moves the current interval back to the fast value, used after any
// event activity so the next poll after a burst is not delayed by prior
// back-off.
func (p *AdaptivePoll) Reset() {
	p.Cur = p.Fast
	p.skip = true
}
