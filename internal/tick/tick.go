// Package tick provides the scan-due flag and the periodic source that raises it.
package tick

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultPeriod is 36 counts of a 16 MHz clock prescaled by 1024.
const DefaultPeriod = 2304 * time.Microsecond

// Flag is a one-slot scan-due flag. At most one pending tick is remembered;
// raising an already raised flag drops the tick.
type Flag struct {
	c chan struct{}
}

// NewFlag returns a lowered flag.
func NewFlag() *Flag {
	return &Flag{c: make(chan struct{}, 1)}
}

// Raise sets the flag. It never blocks and returns false if the flag was
// already set.
func (f *Flag) Raise() bool {
	select {
	case f.c <- struct{}{}:
		return true
	default:
		return false
	}
}

// C returns the channel that delivers the flag. A receive observes and
// clears it in one step.
func (f *Flag) C() <-chan struct{} {
	return f.c
}

// Source raises a Flag at a fixed period.
type Source struct {
	period  time.Duration
	flag    *Flag
	raised  atomic.Uint64
	dropped atomic.Uint64
}

// NewSource creates a source raising flag every period.
func NewSource(period time.Duration, flag *Flag) *Source {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Source{period: period, flag: flag}
}

// Run raises the flag on every tick until ctx is cancelled.
func (s *Source) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Fire()
		}
	}
}

// Fire raises the flag once, counting the tick as dropped if one was
// already pending.
func (s *Source) Fire() {
	if s.flag.Raise() {
		s.raised.Add(1)
	} else {
		s.dropped.Add(1)
	}
}

// Period returns the tick period.
func (s *Source) Period() time.Duration {
	return s.period
}

// Raised returns the number of ticks delivered to the flag.
func (s *Source) Raised() uint64 {
	return s.raised.Load()
}

// Dropped returns the number of ticks lost because the previous one was
// still pending.
func (s *Source) Dropped() uint64 {
	return s.dropped.Load()
}
