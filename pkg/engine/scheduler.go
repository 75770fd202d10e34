package engine

import "time"

// scheduler owns the engine-wide period clock. Period n covers
// [epoch + n*duration, epoch + (n+1)*duration).
type scheduler struct {
	epoch    time.Time
	duration time.Duration
	// sealed is the first period that is still open; every period below it
	// has been closed.
	sealed int64
}

func newScheduler(epoch time.Time, duration time.Duration) *scheduler {
	return &scheduler{epoch: epoch, duration: duration}
}

// periodIndex floors (t - epoch) / duration, also for instants before the epoch.
func (s *scheduler) periodIndex(t time.Time) int64 {
	d := t.Sub(s.epoch)
	n := int64(d / s.duration)
	if d%s.duration < 0 {
		n--
	}
	return n
}

func (s *scheduler) periodStart(n int64) time.Time {
	return s.epoch.Add(time.Duration(n) * s.duration)
}

// span is the number of periods, fractional, from from to to. Zero when to
// does not come after from.
func (s *scheduler) span(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	return float64(to.Sub(from)) / float64(s.duration)
}

// elapsedPeriods counts whole boundaries crossed since lastClosed.
func (s *scheduler) elapsedPeriods(lastClosed int64, now time.Time) int64 {
	n := s.periodIndex(now) - lastClosed
	if n < 0 {
		return 0
	}
	return n
}

// sinceSealed is the fractional number of periods since the last sealed boundary.
func (s *scheduler) sinceSealed(now time.Time) float64 {
	return s.span(s.periodStart(s.sealed), now)
}
