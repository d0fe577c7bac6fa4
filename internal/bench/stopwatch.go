package bench

import "time"

// stopwatch measures a span while leaving out time spent in excluded calls,
// such as notifying a presentation sink mid-run.
type stopwatch struct {
	now      func() time.Time
	start    time.Time
	excluded time.Duration
}

func startStopwatch(now func() time.Time) *stopwatch {
	return &stopwatch{now: now, start: now()}
}

func (s *stopwatch) exclude(fn func()) {
	t := s.now()
	fn()
	s.excluded += s.now().Sub(t)
}

func (s *stopwatch) stop() time.Duration {
	d := s.now().Sub(s.start) - s.excluded
	if d < 0 {
		return 0
	}
	return d
}
