package capture

import "time"

// fpsSampler counts rendered frames and publishes the count once per second.
type fpsSampler struct {
	frames      int
	windowStart time.Time
}

func (s *fpsSampler) reset(now time.Time) {
	s.frames = 0
	s.windowStart = now
}

// tick records one frame. It returns the frame count of the window that just closed.
func (s *fpsSampler) tick(now time.Time) (int, bool) {
	if s.windowStart.IsZero() {
		s.windowStart = now
	}
	s.frames++
	if now.Sub(s.windowStart) < time.Second {
		return 0, false
	}
	fps := s.frames
	s.reset(now)
	return fps, true
}
