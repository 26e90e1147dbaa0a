package domain

// Sequence is a resumable timed action stepped once per tick. It replaces
// frame-yielding coroutines: progress is carried as elapsed time instead of
// a suspended call stack.
type Sequence struct {
	duration float64
	elapsed  float64
	active   bool
	onStep   func(progress float64)
	onDone   func()
}

// Start begins a new run, discarding any run in flight without calling its
// completion. Non-positive durations complete on the first Step.
func (s *Sequence) Start(duration float64, onStep func(progress float64), onDone func()) {
	s.duration = duration
	s.elapsed = 0
	s.active = true
	s.onStep = onStep
	s.onDone = onDone
}

// Step advances the run by dt and reports whether it finished on this call.
// Inactive sequences do nothing.
func (s *Sequence) Step(dt float64) bool {
	if !s.active {
		return false
	}
	if dt > 0 {
		s.elapsed += dt
	}
	progress := 1.0
	if s.duration > 0 && s.elapsed < s.duration {
		progress = s.elapsed / s.duration
	}
	if s.onStep != nil {
		s.onStep(progress)
	}
	if progress < 1 {
		return false
	}
	done := s.onDone
	s.Stop()
	if done != nil {
		done()
	}
	return true
}

// Stop cancels the run without calling its completion. Safe to call repeatedly.
func (s *Sequence) Stop() {
	s.active = false
	s.onStep = nil
	s.onDone = nil
}

func (s *Sequence) Active() bool { return s.active }

// Progress returns the fraction completed in [0,1]; zero when inactive.
func (s *Sequence) Progress() float64 {
	if !s.active {
		return 0
	}
	if s.duration <= 0 || s.elapsed >= s.duration {
		return 1
	}
	return s.elapsed / s.duration
}

// Remaining returns the time left in the run; zero when inactive.
func (s *Sequence) Remaining() float64 {
	if !s.active || s.elapsed >= s.duration {
		return 0
	}
	return s.duration - s.elapsed
}
