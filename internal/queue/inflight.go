package queue

import (
	"sync"
	"time"
)

// InFlightSet tracks paths currently owned by a job. A path stays a member
// for the job's whole execution plus a short cooldown, so duplicate
// near-simultaneous events for the same file collapse into one job.
type InFlightSet struct {
	mu       sync.Mutex
	paths    map[string]struct{}
	cooldown time.Duration

	// after is swapped in tests to make cooldown release synchronous.
	after func(time.Duration, func()) *time.Timer
}

// NewInFlightSet returns an empty set with the given cooldown.
func NewInFlightSet(cooldown time.Duration) *InFlightSet {
	return &InFlightSet{
		paths:    make(map[string]struct{}),
		cooldown: cooldown,
		after:    time.AfterFunc,
	}
}

// TryAcquire marks path as in flight. It returns false when the path is
// already owned by another job or still cooling down.
func (s *InFlightSet) TryAcquire(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[path]; ok {
		return false
	}
	s.paths[path] = struct{}{}
	return true
}

// Contains reports whether path is currently in flight.
func (s *InFlightSet) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[path]
	return ok
}

// Release schedules removal of path after the cooldown elapses. The path
// keeps rejecting new jobs until then.
func (s *InFlightSet) Release(path string) {
	if s.cooldown <= 0 {
		s.remove(path)
		return
	}
	s.after(s.cooldown, func() { s.remove(path) })
}

func (s *InFlightSet) remove(path string) {
	s.mu.Lock()
	delete(s.paths, path)
	s.mu.Unlock()
}
