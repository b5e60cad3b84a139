package execution

import "sync"

// Scheduler picks the worker lane that delivers a test's events
type Scheduler interface {
	Assign(key string, workerIndex, lanes int) int
}

// RoundRobinScheduler keeps every attempt of a test on one lane so its
// callbacks stay ordered. A test first lands on its engine worker's lane;
// tests without a worker index are spread across lanes in turn.
type RoundRobinScheduler struct {
	mu       sync.Mutex
	next     int
	assigned map[string]int
}

// NewRoundRobinScheduler creates a new RoundRobinScheduler
func NewRoundRobinScheduler() *RoundRobinScheduler {
	return &RoundRobinScheduler{assigned: make(map[string]int)}
}

// Assign returns the lane for key
func (s *RoundRobinScheduler) Assign(key string, workerIndex, lanes int) int {
	if lanes <= 0 {
		lanes = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lane, ok := s.assigned[key]; ok && lane < lanes {
		return lane
	}

	var lane int
	if workerIndex >= 0 {
		lane = workerIndex % lanes
	} else {
		lane = s.next % lanes
		s.next++
	}
	s.assigned[key] = lane
	return lane
}
