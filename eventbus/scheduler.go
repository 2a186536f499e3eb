// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package eventbus implements the cooperative timer the node uses for
// bounce resend delay, the DKG completion budget, and scheduled retries
// (spec §5, §9 "Coroutines/async"). Grounded on the teacher's
// networking/timeout.Manager (RegisterRequest/RemoveRequest) shape,
// generalized from request-timeout bookkeeping to a general delayed-task
// scheduler with cancellation.
package eventbus

import (
	"sync"
	"time"
)

// TaskID identifies one scheduled task so it can be cancelled before it
// fires.
type TaskID uint64

// Scheduler runs callbacks after a delay on its own goroutine per task,
// and lets callers cancel a pending task before it fires. It is the single
// owner of node timers (spec §5 "Shared resources... Timers are owned by
// one scheduler").
type Scheduler struct {
	mu      sync.Mutex
	nextID  TaskID
	pending map[TaskID]*time.Timer
	stopped bool
}

// New returns an empty, running Scheduler.
func New() *Scheduler {
	return &Scheduler{pending: make(map[TaskID]*time.Timer)}
}

// After schedules fn to run after delay elapses. It returns a TaskID that
// Cancel can use to stop fn from running, provided it has not fired yet.
// A delay of zero still completes asynchronously, never inline.
func (s *Scheduler) After(delay time.Duration, fn func()) TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	if s.stopped {
		return id
	}

	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		_, stillPending := s.pending[id]
		delete(s.pending, id)
		stopped := s.stopped
		s.mu.Unlock()
		if stillPending && !stopped {
			fn()
		}
	})
	s.pending[id] = timer
	return id
}

// Cancel stops the task identified by id if it has not already fired.
// Cancelling an unknown or already-fired id is a no-op.
func (s *Scheduler) Cancel(id TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.pending[id]
	if !ok {
		return
	}
	timer.Stop()
	delete(s.pending, id)
}

// Pending reports how many tasks are currently scheduled but not yet
// fired or cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending task and prevents new ones from running
// their callback (spec §5 "Cancellation": a terminated node's in-flight
// tasks observe the signal at their next suspension point). After Stop,
// After still accepts calls and returns distinct IDs but callbacks never
// run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.pending {
		timer.Stop()
		delete(s.pending, id)
	}
	s.stopped = true
}
