package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler multiplexes periodic callbacks for every room onto one ticker.
type Scheduler struct {
	resolution time.Duration

	mu    sync.Mutex
	seq   uint64
	tasks map[uint64]*task
}

type task struct {
	every   time.Duration
	next    time.Time
	fn      func(now time.Time)
	running atomic.Bool
	stopped atomic.Bool
}

// Handle cancels a scheduled callback.
type Handle struct {
	s  *Scheduler
	id uint64
	t  *task
}

// Cancel stops future invocations. Safe to call more than once.
func (h *Handle) Cancel() {
	if h == nil || h.s == nil {
		return
	}
	h.t.stopped.Store(true)
	h.s.mu.Lock()
	delete(h.s.tasks, h.id)
	h.s.mu.Unlock()
}

func NewScheduler(resolution time.Duration) *Scheduler {
	if resolution <= 0 {
		resolution = time.Second
	}
	return &Scheduler{
		resolution: resolution,
		tasks:      make(map[uint64]*task),
	}
}

func (s *Scheduler) Resolution() time.Duration { return s.resolution }

// Schedule runs fn every interval, first at now+interval.
func (s *Scheduler) Schedule(now time.Time, every time.Duration, fn func(now time.Time)) *Handle {
	if every < s.resolution {
		every = s.resolution
	}
	t := &task{every: every, next: now.Add(every), fn: fn}

	s.mu.Lock()
	s.seq++
	id := s.seq
	s.tasks[id] = t
	s.mu.Unlock()

	return &Handle{s: s, id: id, t: t}
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Run drives the ticker until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.fire(now, true)
		}
	}
}

// fire invokes every due task, each on its own goroutine when async. A task
// still running from the previous tick is skipped.
func (s *Scheduler) fire(now time.Time, async bool) {
	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if !now.Before(t.next) {
			due = append(due, t)
			for !now.Before(t.next) {
				t.next = t.next.Add(t.every)
			}
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		if !t.running.CompareAndSwap(false, true) {
			continue
		}
		run := func(t *task) {
			defer t.running.Store(false)
			if t.stopped.Load() {
				return
			}
			t.fn(now)
		}
		if async {
			go run(t)
		} else {
			run(t)
		}
	}
}
