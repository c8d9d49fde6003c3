package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler runs a background task at a fixed interval until stopped
type Scheduler struct {
	interval time.Duration
	task     func()
	clock    clock.Clock
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// Option is a functional option for configuring Scheduler
type Option func(*Scheduler)

// WithClock sets the time source driving the ticker
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// New creates a new Scheduler instance
func New(interval time.Duration, task func(), opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		task:     task,
		clock:    clock.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the ticking goroutine. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	ticker := s.clock.Ticker(s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.task()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the ticking goroutine and waits for it to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
