// Package tracking runs per-user background location re-logging.
package tracking

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// RunFunc is invoked on every tick of a user's task.
type RunFunc func(ctx context.Context, userID string)

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler keeps at most one periodic task per user.
type Scheduler struct {
	interval time.Duration
	run      RunFunc
	logger   *slog.Logger

	mu    sync.Mutex
	tasks map[string]*task
	wg    sync.WaitGroup
}

// NewScheduler constructs a scheduler that calls run every interval for each started user.
func NewScheduler(interval time.Duration, run RunFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		interval: interval,
		run:      run,
		logger:   logger,
		tasks:    make(map[string]*task),
	}
}

// Start begins the user's task. It returns false if one is already running.
func (s *Scheduler) Start(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[userID]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[userID] = t

	s.wg.Add(1)
	go s.loop(ctx, userID, t)

	s.logger.Info("tracking task started", "user", userID, "interval", s.interval)
	return true
}

// Stop ends the user's task and waits for it to exit. It returns false if none was running.
func (s *Scheduler) Stop(userID string) bool {
	s.mu.Lock()
	t, ok := s.tasks[userID]
	delete(s.tasks, userID)
	s.mu.Unlock()

	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	s.logger.Info("tracking task stopped", "user", userID)
	return true
}

// StopAll ends every task and waits for them to exit.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	s.wg.Wait()
	if len(tasks) > 0 {
		s.logger.Info("tracking tasks stopped", "count", len(tasks))
	}
}

// Running reports whether the user has an active task.
func (s *Scheduler) Running(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[userID]
	return ok
}

// Users returns the sorted ids with active tasks.
func (s *Scheduler) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Scheduler) loop(ctx context.Context, userID string, t *task) {
	defer s.wg.Done()
	defer close(t.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeRun(ctx, userID)
		}
	}
}

func (s *Scheduler) safeRun(ctx context.Context, userID string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tracking task panic", "user", userID, "panic", r)
		}
	}()
	s.run(ctx, userID)
}
