package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is one unit of background work submitted to the pool.
type Task func(ctx context.Context) error

type job struct {
	name string
	task Task
	done chan error
}

// WorkerPool runs sync and summary tasks off the request path. Submissions
// return a result channel so callers can wait for the outcome or walk away;
// the pool makes no ordering promise between two tasks for the same user.
type WorkerPool struct {
	size   int
	jobs   chan job
	logger *logrus.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

func NewWorkerPool(size int, logger *logrus.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:   size,
		jobs:   make(chan job, size*4),
		logger: logger,
	}
}

func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.WithField("workers", p.size).Info("Worker pool started")
}

func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			err := j.task(ctx)
			if err != nil {
				p.logger.WithError(err).WithField("task", j.name).Error("Background task failed")
			}
			j.done <- err
			close(j.done)
		}
	}
}

// Submit enqueues a task and returns its result channel. If the queue is
// saturated and ctx expires first, the channel carries ctx.Err. Submit must
// not be called after Stop.
func (p *WorkerPool) Submit(ctx context.Context, name string, task Task) <-chan error {
	done := make(chan error, 1)

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		done <- context.Canceled
		close(done)
		return done
	}

	select {
	case p.jobs <- job{name: name, task: task, done: done}:
	case <-ctx.Done():
		done <- ctx.Err()
		close(done)
	}
	return done
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
}
