package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher is a fixed worker pool for fire-and-forget background work.
// Callers enqueue typed closures; there is no lookup of handlers by name.
type Dispatcher struct {
	tasks   chan func(context.Context)
	wg      sync.WaitGroup
	logger  *zap.Logger
	timeout time.Duration

	closeOnce sync.Once
}

func NewDispatcher(workers, queueSize int, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		tasks:   make(chan func(context.Context), queueSize),
		logger:  logger,
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.workerLoop(i)
	}
	return d
}

func (d *Dispatcher) workerLoop(id int) {
	defer d.wg.Done()
	for task := range d.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		task(ctx)
		cancel()
	}
}

// Enqueue hands a task to the pool. When the queue is full the task is
// dropped with a warning; background work here is best-effort by contract.
func (d *Dispatcher) Enqueue(task func(context.Context)) {
	select {
	case d.tasks <- task:
	default:
		d.logger.Warn("dispatcher queue full, dropping task")
	}
}

// Close stops accepting tasks and drains the queue.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.tasks)
	})
	d.wg.Wait()
}
