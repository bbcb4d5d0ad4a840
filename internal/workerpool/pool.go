// Package workerpool runs tasks on a fixed number of worker loops fed by a
// bounded queue, or inline on the caller's goroutine.
package workerpool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("worker pool closed")

// Runner is what the dispatcher submits work to.
type Runner interface {
	// Submit hands a task to the runner. It may block while the queue is full.
	Submit(task func()) error
	// Close stops accepting tasks and returns once every accepted task ran.
	Close()
}

type Pool struct {
	tasks  chan func()
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
}

// NewPool starts size workers. The queue holds size pending tasks.
func NewPool(size int, logger *zap.Logger) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		tasks:  make(chan func(), size),
		logger: logger,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker(i)
	}
	return p, nil
}

func (p *Pool) Submit(task func()) error {
	if task == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	p.tasks <- task
	return nil
}

func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
}

// run keeps a panicking task from taking its worker down with it.
func (p *Pool) run(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker_task_panic",
				zap.Int("worker", id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	task()
}

// Inline runs each task to completion inside Submit, in submission order.
type Inline struct {
	mu     sync.Mutex
	closed bool
}

func NewInline() *Inline { return &Inline{} }

func (r *Inline) Submit(task func()) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if task != nil {
		task()
	}
	return nil
}

func (r *Inline) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
