package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/nxdesk/sla-service/internal/service"
)

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("worker: pool stopped")

// StartNotificationWorker starts the pool and routes notification deliveries through it.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, pool *Pool) {
	if notificationService == nil {
		return
	}
	if pool != nil {
		pool.Start(ctx)
		notificationService.UseAsync(pool.Submit)
	}
	notificationService.RegisterHandlers()
}

// Job is a unit of background work.
type Job = func(ctx context.Context) error

type task struct {
	name string
	job  Job
}

// Pool runs submitted jobs on a fixed number of goroutines.
type Pool struct {
	size   int
	queue  chan task
	logger *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewPool builds a pool with size workers and a bounded queue.
func NewPool(size, queueSize int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{size: size, queue: make(chan task, queueSize), logger: logger}
}

// Start launches the workers. Jobs receive a context cancelled by Stop.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

// Submit enqueues a job without blocking and fails when the queue is full.
func (p *Pool) Submit(name string, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task{name: name, job: job}:
		return nil
	default:
		p.logger.Warn("worker queue full; dropping job", zap.String("job", name))
		return errors.New("worker: queue full")
	}
}

// Stop drains queued jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for t := range p.queue {
		if err := t.job(ctx); err != nil {
			p.logger.Warn("background job failed", zap.String("job", t.name), zap.Error(err))
		}
	}
}
