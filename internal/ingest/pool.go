// Package ingest orchestrates one ingestion job: extraction from the tenant's sources,
// normalization, and loading through the data layer.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrPoolSaturated is returned when the extraction pool's queue is full. Callers surface it as
// backpressure instead of queueing unboundedly.
var ErrPoolSaturated = errors.New("extraction pool is saturated")

// ExtractionTask is one blocking extraction call (warehouse query, snapshot download).
type ExtractionTask func(ctx context.Context) error

type poolTask struct {
	run  ExtractionTask
	done chan error
}

// ExtractionPool bounds the number of concurrently running extraction calls so bursts of jobs
// cannot exhaust connections to the external sources. Status updates and database loads stay on
// the caller's goroutine; only the blocking extraction runs inside the pool.
type ExtractionPool struct {
	tasks     chan poolTask
	workers   int
	startOnce sync.Once
	wg        sync.WaitGroup
}

// DefaultExtractionWorkerCount and DefaultExtractionQueueDepth are the defaults used when the
// configuration does not set explicit values.
const (
	DefaultExtractionWorkerCount = 2
	DefaultExtractionQueueDepth  = 8
)

func NewExtractionPool(workers, queueDepth int) (*ExtractionPool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("extraction pool worker count must be positive, got %d", workers)
	}
	if queueDepth < 0 {
		return nil, fmt.Errorf("extraction pool queue depth cannot be negative, got %d", queueDepth)
	}

	return &ExtractionPool{
		tasks:   make(chan poolTask, queueDepth),
		workers: workers,
	}, nil
}

// Start launches the pool workers. They run until ctx is canceled.
func (p *ExtractionPool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 1; i <= p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx, i)
		}
	})
}

func (p *ExtractionPool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			task.done <- p.runTask(ctx, task.run)
		case <-ctx.Done():
			log.WithContext(ctx).Infof("Extraction worker %d stopping...", workerID)
			return
		}
	}
}

func (p *ExtractionPool) runTask(ctx context.Context, task ExtractionTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// Execute submits a task and waits for its result. If the queue is full the task is rejected
// with ErrPoolSaturated. A canceled context abandons the wait but the task itself may still run
// to completion on its worker.
func (p *ExtractionPool) Execute(ctx context.Context, task ExtractionTask) error {
	pt := poolTask{run: task, done: make(chan error, 1)}

	select {
	case p.tasks <- pt:
	default:
		return ErrPoolSaturated
	}

	select {
	case err := <-pt.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until all workers have stopped. Call after canceling the context passed to Start.
func (p *ExtractionPool) Wait() {
	p.wg.Wait()
}
