package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/quantlab/strategy-backtest/internal/config"
	"github.com/quantlab/strategy-backtest/internal/risk"
	"github.com/quantlab/strategy-backtest/internal/signal"
	"github.com/quantlab/strategy-backtest/pkg/types"
)

// workerPool fans independent simulator invocations out across
// goroutines. Each job builds its own Engine and owns its own state, so
// jobs share nothing but the read-only bar data; the result channel is
// the only synchronization point.
type workerPool struct {
	workerCount int
	jobQueue    chan simJob
	resultQueue chan simResult
	wg          sync.WaitGroup
}

// simJob is one independent simulator invocation.
type simJob struct {
	ID        int
	Cfg       config.Config
	Series    map[string][]types.Bar
	Predictor signal.Predictor
	Mapper    signal.Mapper
	Sizer     risk.Sizer
}

// simResult is the outcome of one job.
type simResult struct {
	ID       int
	Result   *Result
	Err      error
	Duration time.Duration
}

func newWorkerPool(workerCount, bufferSize int) *workerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &workerPool{
		workerCount: workerCount,
		jobQueue:    make(chan simJob, bufferSize),
		resultQueue: make(chan simResult, bufferSize),
	}
}

func (wp *workerPool) start(ctx context.Context) {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

func (wp *workerPool) stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

func (wp *workerPool) submit(ctx context.Context, job simJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *workerPool) results() <-chan simResult {
	return wp.resultQueue
}

func (wp *workerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			started := time.Now()
			opts := []Option{}
			if job.Sizer != nil {
				opts = append(opts, WithSizer(job.Sizer))
			}
			result, err := NewEngine(job.Cfg, job.Predictor, job.Mapper, opts...).Run(ctx, job.Series)

			select {
			case wp.resultQueue <- simResult{ID: job.ID, Result: result, Err: err, Duration: time.Since(started)}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// runJobs executes the given jobs on a pool and returns results indexed
// by job ID, so callers get a deterministic view no matter which worker
// finished first.
func runJobs(ctx context.Context, workers int, jobs []simJob) ([]simResult, error) {
	pool := newWorkerPool(workers, len(jobs))
	pool.start(ctx)

	submitErr := func() error {
		for _, job := range jobs {
			if err := pool.submit(ctx, job); err != nil {
				return err
			}
		}
		return nil
	}()

	go pool.stop()

	byID := make([]simResult, len(jobs))
	for res := range pool.results() {
		if res.ID >= 0 && res.ID < len(byID) {
			byID[res.ID] = res
		}
	}

	if submitErr != nil {
		return byID, submitErr
	}
	if err := ctx.Err(); err != nil {
		return byID, err
	}
	return byID, nil
}
