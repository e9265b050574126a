package optimizer

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// Job is one independent placement problem.
type Job struct {
	ID     string
	Book   domain.OrderBookSnapshot
	Target float64
	Regime domain.RegimeParameters
}

// BatchResult pairs a job with its plan or error.
type BatchResult struct {
	ID   string
	Plan domain.OrderPlan
	Err  error
}

// OptimizeBatch optimizes independent jobs on a worker pool. Each job gets
// its own source seeded baseSeed+index, so results do not depend on
// scheduling. Results keep the order of jobs.
//
// If workers <= 0 it uses runtime.NumCPU() × 2.
func (o *Optimizer) OptimizeBatch(ctx context.Context, jobs []Job, workers int, baseSeed uint64) []BatchResult {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	// Progress callbacks are per-call state; a batch would invoke them concurrently.
	worker := &Optimizer{cfg: o.cfg}
	worker.cfg.Progress = nil

	results := make([]BatchResult, len(jobs))
	workCh := make(chan int, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				j := jobs[idx]
				plan, err := worker.Optimize(ctx, j.Book, j.Target, j.Regime, NewRand(baseSeed+uint64(idx)))
				if err != nil {
					slog.Debug("optimize failed", "job", j.ID, "err", err)
				}
				results[idx] = BatchResult{ID: j.ID, Plan: plan, Err: err}
			}
		}()
	}

	for i := range jobs {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	slog.Debug("batch optimization complete", "jobs", len(jobs), "workers", workers)
	return results
}
