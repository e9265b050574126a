// Package engine wires the market data source, the core optimizers and the
// outer collaborators (storage, reporting) into one run per CLI invocation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/alejandrodnm/allocengine/internal/optimizer"
	"github.com/alejandrodnm/allocengine/internal/ports"
)

// ErrNoStorage se devuelve cuando una operación necesita el run log y el
// engine corre en dry-run.
var ErrNoStorage = errors.New("storage disabled")

// PlacementOptimizer es lo que el engine necesita del optimizer.
type PlacementOptimizer interface {
	Optimize(ctx context.Context, book domain.OrderBookSnapshot, target float64, regime domain.RegimeParameters, rng optimizer.Rand) (domain.OrderPlan, error)
	OptimizeBatch(ctx context.Context, jobs []optimizer.Job, workers int, baseSeed uint64) []optimizer.BatchResult
}

// CapitalAllocator es lo que el engine necesita del allocator.
type CapitalAllocator interface {
	Allocate(ctx context.Context, capital float64, pools []domain.Pool, regime domain.RegimeParameters) (domain.Allocation, error)
}

// MonteCarlo es lo que el engine necesita del simulador.
type MonteCarlo interface {
	Run(ctx context.Context, capital float64, pools []domain.Pool, regime domain.RegimeParameters) (domain.SimulationSummary, error)
}

// Config contiene los ajustes del engine que no pertenecen al core.
type Config struct {
	BatchWorkers int    // <= 0: runtime.NumCPU()*2
	Seed         uint64 // semilla base de OptimizeBatch
}

// Engine ejecuta una operación por llamada. store puede ser nil (dry-run).
type Engine struct {
	cfg      Config
	market   ports.MarketData
	opt      PlacementOptimizer
	alloc    CapitalAllocator
	sim      MonteCarlo
	store    ports.Storage
	reporter ports.Reporter

	now   func() time.Time
	newID func() string
}

// New crea un Engine con todas las dependencias inyectadas.
func New(
	cfg Config,
	market ports.MarketData,
	opt PlacementOptimizer,
	alloc CapitalAllocator,
	sim MonteCarlo,
	store ports.Storage,
	reporter ports.Reporter,
) *Engine {
	return &Engine{
		cfg:      cfg,
		market:   market,
		opt:      opt,
		alloc:    alloc,
		sim:      sim,
		store:    store,
		reporter: reporter,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Optimize calcula el plan de órdenes para el book principal del snapshot.
func (e *Engine) Optimize(ctx context.Context) (string, domain.OrderPlan, error) {
	snap, err := e.market.Snapshot(ctx)
	if err != nil {
		return "", domain.OrderPlan{}, fmt.Errorf("engine.Optimize: snapshot: %w", err)
	}

	start := time.Now()
	plan, err := e.opt.Optimize(ctx, snap.Book, snap.Target, snap.Regime, nil)
	if err != nil {
		return "", domain.OrderPlan{}, fmt.Errorf("engine.Optimize: %w", err)
	}

	id := e.newID()
	slog.Info("order plan ready",
		"run", id,
		"orders", len(plan.Orders),
		"target", fmt.Sprintf("%.2f", plan.Target),
		"slippage", fmt.Sprintf("%.6f", plan.Slippage),
		"exec_prob", fmt.Sprintf("%.3f", plan.ExecutionProbability),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if e.store != nil {
		if err := e.store.SaveOrderPlan(ctx, id, plan); err != nil {
			slog.Warn("storage error", "run", id, "err", err)
		}
	}
	e.report(e.reporter.ReportOrders(ctx, plan))
	return id, plan, nil
}

// OptimizeBatch optimiza en paralelo todos los books extra del snapshot.
// Los jobs fallidos no abortan el batch; sus errores se devuelven unidos.
func (e *Engine) OptimizeBatch(ctx context.Context) ([]optimizer.BatchResult, error) {
	snap, err := e.market.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.OptimizeBatch: snapshot: %w", err)
	}
	if len(snap.Books) == 0 {
		return nil, fmt.Errorf("engine.OptimizeBatch: snapshot has no batch books")
	}

	jobs := make([]optimizer.Job, len(snap.Books))
	for i, b := range snap.Books {
		jobs[i] = optimizer.Job{ID: b.ID, Book: b.Book, Target: b.Target, Regime: snap.Regime}
	}

	start := time.Now()
	results := e.opt.OptimizeBatch(ctx, jobs, e.cfg.BatchWorkers, e.cfg.Seed)

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", r.ID, r.Err))
			continue
		}
		if e.store != nil {
			if err := e.store.SaveOrderPlan(ctx, e.newID(), r.Plan); err != nil {
				slog.Warn("storage error", "job", r.ID, "err", err)
			}
		}
		e.report(e.reporter.ReportOrders(ctx, r.Plan))
	}

	slog.Info("batch done",
		"jobs", len(jobs),
		"failed", len(errs),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	if len(errs) > 0 {
		return results, fmt.Errorf("engine.OptimizeBatch: %w", errors.Join(errs...))
	}
	return results, nil
}

// Allocate reparte el capital del snapshot entre sus pools.
func (e *Engine) Allocate(ctx context.Context) (domain.AllocationRecord, error) {
	snap, err := e.market.Snapshot(ctx)
	if err != nil {
		return domain.AllocationRecord{}, fmt.Errorf("engine.Allocate: snapshot: %w", err)
	}

	a, err := e.alloc.Allocate(ctx, snap.Capital, snap.Pools, snap.Regime)
	if err != nil {
		return domain.AllocationRecord{}, fmt.Errorf("engine.Allocate: %w", err)
	}

	rec := domain.AllocationRecord{
		ID:         e.newID(),
		CreatedAt:  e.now(),
		Regime:     snap.Regime,
		Allocation: a,
	}
	slog.Info("allocation ready",
		"run", rec.ID,
		"branch", a.Branch,
		"pools", len(a.Vector),
		"net_apy", fmt.Sprintf("%.4f", a.Projection.NetAPY),
		"sharpe", fmt.Sprintf("%.2f", a.Projection.SharpeRatio),
	)

	if e.store != nil {
		if err := e.store.SaveAllocation(ctx, rec); err != nil {
			slog.Warn("storage error", "run", rec.ID, "err", err)
		}
	}
	e.report(e.reporter.ReportAllocation(ctx, a))
	return rec, nil
}

// Simulate corre el Monte Carlo sobre el capital y los pools del snapshot.
func (e *Engine) Simulate(ctx context.Context) (string, domain.SimulationSummary, error) {
	snap, err := e.market.Snapshot(ctx)
	if err != nil {
		return "", domain.SimulationSummary{}, fmt.Errorf("engine.Simulate: snapshot: %w", err)
	}

	start := time.Now()
	sum, err := e.sim.Run(ctx, snap.Capital, snap.Pools, snap.Regime)
	if err != nil {
		return "", domain.SimulationSummary{}, fmt.Errorf("engine.Simulate: %w", err)
	}

	id := e.newID()
	slog.Info("simulation done",
		"run", id,
		"trials", sum.Trials,
		"mean", fmt.Sprintf("%.4f", sum.Mean),
		"success", fmt.Sprintf("%.2f", sum.SuccessRate),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if e.store != nil {
		if err := e.store.SaveSimulation(ctx, id, sum); err != nil {
			slog.Warn("storage error", "run", id, "err", err)
		}
	}
	e.report(e.reporter.ReportSimulation(ctx, sum))
	return id, sum, nil
}

// History devuelve y reporta las asignaciones guardadas en la ventana since.
func (e *Engine) History(ctx context.Context, since time.Duration) ([]domain.AllocationRecord, error) {
	if e.store == nil {
		return nil, fmt.Errorf("engine.History: %w", ErrNoStorage)
	}
	to := e.now()
	recs, err := e.store.GetAllocations(ctx, to.Add(-since), to)
	if err != nil {
		return nil, fmt.Errorf("engine.History: %w", err)
	}
	e.report(e.reporter.ReportHistory(ctx, recs))
	return recs, nil
}

func (e *Engine) report(err error) {
	if err != nil {
		slog.Warn("reporter error", "err", err)
	}
}

// LogProgress devuelve un callback de progreso para optimizer.Config que
// loguea como mucho una vez por interval.
func LogProgress(interval time.Duration) func(optimizer.Progress) {
	s := &rate.Sometimes{First: 1, Interval: interval}
	return func(p optimizer.Progress) {
		s.Do(func() {
			slog.Debug("optimizer progress",
				"iteration", p.Iteration,
				"temperature", fmt.Sprintf("%.4f", p.Temperature),
				"current", fmt.Sprintf("%.4f", p.CurrentScore),
				"best", fmt.Sprintf("%.4f", p.BestScore),
				"reheats", p.Reheats,
			)
		})
	}
}
