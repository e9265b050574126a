package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/allocengine/internal/allocator"
	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/alejandrodnm/allocengine/internal/optimizer"
	"github.com/alejandrodnm/allocengine/internal/simulation"
)

// --- fakes ---

type fakeMarket struct {
	snap domain.MarketSnapshot
	err  error
}

func (f *fakeMarket) Snapshot(context.Context) (domain.MarketSnapshot, error) { return f.snap, f.err }

type fakeStore struct {
	plans   map[string]domain.OrderPlan
	allocs  []domain.AllocationRecord
	sims    map[string]domain.SimulationSummary
	from    time.Time
	to      time.Time
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{plans: map[string]domain.OrderPlan{}, sims: map[string]domain.SimulationSummary{}}
}

func (s *fakeStore) SaveOrderPlan(_ context.Context, id string, p domain.OrderPlan) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.plans[id] = p
	return nil
}

func (s *fakeStore) SaveAllocation(_ context.Context, rec domain.AllocationRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.allocs = append(s.allocs, rec)
	return nil
}

func (s *fakeStore) SaveSimulation(_ context.Context, id string, sum domain.SimulationSummary) error {
	s.sims[id] = sum
	return nil
}

func (s *fakeStore) GetAllocations(_ context.Context, from, to time.Time) ([]domain.AllocationRecord, error) {
	s.from, s.to = from, to
	return s.allocs, nil
}

func (s *fakeStore) Close() error { return nil }

type fakeReporter struct {
	orders  int
	allocs  int
	sims    int
	history int
	err     error
}

func (r *fakeReporter) ReportOrders(context.Context, domain.OrderPlan) error {
	r.orders++
	return r.err
}

func (r *fakeReporter) ReportAllocation(context.Context, domain.Allocation) error {
	r.allocs++
	return r.err
}

func (r *fakeReporter) ReportSimulation(context.Context, domain.SimulationSummary) error {
	r.sims++
	return r.err
}

func (r *fakeReporter) ReportHistory(context.Context, []domain.AllocationRecord) error {
	r.history++
	return r.err
}

// --- helpers ---

func testBook(mid float64) domain.OrderBookSnapshot {
	var bids, asks []domain.PriceLevel
	for i := 1; i <= 5; i++ {
		step := float64(i) * 0.001 * mid
		bids = append(bids, domain.PriceLevel{Price: mid - step, Amount: 2000})
		asks = append(asks, domain.PriceLevel{Price: mid + step, Amount: 2000})
	}
	return domain.OrderBookSnapshot{MidPrice: mid, Bids: bids, Asks: asks}
}

func testSnapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Book:    testBook(1.0),
		Capital: 10000,
		Target:  500,
		Regime:  domain.RegimeParameters{Volatility: 0.3, ExternalCorrelation: 0.2},
		Pools: []domain.Pool{
			{Name: "XRP/RLUSD", APY: 0.45, IsStable: true, IsEco: true},
			{Name: "SOLO/XRP", APY: 0.65, CorrelationWithReference: 0.8},
			{Name: "CORE/XRP", APY: 0.30},
		},
		Books: []domain.BookTarget{
			{ID: "a", Book: testBook(0.5), Target: 200},
			{ID: "b", Book: testBook(2.0), Target: 300},
		},
	}
}

func newTestEngine(market *fakeMarket, store *fakeStore, rep *fakeReporter) *Engine {
	opt := optimizer.New(optimizer.Config{MaxIterations: 200, Seed: 7})
	alloc := allocator.New(allocator.DefaultConfig())
	sim := simulation.New(simulation.Config{Trials: 4, Days: 5, Workers: 2, Seed: 1}, alloc, nil)

	e := New(Config{BatchWorkers: 2, Seed: 11}, market, opt, alloc, sim, nil, rep)
	if store != nil {
		e.store = store
	}
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

// --- tests ---

func TestEngine_Optimize(t *testing.T) {
	store, rep := newFakeStore(), &fakeReporter{}
	e := newTestEngine(&fakeMarket{snap: testSnapshot()}, store, rep)

	id, plan, err := e.Optimize(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.InDelta(t, 500.0, plan.Orders.TotalAmount(), 0.01)
	assert.Equal(t, plan, store.plans[id])
	assert.Equal(t, 1, rep.orders)
}

func TestEngine_Optimize_SnapshotError(t *testing.T) {
	rep := &fakeReporter{}
	e := newTestEngine(&fakeMarket{err: errors.New("boom")}, newFakeStore(), rep)

	_, _, err := e.Optimize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0, rep.orders)
}

func TestEngine_Optimize_CoreErrorWrapped(t *testing.T) {
	snap := testSnapshot()
	snap.Target = 0
	e := newTestEngine(&fakeMarket{snap: snap}, nil, &fakeReporter{})

	_, _, err := e.Optimize(context.Background())
	assert.True(t, errors.Is(err, domain.ErrInvalidAmount), "got %v", err)
}

func TestEngine_StorageAndReporterErrorsAreNotFatal(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("disk full")
	rep := &fakeReporter{err: errors.New("closed pipe")}
	e := newTestEngine(&fakeMarket{snap: testSnapshot()}, store, rep)

	_, _, err := e.Optimize(context.Background())
	require.NoError(t, err)
	_, err = e.Allocate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.plans)
	assert.Equal(t, 1, rep.allocs)
}

func TestEngine_OptimizeBatch(t *testing.T) {
	store, rep := newFakeStore(), &fakeReporter{}
	e := newTestEngine(&fakeMarket{snap: testSnapshot()}, store, rep)

	results, err := e.OptimizeBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.InDelta(t, 200.0, results[0].Plan.Orders.TotalAmount(), 0.01)
	assert.InDelta(t, 300.0, results[1].Plan.Orders.TotalAmount(), 0.01)
	assert.Len(t, store.plans, 2)
	assert.Equal(t, 2, rep.orders)
}

func TestEngine_OptimizeBatch_PartialFailure(t *testing.T) {
	snap := testSnapshot()
	snap.Books[1].Book = domain.OrderBookSnapshot{}
	rep := &fakeReporter{}
	e := newTestEngine(&fakeMarket{snap: snap}, nil, rep)

	results, err := e.OptimizeBatch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidOrderBook))
	assert.Contains(t, err.Error(), "job b")
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, rep.orders)
}

func TestEngine_OptimizeBatch_NoBooks(t *testing.T) {
	snap := testSnapshot()
	snap.Books = nil
	e := newTestEngine(&fakeMarket{snap: snap}, nil, &fakeReporter{})

	_, err := e.OptimizeBatch(context.Background())
	assert.Error(t, err)
}

func TestEngine_Allocate(t *testing.T) {
	store, rep := newFakeStore(), &fakeReporter{}
	e := newTestEngine(&fakeMarket{snap: testSnapshot()}, store, rep)

	rec, err := e.Allocate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, e.now(), rec.CreatedAt)
	assert.Equal(t, domain.BranchBalanced, rec.Allocation.Branch)
	assert.InDelta(t, 1.0, rec.Allocation.Vector.TotalWeight(), domain.WeightEpsilon)
	assert.InDelta(t, 10000.0, rec.Allocation.Vector.TotalAmount(), 0.01)
	require.Len(t, store.allocs, 1)
	assert.Equal(t, rec.ID, store.allocs[0].ID)
	assert.Equal(t, 1, rep.allocs)
}

func TestEngine_Allocate_DryRun(t *testing.T) {
	rep := &fakeReporter{}
	e := newTestEngine(&fakeMarket{snap: testSnapshot()}, nil, rep)

	_, err := e.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.allocs)
}

func TestEngine_Simulate(t *testing.T) {
	store, rep := newFakeStore(), &fakeReporter{}
	e := newTestEngine(&fakeMarket{snap: testSnapshot()}, store, rep)

	id, sum, err := e.Simulate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Trials)
	assert.Equal(t, 5, sum.Days)
	assert.Contains(t, store.sims, id)
	assert.Equal(t, 1, rep.sims)
}

func TestEngine_History(t *testing.T) {
	store, rep := newFakeStore(), &fakeReporter{}
	e := newTestEngine(&fakeMarket{snap: testSnapshot()}, store, rep)

	for i := 0; i < 3; i++ {
		_, err := e.Allocate(context.Background())
		require.NoError(t, err, fmt.Sprintf("allocate %d", i))
	}

	recs, err := e.History(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, e.now(), store.to)
	assert.Equal(t, e.now().Add(-24*time.Hour), store.from)
	assert.Equal(t, 1, rep.history)
}

func TestEngine_History_NoStorage(t *testing.T) {
	e := newTestEngine(&fakeMarket{snap: testSnapshot()}, nil, &fakeReporter{})
	_, err := e.History(context.Background(), time.Hour)
	assert.True(t, errors.Is(err, ErrNoStorage))
}

func TestLogProgress_Throttled(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	cb := LogProgress(time.Hour)
	for i := 0; i < 100; i++ {
		cb(optimizer.Progress{Iteration: i})
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "optimizer progress"))
}
