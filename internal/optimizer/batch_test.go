package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeBatch_KeepsOrderAndMatchesSequential(t *testing.T) {
	opt := New(DefaultConfig())
	book := syntheticBook(1.0, 10, 0.001, 10000)
	jobs := []Job{
		{ID: "a", Book: book, Target: 1000, Regime: domain.RegimeParameters{}},
		{ID: "b", Book: book, Target: 2000, Regime: domain.RegimeParameters{Volatility: 0.6}},
		{ID: "c", Book: book, Target: 300, Regime: domain.RegimeParameters{ExternalCorrelation: 0.9}},
		{ID: "d", Book: book, Target: 4500, Regime: domain.RegimeParameters{Volatility: 0.2, IsEcoAsset: true}},
	}

	results := opt.OptimizeBatch(context.Background(), jobs, 2, 100)
	require.Len(t, results, len(jobs))

	for i, r := range results {
		assert.Equal(t, jobs[i].ID, r.ID)
		require.NoError(t, r.Err)

		want, err := opt.Optimize(context.Background(), jobs[i].Book, jobs[i].Target, jobs[i].Regime, NewRand(100+uint64(i)))
		require.NoError(t, err)
		assert.Equal(t, want, r.Plan)
	}
}

func TestOptimizeBatch_ReportsPerJobErrors(t *testing.T) {
	opt := New(DefaultConfig())
	jobs := []Job{
		{ID: "ok", Book: syntheticBook(1.0, 5, 0.001, 1000), Target: 100},
		{ID: "bad", Book: domain.OrderBookSnapshot{}, Target: 100},
	}

	results := opt.OptimizeBatch(context.Background(), jobs, 0, 1)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.True(t, errors.Is(results[1].Err, domain.ErrInvalidOrderBook))
}

func TestOptimizeBatch_ProgressDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Progress = func(Progress) { t.Error("progress must not be called from a batch") }
	opt := New(cfg)

	results := opt.OptimizeBatch(context.Background(), []Job{
		{ID: "x", Book: syntheticBook(1.0, 5, 0.001, 1000), Target: 100},
	}, 1, 1)
	require.NoError(t, results[0].Err)
}
