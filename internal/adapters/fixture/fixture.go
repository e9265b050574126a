// Package fixture loads market snapshots from YAML files.
package fixture

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/alejandrodnm/allocengine/internal/simulation"
)

type fileYAML struct {
	Capital float64         `yaml:"capital"`
	Target  float64         `yaml:"target"`
	Regime  regimeYAML      `yaml:"regime"`
	Book    bookYAML        `yaml:"book"`
	Pools   []domain.Pool   `yaml:"pools"`
	Books   []namedBookYAML `yaml:"books"`
}

type regimeYAML struct {
	Volatility           float64  `yaml:"volatility"`
	ExternalCorrelation  float64  `yaml:"external_correlation"`
	ExternalMarketChange float64  `yaml:"external_market_change"`
	Sentiment            *float64 `yaml:"sentiment"`
	EcoAsset             bool     `yaml:"eco_asset"`
	ClawbackEnabled      bool     `yaml:"clawback_enabled"`
}

type bookYAML struct {
	MidPrice  float64             `yaml:"mid_price"`
	Bids      []domain.PriceLevel `yaml:"bids"`
	Asks      []domain.PriceLevel `yaml:"asks"`
	Synthetic *syntheticYAML      `yaml:"synthetic"`
}

type syntheticYAML struct {
	Mid    float64 `yaml:"mid"`
	Levels int     `yaml:"levels"`
	Tick   float64 `yaml:"tick"`
	Depth  float64 `yaml:"depth"`
}

type namedBookYAML struct {
	ID       string  `yaml:"id"`
	Target   float64 `yaml:"target"`
	bookYAML `yaml:",inline"`
}

// Source implementa ports.MarketData sobre un snapshot fijo.
type Source struct {
	snap domain.MarketSnapshot
}

// Load lee y valida el fixture en path.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture.Load: read %q: %w", path, err)
	}
	src, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture.Load: %s: %w", path, err)
	}
	return src, nil
}

// Parse decodifica un fixture YAML.
func Parse(data []byte) (*Source, error) {
	var f fileYAML
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	r := f.Regime
	if err := checkRange("volatility", r.Volatility, 0, 1); err != nil {
		return nil, err
	}
	if err := checkRange("external_correlation", r.ExternalCorrelation, 0, 1); err != nil {
		return nil, err
	}
	if err := checkRange("external_market_change", r.ExternalMarketChange, -1, 1); err != nil {
		return nil, err
	}
	regime := domain.RegimeParameters{
		Volatility:           r.Volatility,
		ExternalCorrelation:  r.ExternalCorrelation,
		ExternalMarketChange: r.ExternalMarketChange,
		IsEcoAsset:           r.EcoAsset,
		IsClawbackEnabled:    r.ClawbackEnabled,
	}
	if r.Sentiment != nil {
		if err := checkRange("sentiment", *r.Sentiment, 0, 1); err != nil {
			return nil, err
		}
		regime = regime.WithSentiment(*r.Sentiment)
	}

	snap := domain.MarketSnapshot{
		Book:    f.Book.snapshot(),
		Pools:   f.Pools,
		Regime:  regime,
		Capital: f.Capital,
		Target:  f.Target,
	}
	for i, b := range f.Books {
		id := b.ID
		if id == "" {
			id = fmt.Sprintf("book-%d", i+1)
		}
		target := b.Target
		if target == 0 {
			target = f.Target
		}
		snap.Books = append(snap.Books, domain.BookTarget{ID: id, Book: b.snapshot(), Target: target})
	}
	return &Source{snap: snap}, nil
}

// Snapshot devuelve una copia del snapshot cargado.
func (s *Source) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketSnapshot{}, err
	}
	snap := s.snap
	snap.Pools = append([]domain.Pool(nil), s.snap.Pools...)
	snap.Books = append([]domain.BookTarget(nil), s.snap.Books...)
	return snap, nil
}

func (b bookYAML) snapshot() domain.OrderBookSnapshot {
	if sy := b.Synthetic; sy != nil {
		mid := sy.Mid
		if mid == 0 {
			mid = 1
		}
		return simulation.SyntheticBook(mid, sy.Levels, sy.Tick, sy.Depth)
	}
	return domain.OrderBookSnapshot{MidPrice: b.MidPrice, Bids: b.Bids, Asks: b.Asks}
}

func checkRange(name string, v, lo, hi float64) error {
	if v < lo || v > hi || !domain.IsFinite(v) {
		return fmt.Errorf("%s %v outside [%v,%v]", name, v, lo, hi)
	}
	return nil
}
