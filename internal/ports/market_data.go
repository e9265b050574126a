package ports

import (
	"context"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// MarketData supplies the inputs of one engine run: order book, pools,
// regime scalars, capital and target size. Values are expected to be
// already sanitised; the core only checks its own preconditions.
type MarketData interface {
	Snapshot(ctx context.Context) (domain.MarketSnapshot, error)
}
