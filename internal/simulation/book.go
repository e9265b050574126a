package simulation

import "github.com/alejandrodnm/allocengine/internal/domain"

// SyntheticBook builds a symmetric book around mid: levels per side, each
// tick*mid apart and holding depth.
func SyntheticBook(mid float64, levels int, tick, depth float64) domain.OrderBookSnapshot {
	book := domain.OrderBookSnapshot{
		MidPrice: mid,
		Bids:     make([]domain.PriceLevel, 0, levels),
		Asks:     make([]domain.PriceLevel, 0, levels),
	}
	for i := 1; i <= levels; i++ {
		off := float64(i) * tick * mid
		book.Bids = append(book.Bids, domain.PriceLevel{Price: mid - off, Amount: depth})
		book.Asks = append(book.Asks, domain.PriceLevel{Price: mid + off, Amount: depth})
	}
	return book
}
