package clob

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/alejandrodnm/allocengine/internal/ports"
)

// MarketData decora otra fuente (normalmente un fixture) sustituyendo el book
// principal por el book live del token dado. Los tokens extra se añaden como
// books del batch con el target del snapshot base.
type MarketData struct {
	client *Client
	token  string
	extra  []string
	base   ports.MarketData
}

// NewMarketData crea la fuente live. extra puede ser nil.
func NewMarketData(client *Client, token string, extra []string, base ports.MarketData) *MarketData {
	return &MarketData{client: client, token: token, extra: extra, base: base}
}

// Snapshot implementa ports.MarketData.
func (m *MarketData) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	snap, err := m.base.Snapshot(ctx)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}

	if m.token != "" {
		book, err := m.client.FetchOrderBook(ctx, m.token)
		if err != nil {
			return domain.MarketSnapshot{}, err
		}
		snap.Book = book
	}

	if len(m.extra) == 0 {
		return snap, nil
	}
	books, err := m.client.FetchOrderBooks(ctx, m.extra)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	for _, id := range m.extra {
		book, ok := books[id]
		if !ok {
			return domain.MarketSnapshot{}, fmt.Errorf("clob.Snapshot: no book returned for %s", id)
		}
		snap.Books = append(snap.Books, domain.BookTarget{ID: id, Book: book, Target: snap.Target})
	}
	return snap, nil
}
