// Package clob fetches order book snapshots from a central limit order book
// HTTP API.
package clob

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	bookPath  = "/book"
	booksPath = "/books"
	batchSize = 20 // máx token_ids por request a /books
)

// FetchOrderBook obtiene el book de un token con GET /book.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBookSnapshot, error) {
	var resp orderBookResponse
	q := url.Values{"token_id": {tokenID}}
	if err := c.call(ctx, http.MethodGet, bookPath, q, nil, &resp); err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("clob.FetchOrderBook %s: %w", tokenID, err)
	}
	book, err := parseBook(resp)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("clob.FetchOrderBook %s: %w", tokenID, err)
	}
	return book, nil
}

// FetchOrderBooks obtiene los books de varios tokens con POST /books, un
// goroutine por batch. El rate limiter controla el ritmo y el primer error
// cancela el resto.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBookSnapshot, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.OrderBookSnapshot{}, nil
	}

	batches := splitBatches(tokenIDs, batchSize)
	results := make([]map[string]domain.OrderBookSnapshot, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			books, err := c.fetchBooksBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			results[i] = books
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("clob.FetchOrderBooks: %w", err)
	}

	out := make(map[string]domain.OrderBookSnapshot, len(tokenIDs))
	for _, books := range results {
		for id, b := range books {
			out[id] = b
		}
	}
	slog.Debug("order books fetched", "tokens", len(tokenIDs), "books", len(out))
	return out, nil
}

// fetchBooksBatch hace un POST /books para un batch de token_ids. Descarta
// books de tokens que no se pidieron.
func (c *Client) fetchBooksBatch(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBookSnapshot, error) {
	body := make([]orderBookRequest, len(tokenIDs))
	asked := make(map[string]bool, len(tokenIDs))
	for i, id := range tokenIDs {
		body[i] = orderBookRequest{TokenID: id}
		asked[id] = true
	}

	var resp []orderBookResponse
	if err := c.call(ctx, http.MethodPost, booksPath, nil, body, &resp); err != nil {
		return nil, err
	}

	books := make(map[string]domain.OrderBookSnapshot, len(resp))
	for _, r := range resp {
		if !asked[r.AssetID] {
			slog.Warn("CLOB returned unrequested book", "asset_id", r.AssetID)
			continue
		}
		book, err := parseBook(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.AssetID, err)
		}
		books[r.AssetID] = book
	}
	return books, nil
}

// splitBatches divide tokenIDs en slices de tamaño máximo size.
func splitBatches(tokenIDs []string, size int) [][]string {
	if size <= 0 {
		size = batchSize
	}
	batches := make([][]string, 0, (len(tokenIDs)+size-1)/size)
	for i := 0; i < len(tokenIDs); i += size {
		end := min(i+size, len(tokenIDs))
		batches = append(batches, tokenIDs[i:end])
	}
	return batches
}

// parseBook valida un book del CLOB: niveles numéricos, ambos lados con
// liquidez y sin cruzar. Los niveles a cero se descartan.
func parseBook(r orderBookResponse) (domain.OrderBookSnapshot, error) {
	bids, err := parseLevels(r.Bids, false)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := parseLevels(r.Asks, true)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("asks: %w", err)
	}
	book := domain.OrderBookSnapshot{Bids: bids, Asks: asks}
	if err := book.Validate(); err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	if book.BestBid() >= book.BestAsk() {
		return domain.OrderBookSnapshot{}, fmt.Errorf("%w: crossed book bid=%v ask=%v",
			domain.ErrInvalidOrderBook, book.BestBid(), book.BestAsk())
	}
	return book, nil
}

// parseLevels convierte niveles raw y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func parseLevels(raw []bookEntryRaw, ascending bool) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, r := range raw {
		price, err := strconv.ParseFloat(r.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: price %q", domain.ErrInvalidOrderBook, r.Price)
		}
		size, err := strconv.ParseFloat(r.Size, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: size %q", domain.ErrInvalidOrderBook, r.Size)
		}
		if price <= 0 || size <= 0 {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Amount: size})
	}

	sort.Slice(levels, func(i, j int) bool {
		if ascending {
			return levels[i].Price < levels[j].Price
		}
		return levels[i].Price > levels[j].Price
	})
	return levels, nil
}
