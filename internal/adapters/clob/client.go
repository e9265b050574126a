package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Options ajusta el transporte. Los campos a cero toman DefaultOptions.
type Options struct {
	Timeout    time.Duration
	RatePerSec float64 // requests por segundo contra el CLOB
	Burst      int
	MaxRetries int
	RetryWait  time.Duration // primer backoff; se duplica en cada intento
}

// DefaultOptions deja el rate al 60% del límite documentado de /books
// (500/10s → 30/s).
func DefaultOptions() Options {
	return Options{
		Timeout:    10 * time.Second,
		RatePerSec: 30,
		Burst:      5,
		MaxRetries: 3,
		RetryWait:  500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = d.RatePerSec
	}
	if o.Burst <= 0 {
		o.Burst = d.Burst
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.RetryWait <= 0 {
		o.RetryWait = d.RetryWait
	}
	return o
}

// errContentType marca respuestas 2xx que no son JSON (páginas de error de
// un proxy, mantenimiento). No se reintentan.
var errContentType = errors.New("unexpected content type")

// statusError es una respuesta no-2xx.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.code >= 500 {
		return fmt.Sprintf("server error %d", e.code)
	}
	return fmt.Sprintf("client error %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// Client habla JSON con el CLOB bajo un rate limiter compartido.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
	opts    Options
}

// NewClient crea un Client contra el base URL dado.
func NewClient(base string, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		opts:    opts,
	}
}

// call hace la request y decodifica el JSON en out. Reintenta errores de red,
// 429 y 5xx con backoff exponencial.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = b
	}

	var err error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if werr := c.backoff(ctx, attempt); werr != nil {
				return werr
			}
		}
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("rate limiter: %w", werr)
		}

		err = c.do(ctx, method, u, payload, out)
		if err == nil {
			return nil
		}
		var se *statusError
		if errors.As(err, &se) {
			if !se.retryable() {
				return err
			}
			if se.code == http.StatusTooManyRequests {
				slog.Warn("rate limited by CLOB", "attempt", attempt+1)
			}
		} else if errors.Is(err, errContentType) || ctx.Err() != nil {
			return err
		}
	}
	return fmt.Errorf("%s %s after %d retries: %w", method, path, c.opts.MaxRetries, err)
}

// do ejecuta un intento.
func (c *Client) do(ctx context.Context, method, u string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(msg)}
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		return fmt.Errorf("%w %q", errContentType, resp.Header.Get("Content-Type"))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// backoff espera RetryWait·2^(attempt-1), respetando el contexto.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(c.opts.RetryWait << (attempt - 1))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
