// Package orderapi implements order.Service over the WebLarek HTTP API.
package orderapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
	"github.com/xenking/larek/internal/wire"
	"github.com/xenking/larek/pkg/httpmiddleware"
)

// maxBodySize caps response bodies read into memory.
const maxBodySize = 8 << 20

// Compile-time check ensuring Client satisfies order.Service.
var _ order.Service = (*Client)(nil)

// APIError is returned when the API answers with an unexpected status.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Config holds client settings.
type Config struct {
	// BaseURL is the API root, e.g. https://larek-api.nomoreparties.co/api/weblarek.
	BaseURL string
	// CDNURL is prepended to relative product image paths.
	CDNURL string
	// Timeout bounds each request. Zero means no client-side timeout; the
	// caller's context still applies.
	Timeout time.Duration
}

// Client is a single-shot WebLarek API client. Requests are not retried.
type Client struct {
	base   string
	cdn    string
	http   *http.Client
	lg     *zap.Logger
	newKey func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the client logger.
func WithLogger(lg *zap.Logger) Option {
	return func(cl *Client) { cl.lg = lg }
}

// New creates a Client. The default transport is traced with otelhttp and
// tags every request with an X-Request-ID.
func New(cfg Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url %q: unsupported scheme", cfg.BaseURL)
	}

	c := &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		cdn:  strings.TrimRight(cfg.CDNURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(httpmiddleware.RequestIDTransport(http.DefaultTransport)),
		},
		lg:     zap.NewNop(),
		newKey: uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FetchProducts loads the whole catalog.
func (c *Client) FetchProducts(ctx context.Context) ([]product.Product, error) {
	const op = "fetch products"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/product", http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	status, body, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	if status != http.StatusOK {
		return nil, apiError(op, status, body)
	}

	l, err := wire.DecodeProductList(jx.DecodeBytes(body))
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	for i := range l.Items {
		l.Items[i].Image = c.imageURL(l.Items[i].Image)
	}
	c.lg.Debug("Fetched catalog", zap.Int("total", l.Total), zap.Int("items", len(l.Items)))
	return l.Items, nil
}

// SubmitOrder posts the order. A 4xx answer carrying an error message is a
// rejection and is returned as Result.Error with a nil error. The
// Idempotency-Key comes from ctx when set, otherwise it is fresh.
func (c *Client) SubmitOrder(ctx context.Context, o order.Draft) (*order.Result, error) {
	const op = "submit order"

	e := &jx.Encoder{}
	wire.EncodeOrder(e, o)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/order", bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	key := order.IdempotencyKeyFromContext(ctx)
	if key == "" {
		key = c.newKey()
	}
	req.Header.Set("Idempotency-Key", key)

	status, body, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	switch {
	case status >= 200 && status < 300:
		res, err := wire.DecodeResult(jx.DecodeBytes(body))
		if err != nil {
			return nil, errors.Wrap(err, "decode order result")
		}
		return &res, nil
	case status >= 400 && status < 500:
		if msg := errorMessage(body); msg != "" {
			c.lg.Debug("Order rejected", zap.Int("status", status), zap.String("error", msg))
			return &order.Result{Error: msg}, nil
		}
	}
	return nil, apiError(op, status, body)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, errors.Wrap(err, "read body")
	}
	return resp.StatusCode, body, nil
}

func (c *Client) imageURL(path string) string {
	if c.cdn == "" || path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.cdn + path
}

func apiError(op string, status int, body []byte) *APIError {
	return &APIError{Op: op, StatusCode: status, Message: errorMessage(body)}
}

// errorMessage extracts {"error": "..."} from body, or returns "".
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	res, err := wire.DecodeResult(jx.DecodeBytes(body))
	if err != nil {
		return ""
	}
	return res.Error
}
