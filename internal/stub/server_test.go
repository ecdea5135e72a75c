package stub

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/orderapi"
	"github.com/xenking/larek/internal/wire"
)

// --- Mock implementations ---

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

// --- Helpers ---

const (
	prefix     = "/api/weblarek"
	mugID      = "854cef69-976d-4c2a-a18c-2aa45046c390"
	lollipopID = "c101ab44-ed99-4a54-990d-47aa2bb4e7d9"
	timerID    = "b06cde61-912f-4663-9751-09956c0eed67"
)

func testConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:0",
		PathPrefix:   prefix,
		ImageBaseURL: "https://cdn.example/content/weblarek",
		RateLimit:    RateLimitConfig{Max: 1000, Window: time.Minute},
		Idempotency:  IdempotencyConfig{Capacity: 1000, FPRate: 0.001},
		Graceful:     GracefulConfig{ReadinessDelay: 0, ShutdownTimeout: time.Second},
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s, err := NewServer(ctx, zaptest.NewLogger(t), noopTelemetry{}, testConfig())
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, key, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func orderBody(total int, items ...string) string {
	e := &jx.Encoder{}
	wire.EncodeOrder(e, order.Draft{
		Payment: order.PaymentCash,
		Email:   "buyer@example.com",
		Phone:   "+79991234567",
		Address: "Moscow, Tverskaya 1",
		Items:   items,
		Total:   decimal.NewFromInt(int64(total)),
	})
	return e.String()
}

// --- Tests ---

func TestHandler_ListProducts(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := do(t, http.MethodGet, ts.URL+prefix+"/product", "", "")
	require.Equal(t, http.StatusOK, status)

	list, err := wire.DecodeProductList(jx.DecodeStr(body))
	require.NoError(t, err)
	assert.Equal(t, 10, list.Total)
	require.Len(t, list.Items, 10)
	assert.Equal(t, "https://cdn.example/content/weblarek/5_Dots.svg", list.Items[0].Image)
	for _, p := range list.Items {
		assert.True(t, strings.HasPrefix(p.Image, "https://cdn.example/content/weblarek/"), p.Image)
	}
}

func TestHandler_GetProduct(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name       string
		id         string
		wantStatus int
		check      func(t *testing.T, body string)
	}{
		{
			name:       "priced",
			id:         mugID,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body string) {
				p, err := wire.DecodeProduct(jx.DecodeStr(body))
				require.NoError(t, err)
				assert.Equal(t, "+1 час в сутках", p.Title)
				assert.Equal(t, "750", p.Price.Decimal.String())
			},
		},
		{
			name:       "priceless",
			id:         timerID,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body string) {
				p, err := wire.DecodeProduct(jx.DecodeStr(body))
				require.NoError(t, err)
				assert.False(t, p.Purchasable())
			},
		},
		{
			name:       "unknown",
			id:         "missing",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"error":"NotFound"}`, body)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, http.MethodGet, ts.URL+prefix+"/product/"+tt.id, "", "")
			assert.Equal(t, tt.wantStatus, status)
			tt.check(t, body)
		})
	}
}

func TestHandler_PlaceOrder(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "accepted",
			body:       orderBody(2200, mugID, lollipopID),
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong total",
			body:       orderBody(1, mugID),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid order total 1, expected 750",
		},
		{
			name:       "priceless item",
			body:       orderBody(0, timerID),
			wantStatus: http.StatusBadRequest,
			wantError:  "product " + timerID + " is not for sale",
		},
		{
			name:       "no items",
			body:       orderBody(0),
			wantStatus: http.StatusBadRequest,
			wantError:  "items required",
		},
		{
			name:       "invalid json",
			body:       `{"items":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ts := newTestServer(t)

			status, body := do(t, http.MethodPost, ts.URL+prefix+"/order", "", tt.body)
			require.Equal(t, tt.wantStatus, status, body)

			res, err := wire.DecodeResult(jx.DecodeStr(body))
			require.NoError(t, err)
			if tt.wantStatus == http.StatusOK {
				assert.NotEmpty(t, res.ID)
				assert.Equal(t, "2200", res.Total.String())
				assert.Equal(t, 1, s.Orders().Len())
				return
			}
			assert.NotEmpty(t, res.Error)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, res.Error)
			}
			assert.Zero(t, s.Orders().Len())
		})
	}
}

func TestHandler_PlaceOrderReplay(t *testing.T) {
	s, ts := newTestServer(t)
	body := orderBody(750, mugID)

	status1, body1 := do(t, http.MethodPost, ts.URL+prefix+"/order", "key-1", body)
	status2, body2 := do(t, http.MethodPost, ts.URL+prefix+"/order", "key-1", body)
	require.Equal(t, http.StatusOK, status1)
	assert.Equal(t, status1, status2)
	assert.JSONEq(t, body1, body2)
	assert.Equal(t, 1, s.Orders().Len())

	status3, _ := do(t, http.MethodPost, ts.URL+prefix+"/order", "key-2", body)
	require.Equal(t, http.StatusOK, status3)
	assert.Equal(t, 2, s.Orders().Len())

	rejected := orderBody(1, mugID)
	status4, body4 := do(t, http.MethodPost, ts.URL+prefix+"/order", "key-3", rejected)
	status5, body5 := do(t, http.MethodPost, ts.URL+prefix+"/order", "key-3", body)
	assert.Equal(t, http.StatusBadRequest, status4)
	assert.Equal(t, http.StatusBadRequest, status5)
	assert.JSONEq(t, body4, body5)
}

func TestHandler_RequestIDEchoed(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+prefix+"/product", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestClientAgainstStub(t *testing.T) {
	_, ts := newTestServer(t)

	c, err := orderapi.New(orderapi.Config{BaseURL: ts.URL + prefix, Timeout: 5 * time.Second})
	require.NoError(t, err)
	ctx := context.Background()

	items, err := c.FetchProducts(ctx)
	require.NoError(t, err)
	require.Len(t, items, 10)

	res, err := c.SubmitOrder(ctx, order.Draft{
		Payment: order.PaymentCard,
		Email:   "buyer@example.com",
		Phone:   "+79991234567",
		Address: "Moscow",
		Items:   []string{items[0].ID, items[1].ID},
		Total:   items[0].Price.Decimal.Add(items[1].Price.Decimal),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Empty(t, res.Error)
	assert.Equal(t, "2200", res.Total.String())

	res, err = c.SubmitOrder(ctx, order.Draft{
		Payment: order.PaymentCard,
		Email:   "buyer@example.com",
		Phone:   "+79991234567",
		Address: "Moscow",
		Items:   []string{items[0].ID},
		Total:   decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "invalid order total 1, expected 750", res.Error)
}

func TestClientAgainstStub_RetrySameAttempt(t *testing.T) {
	s, ts := newTestServer(t)

	c, err := orderapi.New(orderapi.Config{BaseURL: ts.URL + prefix})
	require.NoError(t, err)
	ctx := order.WithIdempotencyKey(context.Background(), "checkout-1")
	draft := order.Draft{
		Payment: order.PaymentCash,
		Email:   "buyer@example.com",
		Phone:   "+79991234567",
		Address: "Moscow",
		Items:   []string{mugID},
		Total:   decimal.NewFromInt(750),
	}

	first, err := c.SubmitOrder(ctx, draft)
	require.NoError(t, err)
	second, err := c.SubmitOrder(ctx, draft)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.Orders().Len())
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s, err := NewServer(context.Background(), zaptest.NewLogger(t), noopTelemetry{}, testConfig())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get(url + "/readyz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
