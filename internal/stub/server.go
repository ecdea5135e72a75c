// Package stub is a local implementation of the WebLarek API used for
// development and end-to-end tests of the storefront.
package stub

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/larek/pkg/health"
	"github.com/xenking/larek/pkg/httpmiddleware"
)

// Telemetry provides the otel providers used to instrument the server.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Server is the assembled stub API.
type Server struct {
	cfg     *Config
	lg      *zap.Logger
	catalog *Catalog
	orders  *MemoryOrders
	health  *health.Health
	handler http.Handler
}

// NewServer loads the catalog and builds the handler chain. ctx bounds the
// background workers of the server.
func NewServer(ctx context.Context, lg *zap.Logger, tel Telemetry, cfg *Config) (*Server, error) {
	items, err := LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded", zap.Int("products", len(items)), zap.String("file", cfg.CatalogFile))

	s := &Server{
		cfg:     cfg,
		lg:      lg,
		catalog: NewCatalog(items),
		orders:  NewMemoryOrders(),
		health:  health.New(),
	}

	s.health.AddReadinessCheck("catalog", time.Second, health.MinCountCheck("catalog", 1, s.catalog.Len))
	s.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	s.health.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))

	h := NewHandler(
		HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		s.catalog,
		NewOrderService(s.catalog, s.orders),
		NewReplays(cfg.Idempotency.Capacity, cfg.Idempotency.FPRate),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", s.health.LiveEndpoint)
	mux.HandleFunc("GET /readyz", s.health.ReadyEndpoint)
	h.Register(mux, cfg.PathPrefix)

	s.handler = httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Idempotency-Key", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("larek-stub", tel.TracerProvider(), tel.MeterProvider()),
		httpmiddleware.LogRequests(),
	)
	return s, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Orders returns the accepted orders store.
func (s *Server) Orders() *MemoryOrders {
	return s.orders
}

// Run serves until ctx is cancelled, then drains and shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but accepts connections on ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Handler:           s.handler,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.health.Start(ctx, 10*time.Second)
	s.health.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.lg.Info("Server listening", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		s.health.SetReady(false)
		s.lg.Info("Readiness set to false, draining", zap.Duration("delay", s.cfg.Graceful.ReadinessDelay))
		time.Sleep(s.cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Graceful.ShutdownTimeout)
		defer cancel()

		s.lg.Info("Shutting down server", zap.Duration("timeout", s.cfg.Graceful.ShutdownTimeout))
		defer s.health.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
