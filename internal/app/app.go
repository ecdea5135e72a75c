// Package app wires the storefront: the order API client, the state core and
// either the terminal UI or the headless checkout.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/checkout"
	"github.com/xenking/larek/internal/events"
	"github.com/xenking/larek/internal/orderapi"
	"github.com/xenking/larek/internal/store"
	"github.com/xenking/larek/internal/tui"
	"github.com/xenking/larek/internal/view"
)

// Telemetry provides the otel providers for the checkout metrics and the
// client transport.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Run creates all dependencies and runs the configured mode. It is the
// single wiring point for the storefront.
func Run(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) error {
	if cfg.Mode == ModeTUI {
		fileLg, err := newFileLogger(cfg.LogFile)
		if err != nil {
			return errors.Wrap(err, "create log file")
		}
		defer func() { _ = fileLg.Sync() }()
		lg = fileLg
	}
	lg.Info("Initializing", zap.String("mode", cfg.Mode), zap.String("api", cfg.APIURL))

	client, err := orderapi.New(orderapi.Config{
		BaseURL: cfg.APIURL,
		CDNURL:  cfg.CDNURL,
		Timeout: cfg.Timeout,
	}, orderapi.WithLogger(lg))
	if err != nil {
		return errors.Wrap(err, "create order api client")
	}

	opts := checkout.Options{
		Logger:         lg,
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
	}
	if cfg.Mode == ModeHeadless {
		return runHeadless(ctx, os.Stdout, client, cfg.Checkout, opts)
	}
	return runTUI(ctx, client, opts)
}

func runHeadless(ctx context.Context, out io.Writer, client *orderapi.Client, cfg CheckoutConfig, opts checkout.Options) error {
	o, err := Headless(ctx, client, cfg, opts)
	if err != nil {
		return errors.Wrap(err, "headless checkout")
	}
	res := view.NewResult(o)
	_, _ = fmt.Fprintf(out, "%s: %s\n", res.Title, res.Description)
	if !o.OK {
		return errors.Errorf("order rejected: %s", o.Message)
	}
	opts.Logger.Info("Order placed", zap.String("id", o.OrderID), zap.Stringer("total", o.Total))
	return nil
}

func runTUI(ctx context.Context, client *orderapi.Client, opts checkout.Options) error {
	bus := events.New()
	st := store.New(bus, opts.Logger)
	stop := st.Listen()
	defer stop()

	runner := tui.NewRunner()
	opts.Runner = runner
	if _, err := checkout.New(ctx, bus, st, client, opts); err != nil {
		return errors.Wrap(err, "create checkout")
	}

	p := tea.NewProgram(tui.New(ctx, bus, st, client, runner, opts.Logger),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run terminal ui")
	}
	return nil
}

// newFileLogger builds a production logger writing to path so that log
// output does not corrupt the terminal UI.
func newFileLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}
