// Package checkout drives the two-step checkout flow and order submission.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/events"
	"github.com/xenking/larek/internal/store"
)

const instrumentationName = "github.com/xenking/larek/internal/checkout"

// Options holds optional Coordinator dependencies.
type Options struct {
	Logger *zap.Logger
	// Runner executes submissions. Defaults to InlineRunner.
	Runner         Runner
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Coordinator is the checkout state machine:
//
//	Idle -> AddressStep | ContactStep -> Submitting -> Success | Failure -> Idle
//
// It reacts to bus events only and talks to views by publishing.
type Coordinator struct {
	ctx    context.Context
	bus    *events.Bus
	store  *store.Store
	orders order.Service
	runner Runner
	lg     *zap.Logger
	tracer trace.Tracer

	submitted metric.Int64Counter
	succeeded metric.Int64Counter
	failed    metric.Int64Counter

	state State
	// attempt is the idempotency key of the current order. It survives a
	// retry from Failure and is dropped by Close.
	attempt string
	newKey  func() string
}

// New creates a Coordinator in the Idle state and subscribes it to bus. ctx
// is the parent context of order submissions.
func New(ctx context.Context, bus *events.Bus, st *store.Store, orders order.Service, opts Options) (*Coordinator, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Runner == nil {
		opts.Runner = InlineRunner{}
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	c := &Coordinator{
		ctx:    ctx,
		bus:    bus,
		store:  st,
		orders: orders,
		runner: opts.Runner,
		lg:     opts.Logger,
		tracer: opts.TracerProvider.Tracer(instrumentationName),
		newKey: uuid.NewString,
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	var err error
	if c.submitted, err = meter.Int64Counter("storefront.checkout.submitted",
		metric.WithDescription("Orders sent to the order API"),
	); err != nil {
		return nil, errors.Wrap(err, "submitted counter")
	}
	if c.succeeded, err = meter.Int64Counter("storefront.checkout.succeeded",
		metric.WithDescription("Orders accepted by the order API"),
	); err != nil {
		return nil, errors.Wrap(err, "succeeded counter")
	}
	if c.failed, err = meter.Int64Counter("storefront.checkout.failed",
		metric.WithDescription("Orders rejected or failed in transport"),
	); err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}

	c.subscribe()
	return c, nil
}

func (c *Coordinator) subscribe() {
	steps := []string{string(order.StepOrder), string(order.StepContacts)}

	c.bus.On(events.OrderStart, func(events.Event) { c.Start() })
	c.bus.On(events.OrderReady, func(events.Event) { c.onReady() })
	c.bus.Subscribe(events.StepPattern(":change", ".", steps...), c.onFieldChange)
	c.bus.On(events.OrderSetPayment, c.onPaymentChange)
	c.bus.On(events.FormErrorsChanged, c.onErrorsChanged)
	c.bus.Subscribe(events.StepPattern(":submit", "", steps...), func(events.Event) {
		c.Submit(c.ctx)
	})
	c.bus.On(events.OrderClear, func(events.Event) { c.Close() })
	c.bus.On(events.ModalClose, func(events.Event) { c.Cancel() })
}

// State returns the current state.
func (c *Coordinator) State() State {
	return c.state
}

// Start enters checkout. It resumes at the contacts step when the address
// and payment step was already completed in this session.
func (c *Coordinator) Start() {
	if c.state == Submitting {
		c.lg.Debug("Ignoring checkout start while submitting")
		return
	}
	step, to := order.StepOrder, AddressStep
	if c.store.IsFirstFormFill() {
		step, to = order.StepContacts, ContactStep
	}
	c.transition(to)
	c.bus.Publish(events.Form(string(step)), order.FormState{Valid: false})
}

// Submit sends the order when the draft is complete. An incomplete draft
// sends the user back to the start of checkout instead.
//
// Submit does not guard against a second call while a submission is in
// flight; callers that can submit concurrently must gate on State.
func (c *Coordinator) Submit(ctx context.Context) {
	if c.state == Idle || c.state == Success {
		c.lg.Debug("Ignoring submit", zap.Stringer("state", c.state))
		return
	}
	if !c.store.Draft().Complete() {
		c.bus.Publish(events.OrderStart, nil)
		return
	}

	if c.state != Failure || c.attempt == "" {
		c.attempt = c.newKey()
	}
	ctx = order.WithIdempotencyKey(ctx, c.attempt)

	o := c.store.Order()
	c.transition(Submitting)
	c.submitted.Add(ctx, 1)

	ctx, span := c.tracer.Start(ctx, "checkout.Submit", trace.WithAttributes(
		attribute.Int("order.items", len(o.Items)),
		attribute.String("order.total", o.Total.String()),
		attribute.String("order.payment", string(o.Payment)),
	))
	c.lg.Info("Submitting order",
		zap.String("attempt", c.attempt),
		zap.Int("items", len(o.Items)),
		zap.Stringer("total", o.Total),
	)

	c.runner.Run(func() (*order.Result, error) {
		return c.orders.SubmitOrder(ctx, o)
	}, func(res *order.Result, err error) {
		defer span.End()
		if err == nil && res == nil {
			err = errors.New("empty order result")
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if res.Error != "" {
			span.SetStatus(codes.Error, res.Error)
		}
		c.finish(ctx, res, err)
	})
}

func (c *Coordinator) finish(ctx context.Context, res *order.Result, err error) {
	switch {
	case err != nil:
		c.lg.Error("Order submission failed", zap.Error(err))
		c.failed.Add(ctx, 1)
		c.transition(Failure)
		c.bus.Publish(events.OrderResult, Outcome{Message: err.Error()})
	case res.Error != "":
		c.lg.Warn("Order rejected", zap.String("reason", res.Error))
		c.failed.Add(ctx, 1)
		c.transition(Failure)
		c.bus.Publish(events.OrderResult, Outcome{Message: res.Error})
	default:
		c.lg.Info("Order placed", zap.String("id", res.ID), zap.Stringer("total", res.Total))
		c.succeeded.Add(ctx, 1)
		c.transition(Success)
		c.bus.Publish(events.OrderResult, Outcome{OK: true, OrderID: res.ID, Total: res.Total})
	}
}

// Close leaves the result screen, resetting basket, draft and the payment
// selector.
func (c *Coordinator) Close() {
	if c.state != Success && c.state != Failure {
		return
	}
	c.attempt = ""
	c.store.ClearBasket()
	c.store.ClearOrder()
	c.bus.Publish(events.OrderPaymentReset, nil)
	c.transition(Idle)
}

// Cancel abandons the checkout forms. The draft is kept so that checkout can
// be resumed.
func (c *Coordinator) Cancel() {
	if c.state == AddressStep || c.state == ContactStep {
		c.transition(Idle)
	}
}

func (c *Coordinator) onReady() {
	if c.state != AddressStep {
		return
	}
	c.transition(ContactStep)
	c.bus.Publish(events.Form(string(order.StepContacts)), order.FormState{Valid: false})
}

func (c *Coordinator) onFieldChange(e events.Event) {
	fc, ok := e.Payload.(FieldChange)
	if !ok {
		c.lg.Error("Unexpected field change payload", zap.String("topic", e.Topic))
		return
	}
	c.setField(fc.Field, fc.Value)
}

func (c *Coordinator) onPaymentChange(e events.Event) {
	pc, ok := e.Payload.(PaymentChange)
	if !ok {
		c.lg.Error("Unexpected payment payload", zap.String("topic", e.Topic))
		return
	}
	c.setField(string(order.FieldPayment), pc.Method)
}

func (c *Coordinator) setField(name, value string) {
	f, err := order.ParseField(name)
	if err != nil {
		c.lg.Error("Rejecting field change", zap.Error(err))
		return
	}
	if err := c.store.SetOrderField(f, value); err != nil {
		c.lg.Error("Set order field", zap.Error(err))
	}
}

// onErrorsChanged hands each form only the slice of errors it owns.
func (c *Coordinator) onErrorsChanged(e events.Event) {
	ec, ok := e.Payload.(store.ErrorsChanged)
	if !ok {
		return
	}
	c.bus.Publish(events.Form(string(ec.Step)), ec.Errors.Form(ec.Step))
}

func (c *Coordinator) transition(to State) {
	from := c.state
	c.state = to
	c.lg.Debug("Checkout state", zap.Stringer("from", from), zap.Stringer("to", to))
	c.bus.Publish(events.CheckoutState, StateChange{From: from, To: to})
}
