package app

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/checkout"
	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/events"
	"github.com/xenking/larek/internal/store"
)

// Headless places the scripted order through the same bus intents the
// terminal UI emits and returns the outcome. Submissions run inline.
func Headless(ctx context.Context, orders order.Service, cfg CheckoutConfig, opts checkout.Options) (checkout.Outcome, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Runner = checkout.InlineRunner{}
	lg := opts.Logger

	bus := events.New()
	defer bus.UnsubscribeAll()

	st := store.New(bus, lg)
	st.Listen()

	coord, err := checkout.New(ctx, bus, st, orders, opts)
	if err != nil {
		return checkout.Outcome{}, errors.Wrap(err, "create checkout")
	}

	forms := make(map[order.Step]order.FormState)
	for _, step := range []order.Step{order.StepOrder, order.StepContacts} {
		bus.On(events.Form(string(step)), func(e events.Event) {
			if s, ok := e.Payload.(order.FormState); ok {
				forms[step] = s
			}
		})
	}
	var outcome *checkout.Outcome
	bus.On(events.OrderResult, func(e events.Event) {
		if o, ok := e.Payload.(checkout.Outcome); ok {
			outcome = &o
		}
	})

	products, err := orders.FetchProducts(ctx)
	if err != nil {
		return checkout.Outcome{}, errors.Wrap(err, "fetch products")
	}
	st.SetCatalog(products)

	for _, id := range cfg.Items {
		p, err := st.Product(id)
		if err != nil {
			return checkout.Outcome{}, errors.Wrap(err, "add item")
		}
		if !p.Purchasable() {
			return checkout.Outcome{}, errors.Errorf("product %s is not for sale", id)
		}
		bus.Publish(events.ProductAddToBasket, p)
	}
	if st.BasketLen() == 0 {
		return checkout.Outcome{}, errors.New("basket is empty")
	}
	lg.Info("Basket filled", zap.Int("items", st.BasketLen()), zap.Stringer("total", st.TotalPrice()))

	bus.Publish(events.OrderStart, nil)
	setField(bus, order.FieldAddress, cfg.Address)
	bus.Publish(events.OrderSetPayment, checkout.PaymentChange{Method: cfg.Payment})
	if coord.State() != checkout.ContactStep {
		return checkout.Outcome{}, formError(order.StepOrder, forms[order.StepOrder])
	}

	setField(bus, order.FieldEmail, cfg.Email)
	setField(bus, order.FieldPhone, cfg.Phone)
	if s := forms[order.StepContacts]; !s.Valid {
		return checkout.Outcome{}, formError(order.StepContacts, s)
	}

	bus.Publish(events.Submit(string(order.StepContacts)), nil)
	if outcome == nil {
		return checkout.Outcome{}, errors.Errorf("checkout stopped in state %s", coord.State())
	}
	return *outcome, nil
}

func setField(bus *events.Bus, f order.Field, value string) {
	bus.Publish(events.FieldChange(string(order.StepOf(f)), string(f)), checkout.FieldChange{
		Field: string(f),
		Value: value,
	})
}

func formError(step order.Step, s order.FormState) error {
	if len(s.Errors) == 0 {
		return errors.Errorf("%s step incomplete", step)
	}
	return errors.Errorf("%s step: %s", step, strings.Join(s.Errors, ", "))
}
