// Package store owns the storefront state: the catalog, the basket and the
// order draft. Every mutation publishes a change event on the bus; nothing
// else may mutate the state.
package store

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
	"github.com/xenking/larek/internal/events"
)

// CatalogChanged is the payload of events.CatalogChanged.
type CatalogChanged struct {
	Products []product.Product
}

// Basket is the payload of events.BasketOpened and events.BasketChanged.
type Basket struct {
	Products []product.Product
	Total    decimal.Decimal
}

// ErrorsChanged is the payload of events.FormErrorsChanged.
type ErrorsChanged struct {
	Step   order.Step
	Errors order.Errors
}

// Store is the single source of truth for catalog, basket and order data.
// It is not safe for concurrent use; all calls happen on the event loop.
type Store struct {
	bus *events.Bus
	lg  *zap.Logger

	catalog  []product.Product
	basket   []product.Product
	inBasket map[string]struct{}
	draft    order.Draft
	errs     order.Errors
}

// New creates an empty Store publishing on bus.
func New(bus *events.Bus, lg *zap.Logger) *Store {
	return &Store{
		bus:      bus,
		lg:       lg,
		inBasket: make(map[string]struct{}),
		errs:     order.Errors{},
	}
}

// SetCatalog replaces the catalog wholesale.
func (s *Store) SetCatalog(products []product.Product) {
	s.catalog = append([]product.Product(nil), products...)
	s.lg.Debug("Catalog replaced", zap.Int("products", len(s.catalog)))
	s.bus.Publish(events.CatalogChanged, CatalogChanged{Products: s.Catalog()})
}

// Catalog returns a copy of the current catalog.
func (s *Store) Catalog() []product.Product {
	return append([]product.Product(nil), s.catalog...)
}

// Product looks up a catalog product by ID.
func (s *Store) Product(id string) (product.Product, error) {
	for _, p := range s.catalog {
		if p.ID == id {
			return p, nil
		}
	}
	return product.Product{}, errors.Wrapf(product.ErrNotFound, "id %q", id)
}

// AddToBasket adds p to the basket. Products without a price are ignored
// and nothing is published. Adding a product twice has no further effect on
// the basket, but the basket is still reopened.
func (s *Store) AddToBasket(p product.Product) {
	if !p.Purchasable() {
		s.lg.Debug("Ignoring non-purchasable product", zap.String("id", p.ID))
		return
	}
	if _, ok := s.inBasket[p.ID]; !ok {
		s.inBasket[p.ID] = struct{}{}
		s.basket = append(s.basket, p)
	}
	s.bus.Publish(events.BasketOpened, s.snapshot())
}

// RemoveFromBasket removes the product with p's ID if present.
func (s *Store) RemoveFromBasket(p product.Product) {
	if _, ok := s.inBasket[p.ID]; ok {
		delete(s.inBasket, p.ID)
		for i, b := range s.basket {
			if b.ID == p.ID {
				s.basket = append(s.basket[:i:i], s.basket[i+1:]...)
				break
			}
		}
	}
	s.bus.Publish(events.BasketOpened, s.snapshot())
}

// Basket returns the basket members in insertion order.
func (s *Store) Basket() []product.Product {
	return append([]product.Product(nil), s.basket...)
}

// BasketLen returns the number of basket members.
func (s *Store) BasketLen() int {
	return len(s.basket)
}

// InBasket reports whether a product with the given ID is in the basket.
func (s *Store) InBasket(id string) bool {
	_, ok := s.inBasket[id]
	return ok
}

// TotalPrice returns the sum of basket prices.
func (s *Store) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.basket {
		total = total.Add(p.Price.Decimal)
	}
	return total
}

// ClearBasket empties the basket.
func (s *Store) ClearBasket() {
	s.basket = nil
	s.inBasket = make(map[string]struct{})
	s.bus.Publish(events.BasketChanged, s.snapshot())
}

// SetOrderField updates one draft field, validates the step that owns it and
// publishes the resulting errors. When the step is valid the whole draft is
// published on events.OrderReady.
func (s *Store) SetOrderField(f order.Field, value string) error {
	if _, err := order.ParseField(string(f)); err != nil {
		return err
	}
	s.draft = s.draft.With(f, value)

	step, errs := order.Validate(f, s.draft)
	s.errs = errs
	s.bus.Publish(events.FormErrorsChanged, ErrorsChanged{Step: step, Errors: errs})
	if errs.Empty() {
		s.bus.Publish(events.OrderReady, s.draft.Clone())
	}
	return nil
}

// Draft returns a copy of the order draft.
func (s *Store) Draft() order.Draft {
	return s.draft.Clone()
}

// Errors returns the errors of the last validation.
func (s *Store) Errors() order.Errors {
	out := make(order.Errors, len(s.errs))
	for k, v := range s.errs {
		out[k] = v
	}
	return out
}

// Order returns the draft with items and total resolved from the basket.
func (s *Store) Order() order.Draft {
	o := s.draft.Clone()
	o.Items = make([]string, len(s.basket))
	for i, p := range s.basket {
		o.Items[i] = p.ID
	}
	o.Total = s.TotalPrice()
	return o
}

// ClearOrder resets the draft to its empty form.
func (s *Store) ClearOrder() {
	s.draft = order.Draft{}
	s.errs = order.Errors{}
	s.bus.Publish(events.OrderChanged, s.draft.Clone())
}

// IsFirstFormFill reports whether the address and payment step has already
// been completed, meaning checkout should resume at the contacts step.
func (s *Store) IsFirstFormFill() bool {
	return s.draft.Address != "" && s.draft.Payment != order.PaymentNone
}

func (s *Store) snapshot() Basket {
	return Basket{Products: s.Basket(), Total: s.TotalPrice()}
}
