package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
	"github.com/xenking/larek/internal/events"
)

// --- Helpers ---

type recorder struct {
	events []events.Event
}

func (r *recorder) handle(e events.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) topics() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Topic
	}
	return out
}

func (r *recorder) last(topic string) (events.Event, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Topic == topic {
			return r.events[i], true
		}
	}
	return events.Event{}, false
}

func newTestStore(t *testing.T) (*Store, *recorder) {
	t.Helper()
	bus := events.New()
	rec := &recorder{}
	bus.Subscribe(events.Pattern(func(string) bool { return true }), rec.handle)
	return New(bus, zap.NewNop()), rec
}

func newTestProduct(id string, price int64) product.Product {
	return product.Product{
		ID:       id,
		Title:    "Product " + id,
		Category: product.CategorySoft,
		Price:    product.Priced(price),
	}
}

func newPricelessProduct(id string) product.Product {
	return product.Product{ID: id, Title: "Priceless " + id, Category: product.CategoryOther}
}

// --- Tests ---

func TestSetCatalog(t *testing.T) {
	s, rec := newTestStore(t)
	p1 := newTestProduct("p1", 100)

	s.SetCatalog([]product.Product{p1})

	e, ok := rec.last(events.CatalogChanged)
	require.True(t, ok)
	assert.Equal(t, []product.Product{p1}, e.Payload.(CatalogChanged).Products)

	s.SetCatalog(nil)
	assert.Empty(t, s.Catalog())
}

func TestProduct(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetCatalog([]product.Product{newTestProduct("p1", 1)})

	p, err := s.Product("p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = s.Product("missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddToBasket_PricelessIgnored(t *testing.T) {
	s, rec := newTestStore(t)

	s.AddToBasket(newPricelessProduct("p2"))

	assert.Zero(t, s.BasketLen())
	assert.Empty(t, rec.events)
}

func TestAddToBasket_Idempotent(t *testing.T) {
	s, rec := newTestStore(t)
	p1 := newTestProduct("p1", 100)

	s.AddToBasket(p1)
	s.AddToBasket(p1)

	assert.Equal(t, []product.Product{p1}, s.Basket())
	assert.True(t, s.InBasket("p1"))
	assert.Equal(t, []string{events.BasketOpened, events.BasketOpened}, rec.topics())

	e, _ := rec.last(events.BasketOpened)
	snap := e.Payload.(Basket)
	assert.Len(t, snap.Products, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(snap.Total))
}

func TestAddToBasket_PreservesInsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)
	a, b, c := newTestProduct("a", 1), newTestProduct("b", 2), newTestProduct("c", 3)

	s.AddToBasket(c)
	s.AddToBasket(a)
	s.AddToBasket(b)
	s.RemoveFromBasket(a)

	ids := []string{}
	for _, p := range s.Basket() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"c", "b"}, ids)
}

func TestRemoveFromBasket_Missing(t *testing.T) {
	s, rec := newTestStore(t)
	s.AddToBasket(newTestProduct("p1", 10))

	s.RemoveFromBasket(newTestProduct("other", 5))

	assert.Equal(t, 1, s.BasketLen())
	assert.Equal(t, []string{events.BasketOpened, events.BasketOpened}, rec.topics())
}

func TestTotalPrice_MatchesMembers(t *testing.T) {
	s, _ := newTestStore(t)
	p1, p2, p3 := newTestProduct("p1", 100), newTestProduct("p2", 250), newTestProduct("p3", 750)

	ops := []struct {
		add  bool
		p    product.Product
		want int64
	}{
		{add: true, p: p1, want: 100},
		{add: true, p: p2, want: 350},
		{add: true, p: p2, want: 350},
		{add: true, p: newPricelessProduct("x"), want: 350},
		{add: false, p: p1, want: 250},
		{add: true, p: p3, want: 1000},
		{add: false, p: p1, want: 1000},
		{add: false, p: p2, want: 750},
	}

	for _, op := range ops {
		if op.add {
			s.AddToBasket(op.p)
		} else {
			s.RemoveFromBasket(op.p)
		}
		sum := decimal.Zero
		for _, p := range s.Basket() {
			sum = sum.Add(p.Price.Decimal)
		}
		assert.True(t, decimal.NewFromInt(op.want).Equal(s.TotalPrice()), "want %d got %s", op.want, s.TotalPrice())
		assert.True(t, sum.Equal(s.TotalPrice()))
	}
}

func TestClearBasket(t *testing.T) {
	s, rec := newTestStore(t)
	s.AddToBasket(newTestProduct("p1", 100))

	s.ClearBasket()

	assert.True(t, s.TotalPrice().IsZero())
	assert.False(t, s.InBasket("p1"))
	e, ok := rec.last(events.BasketChanged)
	require.True(t, ok)
	assert.Empty(t, e.Payload.(Basket).Products)
	assert.True(t, e.Payload.(Basket).Total.IsZero())
}

func TestSetOrderField_DeliveryStep(t *testing.T) {
	s, rec := newTestStore(t)

	require.NoError(t, s.SetOrderField(order.FieldAddress, "Main St"))

	e, ok := rec.last(events.FormErrorsChanged)
	require.True(t, ok)
	assert.Equal(t, ErrorsChanged{
		Step:   order.StepOrder,
		Errors: order.Errors{order.FieldPayment: order.MsgPayment},
	}, e.Payload)
	_, ready := rec.last(events.OrderReady)
	assert.False(t, ready)

	require.NoError(t, s.SetOrderField(order.FieldPayment, "card"))

	e, ok = rec.last(events.OrderReady)
	require.True(t, ok)
	d := e.Payload.(order.Draft)
	assert.Equal(t, "Main St", d.Address)
	assert.Equal(t, order.PaymentCard, d.Payment)
	assert.Equal(t, []string{
		events.FormErrorsChanged,
		events.FormErrorsChanged,
		events.OrderReady,
	}, rec.topics())
}

func TestSetOrderField_ContactsStep(t *testing.T) {
	s, rec := newTestStore(t)

	require.NoError(t, s.SetOrderField(order.FieldEmail, "a@b.c"))
	e, _ := rec.last(events.FormErrorsChanged)
	assert.Equal(t, order.Errors{order.FieldPhone: order.MsgPhone}, e.Payload.(ErrorsChanged).Errors)

	require.NoError(t, s.SetOrderField(order.FieldPhone, "+71234567890"))
	_, ready := rec.last(events.OrderReady)
	assert.True(t, ready)
	assert.True(t, s.Errors().Empty())
}

func TestSetOrderField_UnknownField(t *testing.T) {
	s, rec := newTestStore(t)

	err := s.SetOrderField("total", "100")

	require.ErrorIs(t, err, order.ErrUnknownField)
	assert.Empty(t, rec.events)
}

func TestIsFirstFormFill(t *testing.T) {
	tests := []struct {
		name    string
		address string
		payment string
		want    bool
	}{
		{name: "empty draft"},
		{name: "address only", address: "Main St"},
		{name: "payment only", payment: "cash"},
		{name: "both set", address: "Main St", payment: "cash", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			if tt.address != "" {
				require.NoError(t, s.SetOrderField(order.FieldAddress, tt.address))
			}
			if tt.payment != "" {
				require.NoError(t, s.SetOrderField(order.FieldPayment, tt.payment))
			}
			assert.Equal(t, tt.want, s.IsFirstFormFill())
		})
	}
}

func TestClearOrder(t *testing.T) {
	s, rec := newTestStore(t)
	require.NoError(t, s.SetOrderField(order.FieldAddress, "Main St"))
	require.NoError(t, s.SetOrderField(order.FieldPayment, "card"))
	require.NoError(t, s.SetOrderField(order.FieldEmail, "a@b.c"))

	s.ClearOrder()

	assert.Equal(t, order.Draft{}, s.Draft())
	assert.True(t, s.Errors().Empty())
	assert.False(t, s.IsFirstFormFill())
	e, ok := rec.last(events.OrderChanged)
	require.True(t, ok)
	assert.Equal(t, order.Draft{}, e.Payload)
}

func TestOrder_ResolvesItemsAndTotal(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddToBasket(newTestProduct("p2", 50))
	s.AddToBasket(newTestProduct("p1", 100))
	require.NoError(t, s.SetOrderField(order.FieldEmail, "a@b.c"))

	o := s.Order()

	assert.Equal(t, []string{"p2", "p1"}, o.Items)
	assert.True(t, decimal.NewFromInt(150).Equal(o.Total))
	assert.Equal(t, "a@b.c", o.Email)
	assert.Nil(t, s.Draft().Items, "draft items are only resolved on Order")
}

func TestListen_BasketIntents(t *testing.T) {
	s, _ := newTestStore(t)
	stop := s.Listen()
	p1 := newTestProduct("p1", 100)

	s.bus.Publish(events.ProductAddToBasket, p1)
	assert.True(t, s.InBasket("p1"))

	s.bus.Publish(events.ProductRemove, p1)
	assert.False(t, s.InBasket("p1"))

	s.bus.Publish(events.ProductAddToBasket, "not a product")
	assert.Zero(t, s.BasketLen())

	stop()
	s.bus.Publish(events.ProductAddToBasket, p1)
	assert.Zero(t, s.BasketLen())
}
