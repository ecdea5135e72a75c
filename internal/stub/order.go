package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems     = errors.New("items required")
	ErrInvalidPayment = errors.New("payment must be card or cash")
	ErrNoAddress      = errors.New("address required")
	ErrNoEmail        = errors.New("email required")
	ErrNoPhone        = errors.New("phone required")
)

// ProductNotFoundError indicates an ordered product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// NotForSaleError indicates an ordered product has no price.
type NotForSaleError struct {
	ProductID string
}

func (e *NotForSaleError) Error() string {
	return fmt.Sprintf("product %s is not for sale", e.ProductID)
}

// TotalMismatchError indicates the client total differs from the sum of
// prices.
type TotalMismatchError struct {
	Want decimal.Decimal
	Got  decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("invalid order total %s, expected %s", e.Got, e.Want)
}

// Placed is an accepted order.
type Placed struct {
	ID      string
	Payment order.PaymentMethod
	Email   string
	Phone   string
	Address string
	Items   []string
	Total   decimal.Decimal
}

// OrderRepository stores accepted orders.
type OrderRepository interface {
	Create(ctx context.Context, o *Placed) error
}

// MemoryOrders is an OrderRepository kept in memory.
type MemoryOrders struct {
	mu     sync.Mutex
	orders map[string]*Placed
}

// NewMemoryOrders creates an empty MemoryOrders.
func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{orders: make(map[string]*Placed)}
}

// Create stores o.
func (m *MemoryOrders) Create(_ context.Context, o *Placed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return errors.Errorf("order %q already exists", o.ID)
	}
	m.orders[o.ID] = o
	return nil
}

// Len returns the number of stored orders.
func (m *MemoryOrders) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// OrderService validates and accepts orders.
type OrderService struct {
	products product.Repository
	orders   OrderRepository
}

// NewOrderService creates an OrderService.
func NewOrderService(products product.Repository, orders OrderRepository) *OrderService {
	return &OrderService{products: products, orders: orders}
}

// PlaceOrder validates the submission, checks the total against catalog
// prices and stores the order.
func (s *OrderService) PlaceOrder(ctx context.Context, req order.Draft) (*Placed, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if order.ParsePaymentMethod(string(req.Payment)) == order.PaymentNone {
		return nil, ErrInvalidPayment
	}
	if req.Address == "" {
		return nil, ErrNoAddress
	}
	if req.Email == "" {
		return nil, ErrNoEmail
	}
	if req.Phone == "" {
		return nil, ErrNoPhone
	}

	total := decimal.Zero
	for _, id := range req.Items {
		p, err := s.products.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: id}
			}
			return nil, errors.Wrap(err, "get product")
		}
		if !p.Purchasable() {
			return nil, &NotForSaleError{ProductID: id}
		}
		total = total.Add(p.Price.Decimal)
	}
	if !total.Equal(req.Total) {
		return nil, &TotalMismatchError{Want: total, Got: req.Total}
	}

	o := &Placed{
		ID:      uuid.New().String(),
		Payment: req.Payment,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Items:   append([]string(nil), req.Items...),
		Total:   total,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// IsRejection reports whether err is a client mistake answered with 400.
func IsRejection(err error) bool {
	var (
		notFound *ProductNotFoundError
		notSale  *NotForSaleError
		mismatch *TotalMismatchError
	)
	switch {
	case errors.Is(err, ErrEmptyItems),
		errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrNoAddress),
		errors.Is(err, ErrNoEmail),
		errors.Is(err, ErrNoPhone),
		errors.As(err, &notFound),
		errors.As(err, &notSale),
		errors.As(err, &mismatch):
		return true
	default:
		return false
	}
}
