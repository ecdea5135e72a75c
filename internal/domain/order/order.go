package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/larek/internal/domain/product"
)

// ErrUnknownField is returned when a draft field name is not editable.
var ErrUnknownField = errors.New("unknown order field")

// PaymentMethod is the way the customer pays. The zero value means that no
// method has been chosen yet.
type PaymentMethod string

// Supported payment methods.
const (
	PaymentNone PaymentMethod = ""
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// ParsePaymentMethod maps a literal to a PaymentMethod. Anything other than
// "card" or "cash" yields PaymentNone.
func ParsePaymentMethod(s string) PaymentMethod {
	switch PaymentMethod(s) {
	case PaymentCard, PaymentCash:
		return PaymentMethod(s)
	default:
		return PaymentNone
	}
}

// Field names an editable field of the order draft.
type Field string

// Editable draft fields. Items and total are not fields: they are resolved
// from the basket at submission time.
const (
	FieldPayment Field = "payment"
	FieldAddress Field = "address"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
)

// ParseField validates a field name coming from an intent event.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldPayment, FieldAddress, FieldEmail, FieldPhone:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownField, "%q", s)
	}
}

// Step is one of the two checkout sub-forms.
type Step string

const (
	// StepOrder collects the delivery address and payment method.
	StepOrder Step = "order"
	// StepContacts collects the email and phone.
	StepContacts Step = "contacts"
)

// Fields returns the fields owned by the step, in display order.
func (s Step) Fields() []Field {
	if s == StepContacts {
		return []Field{FieldEmail, FieldPhone}
	}
	return []Field{FieldAddress, FieldPayment}
}

// StepOf returns the step that owns the field.
func StepOf(f Field) Step {
	if f == FieldEmail || f == FieldPhone {
		return StepContacts
	}
	return StepOrder
}

// Draft is the in-progress checkout form.
type Draft struct {
	Payment PaymentMethod
	Email   string
	Phone   string
	Address string
	Total   decimal.Decimal
	Items   []string
}

// With returns a copy of d with field set to value.
func (d Draft) With(f Field, value string) Draft {
	switch f {
	case FieldPayment:
		d.Payment = ParsePaymentMethod(value)
	case FieldAddress:
		d.Address = value
	case FieldEmail:
		d.Email = value
	case FieldPhone:
		d.Phone = value
	}
	return d
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	if d.Items != nil {
		d.Items = append([]string(nil), d.Items...)
	}
	return d
}

// Complete reports whether every field required for submission is filled.
func (d Draft) Complete() bool {
	return d.Email != "" && d.Address != "" && d.Phone != ""
}

// Result is the order API's answer to a submission. A non-empty Error means
// the order was rejected.
type Result struct {
	ID    string
	Total decimal.Decimal
	Error string
}

// Service is the network boundary of the storefront.
type Service interface {
	FetchProducts(ctx context.Context) ([]product.Product, error)
	SubmitOrder(ctx context.Context, o Draft) (*Result, error)
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches the key identifying one checkout attempt.
// Submissions carrying the same key are the same order to the API.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKeyFromContext returns the key set by WithIdempotencyKey, or "".
func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}
