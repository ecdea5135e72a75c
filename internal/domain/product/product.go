package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category is a catalog tag as returned by the WebLarek API.
type Category string

// Known catalog categories.
const (
	CategorySoft       Category = "софт-скил"
	CategoryOther      Category = "другое"
	CategoryHard       Category = "хард-скил"
	CategoryAdditional Category = "дополнительное"
	CategoryButton     Category = "кнопка"
)

var categoryStyles = map[Category]string{
	CategorySoft:       "soft",
	CategoryOther:      "other",
	CategoryHard:       "hard",
	CategoryAdditional: "additional",
	CategoryButton:     "button",
}

// Style returns the display style key of the category. Unknown labels
// render as "other".
func (c Category) Style() string {
	if s, ok := categoryStyles[c]; ok {
		return s
	}
	return "other"
}

// Known reports whether c is one of the closed set of categories.
func (c Category) Known() bool {
	_, ok := categoryStyles[c]
	return ok
}

// Product represents a catalog item. A product without a price is shown in
// the catalog but can never be bought.
type Product struct {
	ID          string
	Title       string
	Description string
	Image       string
	Category    Category
	Price       decimal.NullDecimal
}

// Purchasable reports whether the product has a price.
func (p Product) Purchasable() bool {
	return p.Price.Valid
}

// Priced is a test and seeding helper that builds a NullDecimal price.
func Priced(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
