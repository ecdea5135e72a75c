// Package view builds the plain snapshots renderers draw from store state.
package view

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/larek/internal/checkout"
	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
)

// Display texts.
const (
	Priceless       = "Priceless"
	ButtonAdd       = "Add to basket"
	ButtonInBasket  = "Already in basket"
	ButtonDisabled  = "Unavailable"
	EmptyBasket     = "Basket is empty"
	TitleSuccess    = "Order placed"
	TitleFailure    = "Order failed"
	currencySuffix  = " synapses"
	chargedPrefix   = "Charged "
	errorsSeparator = ", "
)

// Money formats an amount in the storefront currency.
func Money(d decimal.Decimal) string {
	return d.String() + currencySuffix
}

// Price formats a product price, or Priceless when it is not for sale.
func Price(p decimal.NullDecimal) string {
	if !p.Valid {
		return Priceless
	}
	return Money(p.Decimal)
}

// Card is a product tile in the gallery.
type Card struct {
	ID       string
	Title    string
	Image    string
	Category string
	Style    string
	Price    string
	Button   string
	Disabled bool
}

// NewCard builds the card of p. inBasket disables the add button.
func NewCard(p product.Product, inBasket bool) Card {
	c := Card{
		ID:       p.ID,
		Title:    p.Title,
		Image:    p.Image,
		Category: string(p.Category),
		Style:    p.Category.Style(),
		Price:    Price(p.Price),
	}
	switch {
	case !p.Purchasable():
		c.Button, c.Disabled = ButtonDisabled, true
	case inBasket:
		c.Button, c.Disabled = ButtonInBasket, true
	default:
		c.Button = ButtonAdd
	}
	return c
}

// Preview is the expanded product view.
type Preview struct {
	Card
	Description string
}

// NewPreview builds the preview of p.
func NewPreview(p product.Product, inBasket bool) Preview {
	return Preview{Card: NewCard(p, inBasket), Description: p.Description}
}

// BasketItem is one basket row. Index is 1-based.
type BasketItem struct {
	Index int
	ID    string
	Title string
	Price string
}

// BasketView is the basket modal.
type BasketView struct {
	Items    []BasketItem
	Total    string
	CanOrder bool
}

// NewBasket builds the basket view from the basket members in insertion
// order.
func NewBasket(items []product.Product, total decimal.Decimal) BasketView {
	v := BasketView{
		Items:    make([]BasketItem, 0, len(items)),
		Total:    Money(total),
		CanOrder: len(items) > 0,
	}
	for i, p := range items {
		v.Items = append(v.Items, BasketItem{
			Index: i + 1,
			ID:    p.ID,
			Title: p.Title,
			Price: Price(p.Price),
		})
	}
	return v
}

// Form is the rendered state of one checkout form.
type Form struct {
	Step   order.Step
	Errors string
	Valid  bool
}

// NewForm joins the messages of s into a single line.
func NewForm(step order.Step, s order.FormState) Form {
	return Form{
		Step:   step,
		Errors: strings.Join(s.Errors, errorsSeparator),
		Valid:  s.Valid,
	}
}

// ResultView is the final checkout screen.
type ResultView struct {
	Title       string
	Description string
}

// NewResult renders a submission outcome.
func NewResult(o checkout.Outcome) ResultView {
	if !o.OK {
		return ResultView{Title: TitleFailure, Description: o.Message}
	}
	return ResultView{Title: TitleSuccess, Description: chargedPrefix + Money(o.Total)}
}

// Page is the storefront page: the basket counter and the gallery.
type Page struct {
	Counter int
	Cards   []Card
}

// Basket reports basket membership for page rendering.
type Basket interface {
	InBasket(id string) bool
	BasketLen() int
}

// NewPage builds the gallery from the catalog.
func NewPage(catalog []product.Product, b Basket) Page {
	p := Page{Counter: b.BasketLen(), Cards: make([]Card, 0, len(catalog))}
	for _, item := range catalog {
		p.Cards = append(p.Cards, NewCard(item, b.InBasket(item.ID)))
	}
	return p
}
