package tui

import (
	"fmt"
	"strings"

	"github.com/xenking/larek/internal/checkout"
	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/view"
)

// View implements tea.Model.
func (m *Model) View() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "WEBLAREK  basket: %d\n\n", m.page.Counter)

	switch m.screen {
	case Gallery:
		m.renderGallery(b)
	case PreviewScreen:
		m.renderPreview(b)
	case BasketScreen:
		m.renderBasket(b)
	case OrderScreen:
		m.renderOrder(b)
	case ContactsScreen:
		m.renderContacts(b)
	case ResultScreen:
		m.renderResult(b)
	}
	return b.String()
}

func (m *Model) renderGallery(b *strings.Builder) {
	if m.status != "" {
		fmt.Fprintln(b, m.status)
	}
	for i, c := range m.page.Cards {
		fmt.Fprintf(b, " %s [%s] %s  %s\n", marker(i == m.cursor, ">"), c.Category, c.Title, c.Price)
	}
	fmt.Fprintln(b, "\nup/down select, enter open, b basket, q quit")
}

func (m *Model) renderPreview(b *strings.Builder) {
	p := m.preview
	fmt.Fprintf(b, "[%s] %s\n", p.Category, p.Title)
	if p.Image != "" {
		fmt.Fprintln(b, p.Image)
	}
	fmt.Fprintf(b, "\n%s\n\n%s\n\n", p.Description, p.Price)
	fmt.Fprintf(b, "< %s >\n", p.Button)
	fmt.Fprintln(b, "\nenter add, esc close")
}

func (m *Model) renderBasket(b *strings.Builder) {
	fmt.Fprintln(b, "Basket")
	if len(m.basket.Items) == 0 {
		fmt.Fprintln(b, view.EmptyBasket)
	}
	for i, it := range m.basket.Items {
		fmt.Fprintf(b, " %s %d. %s  %s\n", marker(i == m.row, ">"), it.Index, it.Title, it.Price)
	}
	fmt.Fprintf(b, "\nTotal: %s\n", m.basket.Total)
	if m.basket.CanOrder {
		fmt.Fprintln(b, "\nenter checkout, d remove, esc close")
	} else {
		fmt.Fprintln(b, "\nesc close")
	}
}

func (m *Model) renderOrder(b *strings.Builder) {
	fmt.Fprintln(b, "Delivery")
	fmt.Fprintf(b, " %s Address: %s\n", marker(m.focus == 0, ">"), m.inputs[order.FieldAddress])

	active := m.store.Draft().Payment
	fmt.Fprintf(b, " %s Payment:", marker(m.focus == 1, ">"))
	for i, p := range paymentOptions {
		box := marker(p == active, "x")
		fmt.Fprintf(b, " %s[%s] %s", marker(m.focus == 1 && i == m.choice, "*"), box, p)
	}
	fmt.Fprintln(b)
	m.renderForm(b, order.StepOrder)
	fmt.Fprintln(b, "\ntab switch, space/enter pick payment, enter next, esc close")
}

func (m *Model) renderContacts(b *strings.Builder) {
	fmt.Fprintln(b, "Contacts")
	for i, f := range order.StepContacts.Fields() {
		fmt.Fprintf(b, " %s %s: %s\n", marker(m.focus == i, ">"), f, m.inputs[f])
	}
	m.renderForm(b, order.StepContacts)
	fmt.Fprintln(b, "\ntab switch, enter pay, esc close")
}

func (m *Model) renderForm(b *strings.Builder, step order.Step) {
	f, ok := m.forms[step]
	if !ok {
		return
	}
	if f.Errors != "" {
		fmt.Fprintf(b, "\n! %s\n", f.Errors)
	}
}

func (m *Model) renderResult(b *strings.Builder) {
	if m.state == checkout.Submitting {
		fmt.Fprintln(b, "Submitting order...")
		return
	}
	fmt.Fprintf(b, "%s\n%s\n", m.result.Title, m.result.Description)
	if m.state == checkout.Failure {
		fmt.Fprintln(b, "\nr retry, enter close")
		return
	}
	fmt.Fprintln(b, "\nenter close")
}

func marker(on bool, mark string) string {
	if on {
		return mark
	}
	return " "
}
