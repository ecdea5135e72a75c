// Package tui is the terminal storefront. It renders view snapshots and
// turns key presses into intents on the event bus.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/checkout"
	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
	"github.com/xenking/larek/internal/events"
	"github.com/xenking/larek/internal/store"
	"github.com/xenking/larek/internal/view"
)

// Screen is the part of the storefront currently shown.
type Screen int

// Screens.
const (
	Gallery Screen = iota
	PreviewScreen
	BasketScreen
	OrderScreen
	ContactsScreen
	ResultScreen
)

var paymentOptions = []order.PaymentMethod{order.PaymentCard, order.PaymentCash}

// catalogMsg is the answer of the initial catalog fetch.
type catalogMsg struct {
	products []product.Product
	err      error
}

// Model is the bubbletea model of the storefront. All bus traffic happens
// inside Update, on the program goroutine.
type Model struct {
	ctx    context.Context
	bus    *events.Bus
	store  *store.Store
	orders order.Service
	runner *Runner
	lg     *zap.Logger

	screen  Screen
	state   checkout.State
	cursor  int
	row     int
	focus   int
	choice  int
	status  string
	page    view.Page
	preview view.Preview
	current product.Product
	basket  view.BasketView
	forms   map[order.Step]view.Form
	result  view.ResultView
	inputs  map[order.Field]string
}

// New creates the model and subscribes it to the bus. runner must be the
// Runner the checkout coordinator was built with.
func New(ctx context.Context, bus *events.Bus, st *store.Store, orders order.Service, runner *Runner, lg *zap.Logger) *Model {
	m := &Model{
		ctx:    ctx,
		bus:    bus,
		store:  st,
		orders: orders,
		runner: runner,
		lg:     lg,
		status: "Loading catalog...",
		forms:  make(map[order.Step]view.Form),
		inputs: make(map[order.Field]string),
	}
	m.subscribe()
	return m
}

func (m *Model) subscribe() {
	m.bus.On(events.CatalogChanged, func(events.Event) {
		m.status = ""
		m.refreshPage()
	})
	m.bus.On(events.ProductSelect, func(e events.Event) {
		p, ok := e.Payload.(product.Product)
		if !ok {
			return
		}
		m.current = p
		m.preview = view.NewPreview(p, m.store.InBasket(p.ID))
		m.screen = PreviewScreen
	})
	m.bus.On(events.BasketOpened, func(e events.Event) {
		m.onBasket(e)
		m.screen = BasketScreen
	})
	m.bus.On(events.BasketChanged, m.onBasket)
	m.bus.On(events.Form(string(order.StepOrder)), m.onForm(order.StepOrder))
	m.bus.On(events.Form(string(order.StepContacts)), m.onForm(order.StepContacts))
	m.bus.On(events.OrderResult, func(e events.Event) {
		if o, ok := e.Payload.(checkout.Outcome); ok {
			m.result = view.NewResult(o)
		}
	})
	m.bus.On(events.OrderChanged, func(events.Event) {
		m.inputs = make(map[order.Field]string)
		m.forms = make(map[order.Step]view.Form)
	})
	m.bus.On(events.OrderPaymentReset, func(events.Event) {
		m.choice = 0
	})
	m.bus.On(events.CheckoutState, m.onState)
	m.bus.On(events.ModalClose, func(events.Event) {
		m.screen = Gallery
	})
}

func (m *Model) onBasket(e events.Event) {
	b, ok := e.Payload.(store.Basket)
	if !ok {
		return
	}
	m.basket = view.NewBasket(b.Products, b.Total)
	if m.row >= len(m.basket.Items) {
		m.row = max(len(m.basket.Items)-1, 0)
	}
	m.refreshPage()
}

func (m *Model) onForm(step order.Step) events.Handler {
	return func(e events.Event) {
		if s, ok := e.Payload.(order.FormState); ok {
			m.forms[step] = view.NewForm(step, s)
		}
	}
}

func (m *Model) onState(e events.Event) {
	sc, ok := e.Payload.(checkout.StateChange)
	if !ok {
		return
	}
	m.state = sc.To
	switch sc.To {
	case checkout.AddressStep:
		m.screen, m.focus = OrderScreen, 0
	case checkout.ContactStep:
		m.screen, m.focus = ContactsScreen, 0
	case checkout.Submitting, checkout.Success, checkout.Failure:
		m.screen = ResultScreen
	case checkout.Idle:
		m.screen = Gallery
	}
}

func (m *Model) refreshPage() {
	m.page = view.NewPage(m.store.Catalog(), m.store)
	if m.cursor >= len(m.page.Cards) {
		m.cursor = max(len(m.page.Cards)-1, 0)
	}
}

// Screen returns the screen being shown.
func (m *Model) Screen() Screen {
	return m.screen
}

// Init fetches the catalog.
func (m *Model) Init() tea.Cmd {
	return func() tea.Msg {
		products, err := m.orders.FetchProducts(m.ctx)
		return catalogMsg{products: products, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogMsg:
		if msg.err != nil {
			m.lg.Error("Fetch catalog", zap.Error(msg.err))
			m.status = "Catalog unavailable: " + msg.err.Error()
			return m, nil
		}
		m.store.SetCatalog(msg.products)
	case submitDoneMsg:
		msg.done(msg.res, msg.err)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if quit := m.handleKey(msg); quit {
			return m, tea.Quit
		}
	}
	return m, m.runner.Cmd()
}

func (m *Model) handleKey(k tea.KeyMsg) (quit bool) {
	switch m.screen {
	case Gallery:
		return m.galleryKey(k)
	case PreviewScreen:
		m.previewKey(k)
	case BasketScreen:
		m.basketKey(k)
	case OrderScreen:
		m.orderKey(k)
	case ContactsScreen:
		m.contactsKey(k)
	case ResultScreen:
		m.resultKey(k)
	}
	return false
}

func (m *Model) galleryKey(k tea.KeyMsg) bool {
	switch k.String() {
	case "q":
		return true
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, max(len(m.page.Cards)-1, 0))
	case "enter":
		if m.cursor < len(m.page.Cards) {
			if p, err := m.store.Product(m.page.Cards[m.cursor].ID); err == nil {
				m.bus.Publish(events.ProductSelect, p)
			}
		}
	case "b":
		m.basket = view.NewBasket(m.store.Basket(), m.store.TotalPrice())
		m.row = 0
		m.screen = BasketScreen
		m.bus.Publish(events.ModalOpen, BasketScreen)
	}
	return false
}

func (m *Model) previewKey(k tea.KeyMsg) {
	switch k.String() {
	case "esc":
		m.closeModal()
	case "enter", "a":
		if m.preview.Disabled {
			return
		}
		m.row = 0
		m.bus.Publish(events.ProductAddToBasket, m.current)
	}
}

func (m *Model) basketKey(k tea.KeyMsg) {
	switch k.String() {
	case "esc":
		m.closeModal()
	case "up", "k":
		m.row = max(m.row-1, 0)
	case "down", "j":
		m.row = min(m.row+1, max(len(m.basket.Items)-1, 0))
	case "d", "delete", "backspace":
		if m.row < len(m.basket.Items) {
			if p, err := m.store.Product(m.basket.Items[m.row].ID); err == nil {
				m.bus.Publish(events.ProductRemove, p)
			}
		}
	case "enter":
		if m.basket.CanOrder {
			m.bus.Publish(events.OrderStart, nil)
		}
	}
}

// orderKey handles the delivery form. The address is typed locally and
// committed when the field is left, so a half-typed address never satisfies
// the step while a payment method is already chosen.
func (m *Model) orderKey(k tea.KeyMsg) {
	switch k.String() {
	case "esc":
		m.commitAddress()
		m.closeModal()
		return
	case "tab", "shift+tab":
		if m.focus == 0 {
			m.commitAddress()
		}
		m.focus = 1 - m.focus
		return
	case "enter":
		if m.focus == 1 {
			m.togglePayment()
			return
		}
		m.commitAddress()
		if m.screen == OrderScreen {
			m.focus = 1
		}
		return
	}

	if m.focus == 1 {
		switch k.String() {
		case "left", "h":
			m.choice = 0
		case "right", "l":
			m.choice = 1
		case " ":
			m.togglePayment()
		}
		return
	}
	m.typeKey(order.FieldAddress, k)
}

// commitAddress publishes the typed address when it differs from the draft.
func (m *Model) commitAddress() {
	v := m.inputs[order.FieldAddress]
	if v == m.store.Draft().Address {
		return
	}
	m.publishField(order.StepOrder, order.FieldAddress, v)
}

// togglePayment selects the highlighted method, or clears it when it is
// already the active one.
func (m *Model) togglePayment() {
	method := paymentOptions[m.choice]
	if m.store.Draft().Payment == method {
		method = order.PaymentNone
	}
	m.bus.Publish(events.OrderSetPayment, checkout.PaymentChange{Method: string(method)})
}

func (m *Model) contactsKey(k tea.KeyMsg) {
	fields := order.StepContacts.Fields()
	switch k.String() {
	case "esc":
		m.closeModal()
	case "tab", "down":
		m.focus = (m.focus + 1) % len(fields)
	case "shift+tab", "up":
		m.focus = (m.focus + len(fields) - 1) % len(fields)
	case "enter":
		m.submitContacts()
	default:
		m.edit(order.StepContacts, fields[m.focus], k)
	}
}

func (m *Model) submitContacts() {
	if m.state == checkout.Submitting {
		return
	}
	m.bus.Publish(events.Submit(string(order.StepContacts)), nil)
}

func (m *Model) resultKey(k tea.KeyMsg) {
	switch k.String() {
	case "enter", "esc":
		if m.state == checkout.Success || m.state == checkout.Failure {
			m.bus.Publish(events.OrderClear, nil)
		}
	case "r":
		if m.state == checkout.Failure {
			m.submitContacts()
		}
	}
}

// edit applies a text key to a form input and publishes the change.
func (m *Model) edit(step order.Step, f order.Field, k tea.KeyMsg) {
	if m.typeKey(f, k) {
		m.publishField(step, f, m.inputs[f])
	}
}

// typeKey applies a text key to the local input of f and reports whether it
// changed.
func (m *Model) typeKey(f order.Field, k tea.KeyMsg) bool {
	v := m.inputs[f]
	switch k.Type {
	case tea.KeyRunes:
		v += string(k.Runes)
	case tea.KeySpace:
		v += " "
	case tea.KeyBackspace:
		r := []rune(v)
		if len(r) == 0 {
			return false
		}
		v = string(r[:len(r)-1])
	default:
		return false
	}
	m.inputs[f] = v
	return true
}

func (m *Model) publishField(step order.Step, f order.Field, v string) {
	m.bus.Publish(events.FieldChange(string(step), string(f)), checkout.FieldChange{
		Field: string(f),
		Value: v,
	})
}

func (m *Model) closeModal() {
	m.bus.Publish(events.ModalClose, nil)
}
