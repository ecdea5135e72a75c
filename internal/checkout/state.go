package checkout

import "github.com/shopspring/decimal"

// State is a checkout state machine state.
type State int

// Checkout states.
const (
	Idle State = iota
	AddressStep
	ContactStep
	Submitting
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AddressStep:
		return "address"
	case ContactStep:
		return "contacts"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// StateChange is the payload of events.CheckoutState.
type StateChange struct {
	From State
	To   State
}

// FieldChange is the payload of "<step>.<field>:change" intents.
type FieldChange struct {
	Field string
	Value string
}

// PaymentChange is the payload of events.OrderSetPayment.
type PaymentChange struct {
	Method string
}

// Outcome is the payload of events.OrderResult. Success and failure share
// one rendering slot: Message is empty on success.
type Outcome struct {
	OK      bool
	OrderID string
	Total   decimal.Decimal
	Message string
}
