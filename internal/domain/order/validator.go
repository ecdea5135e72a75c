package order

import "regexp"

// Validation messages shown next to the forms.
const (
	MsgEmail   = "Enter a valid email"
	MsgPhone   = "Enter a valid phone number"
	MsgAddress = "Enter a delivery address"
	MsgPayment = "Choose a payment method"
)

var (
	emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phoneRe = regexp.MustCompile(`^\+7\d{10}$`)
)

// Errors maps a draft field to a human-readable message. A missing key means
// the field is valid.
type Errors map[Field]string

// Empty reports whether there are no errors.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// FormState is the slice of Errors owned by one step.
type FormState struct {
	Errors []string
	Valid  bool
}

// Form returns the state of the form for step s, keeping only the fields it
// owns.
func (e Errors) Form(s Step) FormState {
	var msgs []string
	for _, f := range s.Fields() {
		if m, ok := e[f]; ok {
			msgs = append(msgs, m)
		}
	}
	return FormState{Errors: msgs, Valid: len(msgs) == 0}
}

// Validate runs the validator of the step that owns field and returns that
// step along with its errors.
func Validate(field Field, d Draft) (Step, Errors) {
	s := StepOf(field)
	if s == StepContacts {
		return s, ValidateContacts(d)
	}
	return s, ValidateDelivery(d)
}

// ValidateContacts checks email and phone together; changing either field
// re-reports both.
func ValidateContacts(d Draft) Errors {
	errs := Errors{}
	if !emailRe.MatchString(d.Email) {
		errs[FieldEmail] = MsgEmail
	}
	if !phoneRe.MatchString(d.Phone) {
		errs[FieldPhone] = MsgPhone
	}
	return errs
}

// ValidateDelivery reports at most one error: the address is checked first
// and the payment method only once an address is present.
func ValidateDelivery(d Draft) Errors {
	errs := Errors{}
	switch {
	case d.Address == "":
		errs[FieldAddress] = MsgAddress
	case d.Payment == PaymentNone:
		errs[FieldPayment] = MsgPayment
	}
	return errs
}
