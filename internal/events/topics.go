package events

// Topics published by the store and the checkout coordinator.
const (
	CatalogChanged     = "catalog:changed"
	BasketOpened       = "basket:opened"
	BasketChanged      = "basket:changed"
	OrderReady         = "order:ready"
	OrderChanged       = "order:changed"
	FormErrorsChanged  = "form:errorsChanged"
	OrderResult        = "order:result"
	OrderPaymentReset  = "order:paymentReset"
	CheckoutState      = "checkout:state"
	ModalOpen          = "modal:open"
	ModalClose         = "modal:close"
	ProductSelect      = "product:select"
	ProductAddToBasket = "product:addToBasket"
	ProductRemove      = "product:removeFromBasket"
	OrderStart         = "order:start"
	OrderSetPayment    = "order:setPaymentType"
	OrderClear         = "order:clear"
)

// FieldChange returns the topic a form publishes when one of its inputs
// changes, e.g. "order.address:change".
func FieldChange(step, field string) string {
	return step + "." + field + ":change"
}

// Submit returns the topic a form publishes when submitted, e.g.
// "contacts:submit".
func Submit(step string) string {
	return step + ":submit"
}

// Form returns the topic carrying the validation state of one form, e.g.
// "order:form".
func Form(step string) string {
	return step + ":form"
}
