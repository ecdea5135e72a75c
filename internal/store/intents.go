package store

import (
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/domain/product"
	"github.com/xenking/larek/internal/events"
)

// Listen subscribes the store to the basket intents emitted by views. The
// returned function removes the subscriptions.
func (s *Store) Listen() (stop func()) {
	offAdd := s.bus.On(events.ProductAddToBasket, func(e events.Event) {
		if p, ok := s.intentProduct(e); ok {
			s.AddToBasket(p)
		}
	})
	offRemove := s.bus.On(events.ProductRemove, func(e events.Event) {
		if p, ok := s.intentProduct(e); ok {
			s.RemoveFromBasket(p)
		}
	})
	return func() {
		offAdd()
		offRemove()
	}
}

func (s *Store) intentProduct(e events.Event) (product.Product, bool) {
	p, ok := e.Payload.(product.Product)
	if !ok {
		s.lg.Error("Unexpected basket intent payload", zap.String("topic", e.Topic))
	}
	return p, ok
}
