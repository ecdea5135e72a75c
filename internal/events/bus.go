// Package events implements the synchronous publish/subscribe bus that
// couples the storefront state to its views.
//
// The bus is single-threaded: Publish runs every matching handler in
// registration order before returning, and a handler may publish further
// topics, which are delivered depth-first. Handler panics are not recovered.
package events

import "strings"

// Event is delivered to handlers.
type Event struct {
	Topic   string
	Payload any
}

// Handler reacts to a published event.
type Handler func(e Event)

// Matcher decides whether a subscription receives a topic.
type Matcher interface {
	Match(topic string) bool
}

// Exact matches one topic string.
type Exact string

// Match implements Matcher.
func (x Exact) Match(topic string) bool {
	return string(x) == topic
}

// Pattern matches every topic accepted by the predicate.
type Pattern func(topic string) bool

// Match implements Matcher.
func (p Pattern) Match(topic string) bool {
	return p(topic)
}

// StepPattern matches topics of the form "<step><sep>...<suffix>" for any of
// the given steps. StepPattern(":change", ".", "order", "contacts") accepts
// "order.address:change" and "contacts.email:change";
// StepPattern(":submit", "", "order") accepts exactly "order:submit".
func StepPattern(suffix, sep string, steps ...string) Pattern {
	return func(topic string) bool {
		if !strings.HasSuffix(topic, suffix) {
			return false
		}
		head := strings.TrimSuffix(topic, suffix)
		for _, s := range steps {
			if sep == "" {
				if head == s {
					return true
				}
				continue
			}
			if rest, ok := strings.CutPrefix(head, s+sep); ok && rest != "" {
				return true
			}
		}
		return false
	}
}

type subscription struct {
	id      uint64
	matcher Matcher
	handler Handler
	removed bool
}

// Bus dispatches events to subscribers. The zero value is ready to use. A
// Bus must only be used from one goroutine.
type Bus struct {
	nextID uint64
	subs   []*subscription
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h for every topic accepted by m and returns a function
// that removes the registration.
func (b *Bus) Subscribe(m Matcher, h Handler) (unsubscribe func()) {
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, &subscription{id: id, matcher: m, handler: h})
	return func() { b.remove(id) }
}

// On is shorthand for Subscribe(Exact(topic), h).
func (b *Bus) On(topic string, h Handler) (unsubscribe func()) {
	return b.Subscribe(Exact(topic), h)
}

// Publish delivers payload to every subscriber whose matcher accepts topic.
// Subscriptions added while publishing are not invoked by this call.
func (b *Bus) Publish(topic string, payload any) {
	subs := b.subs
	e := Event{Topic: topic, Payload: payload}
	for _, s := range subs {
		if !s.removed && s.matcher.Match(topic) {
			s.handler(e)
		}
	}
}

// UnsubscribeAll removes every registration.
func (b *Bus) UnsubscribeAll() {
	for _, s := range b.subs {
		s.removed = true
	}
	b.subs = nil
}

// Len returns the number of registered subscriptions.
func (b *Bus) Len() int {
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	for i, s := range b.subs {
		if s.id == id {
			s.removed = true
			// Copy so that an in-flight Publish keeps iterating its own slice.
			next := make([]*subscription, 0, len(b.subs)-1)
			next = append(next, b.subs[:i]...)
			b.subs = append(next, b.subs[i+1:]...)
			return
		}
	}
}
