package ensemble

import (
	"sync"

	"github.com/google/uuid"
)

// EventStream is a synchronous, in-process pub/sub bus for runtime
// observability events (DeadLetterEvent, ActorRestartedEvent,
// ActorEscalatedEvent, and any application-defined event). Subscribers run
// in registration order on the publishing goroutine; a panicking subscriber
// is recovered and logged so it cannot take down the publisher.
type EventStream struct {
	system *System

	mu   sync.RWMutex
	subs []eventSubscription
}

type eventSubscription struct {
	id string
	fn func(event any)
}

func newEventStream(system *System) *EventStream {
	return &EventStream{system: system}
}

// Subscription is the handle returned by Subscribe; call Unsubscribe to stop
// receiving events. Grounded on hollywood's engine.go Subscribe/Unsubscribe
// pair, with a uuid-backed handle instead of a raw *Subscriber pointer.
type Subscription struct {
	id string
	es *EventStream
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	s.es.mu.Lock()
	defer s.es.mu.Unlock()
	for i, sub := range s.es.subs {
		if sub.id == s.id {
			s.es.subs = append(s.es.subs[:i], s.es.subs[i+1:]...)
			return
		}
	}
}

// Subscribe registers fn to run for every published event, until the
// returned Subscription is unsubscribed.
func (es *EventStream) Subscribe(fn func(event any)) Subscription {
	id := uuid.NewString()
	es.mu.Lock()
	es.subs = append(es.subs, eventSubscription{id: id, fn: fn})
	es.mu.Unlock()
	return Subscription{id: id, es: es}
}

func (es *EventStream) publish(event any) {
	es.mu.RLock()
	subs := make([]eventSubscription, len(es.subs))
	copy(subs, es.subs)
	es.mu.RUnlock()

	for _, sub := range subs {
		es.runOne(sub, event)
	}
}

func (es *EventStream) runOne(sub eventSubscription, event any) {
	defer func() {
		if r := recover(); r != nil {
			es.system.logger.Error().Interface("panic", r).Msg("event stream subscriber panicked")
		}
	}()
	sub.fn(event)
}
