package collab

import (
	"reflect"
	"sync"

	"github.com/p2pkit/upgrader/pkg/interfaces"
)

// EventBus is a minimal, in-process publish/subscribe bus keyed by the
// concrete type of the event value, enough for the two connection lifecycle
// events the upgrader dispatches.
type EventBus struct {
	mu   sync.RWMutex
	subs map[reflect.Type][]chan interface{}
}

var _ interfaces.EventBus = (*EventBus)(nil)

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[reflect.Type][]chan interface{})}
}

func (b *EventBus) Emitter(evtType interface{}) (interfaces.Emitter, error) {
	return &emitter{bus: b, t: reflect.TypeOf(evtType)}, nil
}

// Subscribe returns a channel that receives every event whose type matches
// a zero value of T. Callers must drain it: Emit never blocks, and an event
// emitted while this subscriber's internal buffer (of size buffer) is full
// is dropped for this subscriber.
func Subscribe[T any](b *EventBus, buffer int) <-chan T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	raw := make(chan interface{}, buffer)

	b.mu.Lock()
	b.subs[t] = append(b.subs[t], raw)
	b.mu.Unlock()

	out := make(chan T, buffer)
	go func() {
		defer close(out)
		for v := range raw {
			out <- v.(T)
		}
	}()
	return out
}

type emitter struct {
	bus *EventBus
	t   reflect.Type
}

func (e *emitter) Emit(evt interface{}) error {
	e.bus.mu.RLock()
	subs := e.bus.subs[e.t]
	e.bus.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (e *emitter) Close() error { return nil }
