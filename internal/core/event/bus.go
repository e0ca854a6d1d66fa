package event

import (
	"reflect"
	"sync"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/system"
)

// Bus is a double-buffered event bus. Events emitted while the parallel
// stages run are delivered once, by FlushSystem, in the same frame's
// thread-local stage. Event types are delivered in the order the bus
// first saw them, through Emit or Subscribe.
type Bus struct {
	mu       sync.Mutex // guards back, handlers and order; Emit runs from parallel tasks
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]any
	order    []reflect.Type
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	b.track(t)
	b.back[t] = append(b.back[t], event)
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	b.track(t)
	b.handlers[t] = append(b.handlers[t], fn)
	b.mu.Unlock()
}

// track records t in delivery order. Caller holds b.mu.
func (b *Bus) track(t reflect.Type) {
	if _, seen := b.back[t]; seen {
		return
	}
	if _, seen := b.handlers[t]; seen {
		return
	}
	if _, seen := b.front[t]; seen {
		return
	}
	b.order = append(b.order, t)
}

// SwapBuffers rotates back→front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
	b.mu.Unlock()
}

// DispatchAll delivers all front-buffer events to their subscribed
// handlers, type by type in first-seen order and in emission order within
// a type.
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	order := b.order
	b.mu.Unlock()
	for _, t := range order {
		events := b.front[t]
		if len(events) == 0 {
			continue
		}
		b.mu.Lock()
		handlers := b.handlers[t]
		b.mu.Unlock()
		for _, ev := range events {
			for _, h := range handlers {
				reflect.ValueOf(h).Call([]reflect.Value{reflect.ValueOf(ev)})
			}
		}
	}
}

// Pending returns the number of events waiting in the back buffer.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, events := range b.back {
		n += len(events)
	}
	return n
}

// FlushSystem swaps and delivers the world's bus once per frame.
type FlushSystem struct {
	bus *Bus
}

func (s *FlushSystem) Run(_ *ecs.World) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// Bundle registers the flush thread-local. The world must carry a *Bus
// resource by the time the thread-local is resolved.
func Bundle() system.Bundle {
	return system.BundleFunc(func(_ *ecs.World, b *system.DispatcherBuilder) error {
		b.AddThreadLocalDesc(system.ThreadLocalDescFunc(func(w *ecs.World) (system.ThreadLocal, error) {
			bus, ok := ecs.Resource[*Bus](w)
			if !ok {
				return nil, errNoBus
			}
			return &FlushSystem{bus: bus}, nil
		}))
		return nil
	})
}
