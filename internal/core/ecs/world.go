package ecs

import (
	"reflect"
	"sync"
)

// World is the top-level ECS container. It owns the entity pool, one
// component store per component type, the resource table and a deferred
// destruction queue flushed once per frame.
//
// Store and resource lookups and MarkForDestruction may happen from
// parallel tasks; the maps and the queue are guarded. The data inside a
// store or resource is not.
type World struct {
	pool *EntityPool

	qmu          sync.Mutex
	destroyQueue []EntityID

	mu        sync.RWMutex
	stores    map[reflect.Type]Removable
	resources map[reflect.Type]any
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		destroyQueue: make([]EntityID, 0, 64),
		stores:       make(map[reflect.Type]Removable, 16),
		resources:    make(map[reflect.Type]any, 16),
	}
}

func (w *World) Pool() *EntityPool { return w.pool }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// MarkForDestruction queues an entity for end-of-frame cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.qmu.Lock()
	w.destroyQueue = append(w.destroyQueue, id)
	w.qmu.Unlock()
}

// FlushDestroyQueue destroys all queued entities, clears their components
// and returns the ids that were actually alive.
func (w *World) FlushDestroyQueue() []EntityID {
	w.qmu.Lock()
	queue := w.destroyQueue
	w.destroyQueue = make([]EntityID, 0, cap(queue))
	w.qmu.Unlock()
	if len(queue) == 0 {
		return nil
	}
	w.mu.RLock()
	stores := make([]Removable, 0, len(w.stores))
	for _, s := range w.stores {
		stores = append(stores, s)
	}
	w.mu.RUnlock()

	destroyed := make([]EntityID, 0, len(queue))
	for _, id := range queue {
		if !w.pool.Destroy(id) {
			continue
		}
		for _, s := range stores {
			s.Remove(id)
		}
		destroyed = append(destroyed, id)
	}
	return destroyed
}

// Store returns the component store for T, creating it on first use.
func Store[T any](w *World) *PtrComponentStore[T] {
	t := typeKey[T]()
	w.mu.RLock()
	s, ok := w.stores[t]
	w.mu.RUnlock()
	if ok {
		return s.(*PtrComponentStore[T])
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.stores[t]; ok {
		return s.(*PtrComponentStore[T])
	}
	store := NewPtrComponentStore[T]()
	w.stores[t] = store
	return store
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
