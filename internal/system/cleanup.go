package system

import (
	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/event"
)

// CleanupSystem flushes the deferred entity destruction queue at frame end
// and announces each destroyed entity on the bus, if the world has one.
// Thread-local.
type CleanupSystem struct {
	bus *event.Bus
}

func NewCleanupSystem(w *ecs.World) *CleanupSystem {
	bus, _ := ecs.Resource[*event.Bus](w)
	return &CleanupSystem{bus: bus}
}

func (s *CleanupSystem) Run(w *ecs.World) {
	for _, id := range w.FlushDestroyQueue() {
		if s.bus != nil {
			event.Emit(s.bus, event.EntityDestroyed{Entity: id})
		}
	}
}
