package system

import (
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/scheduler/internal/component"
	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/event"
	"github.com/l1jgo/scheduler/internal/core/executor"
	coresys "github.com/l1jgo/scheduler/internal/core/system"
)

func newWorld() *ecs.World {
	w := ecs.NewWorld()
	ecs.InsertResource(w, executor.NewPool(2))
	return w
}

func TestMotionBundleMovesAndCleansUp(t *testing.T) {
	w := newWorld()
	bus := event.NewBus()
	ecs.InsertResource(w, bus)
	coresys.EnsureFrameResources(w)

	var destroyed []ecs.EntityID
	event.Subscribe(bus, func(e event.EntityDestroyed) { destroyed = append(destroyed, e.Entity) })

	mover := w.CreateEntity()
	ecs.Store[component.Position](w).Set(mover, &component.Position{})
	ecs.Store[component.Velocity](w).Set(mover, &component.Velocity{DX: 2, DY: -1})

	d, err := coresys.NewDispatcherBuilder().
		WithBundle(MotionBundle()).
		WithBundle(event.Bundle()).
		Build(w)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Len(coresys.StageLogic) != 1 || d.Len(coresys.StageThreadLocal) != 2 {
		t.Fatalf("logic=%d thread_local=%d", d.Len(coresys.StageLogic), d.Len(coresys.StageThreadLocal))
	}

	r := coresys.NewRunner(d, w, nil)
	r.Tick(500 * time.Millisecond)

	p, _ := ecs.Store[component.Position](w).Get(mover)
	if p.X != 1 || p.Y != -0.5 {
		t.Errorf("position = %+v, want {1 -0.5}", *p)
	}

	w.MarkForDestruction(mover)
	r.Tick(500 * time.Millisecond)
	if w.Alive(mover) {
		t.Error("entity survived cleanup")
	}
	if len(destroyed) != 1 || destroyed[0] != mover {
		t.Errorf("destroyed events = %v", destroyed)
	}
}

func TestMotionDescNeedsClock(t *testing.T) {
	_, err := coresys.NewDispatcherBuilder().
		WithSystemDesc(coresys.StageLogic, NewMotionDesc()).
		Build(newWorld())
	if !errors.Is(err, errNoClock) {
		t.Fatalf("err = %v, want errNoClock", err)
	}
}
