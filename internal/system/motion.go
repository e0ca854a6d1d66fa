package system

import (
	"errors"

	"github.com/l1jgo/scheduler/internal/component"
	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/executor"
	coresys "github.com/l1jgo/scheduler/internal/core/system"
)

var errNoClock = errors.New("frame clock resource not present")

// MotionSystem integrates Velocity into Position. Logic stage.
type MotionSystem struct {
	clock *coresys.Time
}

func (s *MotionSystem) Name() string { return "motion" }

func (s *MotionSystem) Access() executor.Access {
	return executor.Access{
		Reads:  []string{"component.Velocity", "resource.Time"},
		Writes: []string{"component.Position"},
	}
}

func (s *MotionSystem) Run(w *ecs.World) {
	dt := s.clock.DeltaSeconds()
	ecs.Each2(ecs.Store[component.Position](w), ecs.Store[component.Velocity](w),
		func(_ ecs.EntityID, p *component.Position, v *component.Velocity) {
			p.X += v.DX * dt
			p.Y += v.DY * dt
		})
}

// NewMotionDesc defers construction until the *Time resource exists.
func NewMotionDesc() coresys.SystemDesc {
	return coresys.SystemDescFunc(func(w *ecs.World) (coresys.Task, error) {
		clock, ok := ecs.Resource[*coresys.Time](w)
		if !ok {
			return nil, errNoClock
		}
		return &MotionSystem{clock: clock}, nil
	})
}

// MotionBundle wires movement and end-of-frame entity cleanup.
func MotionBundle() coresys.Bundle {
	return coresys.BundleFunc(func(_ *ecs.World, b *coresys.DispatcherBuilder) error {
		b.AddSystemDesc(coresys.StageLogic, NewMotionDesc())
		b.AddThreadLocalDesc(coresys.ThreadLocalDescFunc(func(w *ecs.World) (coresys.ThreadLocal, error) {
			return NewCleanupSystem(w), nil
		}))
		return nil
	})
}
