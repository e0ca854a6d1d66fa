package system

import (
	"time"

	"github.com/l1jgo/scheduler/internal/core/ecs"
)

// Time is the frame clock resource. The Runner advances it before Begin.
type Time struct {
	Frame   uint64
	Delta   time.Duration
	Elapsed time.Duration
}

func (t *Time) DeltaSeconds() float64 { return t.Delta.Seconds() }

// FrameStats holds the stage timings of the last completed frame.
// Frame is 0 until one frame has finished.
type FrameStats struct {
	Frame  uint64
	Stages [4]time.Duration // indexed by Stage
	Total  time.Duration
}

func (s *FrameStats) Stage(stage Stage) time.Duration {
	return s.Stages[stage]
}

// EnsureFrameResources inserts the *Time and *FrameStats resources unless
// the world already has them, and returns whichever are present. Call it
// before Build when descriptors depend on either resource.
func EnsureFrameResources(w *ecs.World) (*Time, *FrameStats) {
	clock, ok := ecs.Resource[*Time](w)
	if !ok {
		clock = &Time{}
		ecs.InsertResource(w, clock)
	}
	stats, ok := ecs.Resource[*FrameStats](w)
	if !ok {
		stats = &FrameStats{}
		ecs.InsertResource(w, stats)
	}
	return clock, stats
}
