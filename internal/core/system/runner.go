package system

import (
	"context"
	"time"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	"go.uber.org/zap"
)

// Runner drives a built dispatcher once per frame, stage by stage. Each
// stage fully drains before the next starts.
type Runner struct {
	dispatcher *Dispatcher
	world      *ecs.World
	clock      *Time
	stats      *FrameStats
	slowFrame  time.Duration
	log        *zap.Logger
}

func NewRunner(d *Dispatcher, w *ecs.World, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	clock, stats := EnsureFrameResources(w)
	return &Runner{
		dispatcher: d,
		world:      w,
		clock:      clock,
		stats:      stats,
		log:        log,
	}
}

// SetSlowFrame enables a warning for frames longer than limit. Zero
// disables it.
func (r *Runner) SetSlowFrame(limit time.Duration) {
	r.slowFrame = limit
}

// Tick advances the clock by dt and runs Begin, Logic, Render and
// ThreadLocal in that order.
func (r *Runner) Tick(dt time.Duration) {
	r.clock.Frame++
	r.clock.Delta = dt
	r.clock.Elapsed += dt

	var stages [4]time.Duration
	frameStart := time.Now()
	for _, stage := range FrameOrder() {
		start := time.Now()
		r.dispatcher.Run(stage, r.world)
		stages[stage] = time.Since(start)
	}
	total := time.Since(frameStart)

	r.stats.Frame = r.clock.Frame
	r.stats.Stages = stages
	r.stats.Total = total

	if r.slowFrame > 0 && total > r.slowFrame {
		r.log.Warn("slow frame",
			zap.Uint64("frame", r.clock.Frame),
			zap.Duration("total", total),
			zap.Duration("begin", stages[StageBegin]),
			zap.Duration("logic", stages[StageLogic]),
			zap.Duration("render", stages[StageRender]),
			zap.Duration("thread_local", stages[StageThreadLocal]),
		)
	}
}

// Loop ticks on a fixed interval until ctx is done. The delta handed to
// each frame is the measured wall time since the previous one.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("frame loop stopped", zap.Uint64("frames", r.clock.Frame))
			return
		case now := <-ticker.C:
			r.Tick(now.Sub(last))
			last = now
		}
	}
}
