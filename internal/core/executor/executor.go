// Package executor runs one stage's batch of parallel tasks against a shared
// world. Tasks whose declared accesses conflict keep their registration
// order; everything else is fanned out over the pool.
package executor

import (
	"fmt"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	"golang.org/x/sync/errgroup"
)

// Runnable is the capability the executor needs from a parallel task.
type Runnable interface {
	Access() Access
	Run(w *ecs.World)
}

// Plan groups task indices into waves. A task lands one wave after the
// latest earlier task it conflicts with, so waves run back to back and
// tasks inside a wave are mutually safe.
func Plan[T Runnable](tasks []T) [][]int {
	if len(tasks) == 0 {
		return nil
	}
	accesses := make([]Access, len(tasks))
	for i, t := range tasks {
		accesses[i] = t.Access()
	}

	level := make([]int, len(tasks))
	depth := 0
	for i := range tasks {
		for j := 0; j < i; j++ {
			if level[j] >= level[i] && accesses[i].Conflicts(accesses[j]) {
				level[i] = level[j] + 1
			}
		}
		if level[i]+1 > depth {
			depth = level[i] + 1
		}
	}

	waves := make([][]int, depth)
	for i, l := range level {
		waves[l] = append(waves[l], i)
	}
	return waves
}

// Execute runs every task once and returns when the whole batch is done.
// A panic in a task is re-raised on the calling goroutine once its wave has
// drained.
func Execute[T Runnable](pool *Pool, tasks []T, w *ecs.World) {
	if pool == nil {
		panic("executor: nil pool")
	}
	for _, wave := range Plan(tasks) {
		if len(wave) == 1 {
			tasks[wave[0]].Run(w)
			continue
		}

		var g errgroup.Group
		g.SetLimit(pool.Workers())
		for _, idx := range wave {
			task := tasks[idx]
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = &taskPanic{value: r}
					}
				}()
				task.Run(w)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			panic(err.(*taskPanic).value)
		}
	}
}

type taskPanic struct {
	value any
}

func (p *taskPanic) Error() string {
	return fmt.Sprintf("task panicked: %v", p.value)
}
