package system

import (
	"fmt"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/executor"
)

// Dispatcher is a realized schedule: one ordered task bucket per parallel
// stage plus an ordered list of thread-locals. It is not safe for
// concurrent use.
type Dispatcher struct {
	stages       map[Stage][]Task
	threadLocals []ThreadLocal
	pool         *executor.Pool
}

// NewDispatcher returns a dispatcher with every parallel bucket present and
// empty.
func NewDispatcher() *Dispatcher {
	stages := make(map[Stage][]Task, 3)
	for _, s := range ParallelStages() {
		stages[s] = nil
	}
	return &Dispatcher{stages: stages}
}

// SetPool injects the worker pool used by parallel stages. Without one, Run
// looks the pool up in the world's resources.
func (d *Dispatcher) SetPool(pool *executor.Pool) {
	d.pool = pool
}

// Run executes one stage. StageThreadLocal runs every thread-local in order
// on the calling goroutine; any other stage hands its bucket to the executor
// and blocks until the whole batch completes.
//
// Run panics when a parallel stage has no pool available: that is a wiring
// bug, not a runtime condition.
func (d *Dispatcher) Run(stage Stage, w *ecs.World) {
	if stage == StageThreadLocal {
		for _, local := range d.threadLocals {
			local.Run(w)
		}
		return
	}

	tasks, ok := d.stages[stage]
	if !ok {
		panic(fmt.Sprintf("system: dispatcher has no bucket for %s", stage))
	}
	pool := d.pool
	if pool == nil {
		pool = ecs.MustResource[*executor.Pool](w)
	}
	executor.Execute(pool, tasks, w)
}

// Merge appends other's thread-locals and, per stage, other's tasks after
// d's own. other is consumed and must not be used afterwards; merging a
// dispatcher into itself panics and leaves it unchanged.
func (d *Dispatcher) Merge(other *Dispatcher) *Dispatcher {
	if other == d {
		panic("system: dispatcher merged into itself")
	}
	d.threadLocals = append(d.threadLocals, other.threadLocals...)
	for stage, tasks := range d.stages {
		theirs, ok := other.stages[stage]
		if !ok {
			panic(fmt.Sprintf("system: merged dispatcher has no bucket for %s", stage))
		}
		d.stages[stage] = append(tasks, theirs...)
	}
	if d.pool == nil {
		d.pool = other.pool
	}

	other.stages = nil
	other.threadLocals = nil
	other.pool = nil
	return d
}

// Len returns the number of tasks in a parallel stage, or the number of
// thread-locals for StageThreadLocal.
func (d *Dispatcher) Len(stage Stage) int {
	if stage == StageThreadLocal {
		return len(d.threadLocals)
	}
	return len(d.stages[stage])
}

// TaskNames lists a parallel stage's tasks in execution-plan order.
func (d *Dispatcher) TaskNames(stage Stage) []string {
	tasks := d.stages[stage]
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name()
	}
	return names
}

func (d *Dispatcher) push(stage Stage, task Task) {
	if _, ok := d.stages[stage]; !ok {
		panic(fmt.Sprintf("system: cannot schedule task %q in %s", task.Name(), stage))
	}
	d.stages[stage] = append(d.stages[stage], task)
}
