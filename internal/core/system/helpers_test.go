package system

import (
	"sync"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/executor"
)

// journal records execution order across tasks and thread-locals.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(name string) {
	j.mu.Lock()
	j.entries = append(j.entries, name)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// serialTask conflicts with every other task, so a bucket of them runs in
// registration order.
func serialTask(j *journal, name string) Task {
	return NewTask(name, executor.Access{Exclusive: true}, func(*ecs.World) { j.add(name) })
}

func local(j *journal, name string) ThreadLocal {
	return ThreadLocalFunc(func(*ecs.World) { j.add(name) })
}

func newWorld() *ecs.World {
	w := ecs.NewWorld()
	ecs.InsertResource(w, executor.NewPool(4))
	return w
}
