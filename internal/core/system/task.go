package system

import (
	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/executor"
)

// Task is a unit of work that may run concurrently with the other tasks of
// its stage, subject to the conflicts its Access declares.
type Task interface {
	executor.Runnable
	Name() string
}

// ThreadLocal is a unit of work that runs alone, in registration order,
// during StageThreadLocal.
type ThreadLocal interface {
	Run(w *ecs.World)
}

// SystemDesc builds a Task once the world is populated.
type SystemDesc interface {
	Build(w *ecs.World) (Task, error)
}

// ThreadLocalDesc builds a ThreadLocal once the world is populated.
type ThreadLocalDesc interface {
	Build(w *ecs.World) (ThreadLocal, error)
}

// Bundle registers further systems, thread-locals or bundles into b.
// It never produces tasks itself.
type Bundle interface {
	Build(w *ecs.World, b *DispatcherBuilder) error
}

type ThreadLocalFunc func(w *ecs.World)

func (f ThreadLocalFunc) Run(w *ecs.World) { f(w) }

type SystemDescFunc func(w *ecs.World) (Task, error)

func (f SystemDescFunc) Build(w *ecs.World) (Task, error) { return f(w) }

type ThreadLocalDescFunc func(w *ecs.World) (ThreadLocal, error)

func (f ThreadLocalDescFunc) Build(w *ecs.World) (ThreadLocal, error) { return f(w) }

type BundleFunc func(w *ecs.World, b *DispatcherBuilder) error

func (f BundleFunc) Build(w *ecs.World, b *DispatcherBuilder) error { return f(w, b) }

// NewTask wraps fn as a named Task with the given access declaration.
func NewTask(name string, access executor.Access, fn func(w *ecs.World)) Task {
	return &funcTask{name: name, access: access, fn: fn}
}

type funcTask struct {
	name   string
	access executor.Access
	fn     func(w *ecs.World)
}

func (t *funcTask) Name() string            { return t.name }
func (t *funcTask) Access() executor.Access { return t.access }
func (t *funcTask) Run(w *ecs.World)        { t.fn(w) }
