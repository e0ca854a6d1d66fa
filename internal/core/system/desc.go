package system

import (
	"errors"

	"github.com/l1jgo/scheduler/internal/core/ecs"
)

// noStage marks descriptors that are not bound to a stage (bundles).
const noStage Stage = -1

var (
	errNilTask        = errors.New("descriptor produced a nil task")
	errNilThreadLocal = errors.New("descriptor produced a nil thread local")
)

// consumer is the deferred-construction contract shared by every queued
// descriptor. consume is called exactly once, during Build: it either
// appends to d or registers further descriptors into b.
type consumer interface {
	consume(w *ecs.World, d *Dispatcher, b *DispatcherBuilder) error
	kind() string
}

type prebuiltSystem struct {
	stage Stage
	task  Task
}

func (s prebuiltSystem) kind() string { return "system" }

func (s prebuiltSystem) consume(_ *ecs.World, d *Dispatcher, _ *DispatcherBuilder) error {
	d.push(s.stage, s.task)
	return nil
}

type deferredSystem struct {
	stage Stage
	desc  SystemDesc
}

func (s deferredSystem) kind() string { return "system desc" }

func (s deferredSystem) consume(w *ecs.World, d *Dispatcher, _ *DispatcherBuilder) error {
	task, err := s.desc.Build(w)
	if err != nil {
		return err
	}
	if task == nil {
		return errNilTask
	}
	d.push(s.stage, task)
	return nil
}

type prebuiltThreadLocal struct {
	local ThreadLocal
}

func (s prebuiltThreadLocal) kind() string { return "thread local" }

func (s prebuiltThreadLocal) consume(_ *ecs.World, d *Dispatcher, _ *DispatcherBuilder) error {
	d.threadLocals = append(d.threadLocals, s.local)
	return nil
}

type deferredThreadLocal struct {
	desc ThreadLocalDesc
}

func (s deferredThreadLocal) kind() string { return "thread local desc" }

func (s deferredThreadLocal) consume(w *ecs.World, d *Dispatcher, _ *DispatcherBuilder) error {
	local, err := s.desc.Build(w)
	if err != nil {
		return err
	}
	if local == nil {
		return errNilThreadLocal
	}
	d.threadLocals = append(d.threadLocals, local)
	return nil
}

type bundleDesc struct {
	bundle Bundle
}

func (s bundleDesc) kind() string { return "bundle" }

func (s bundleDesc) consume(w *ecs.World, _ *Dispatcher, b *DispatcherBuilder) error {
	return s.bundle.Build(w, b)
}
