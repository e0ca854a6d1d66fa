package system

import (
	"fmt"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/executor"
	"go.uber.org/zap"
)

// DefaultMaxPasses bounds bundle expansion when no limit is configured.
const DefaultMaxPasses = 64

type systemEntry struct {
	stage Stage
	desc  consumer
}

// DispatcherBuilder queues descriptors and resolves them into a Dispatcher.
// The zero value is ready to use. Insertion order is preserved within each
// kind; Build always resolves systems, then bundles, then thread-locals.
type DispatcherBuilder struct {
	systems      []systemEntry
	threadLocals []consumer
	bundles      []consumer

	log       *zap.Logger
	maxPasses int // 0: DefaultMaxPasses, <0: unbounded
}

type BuilderOption func(*DispatcherBuilder)

func WithLogger(log *zap.Logger) BuilderOption {
	return func(b *DispatcherBuilder) { b.log = log }
}

// WithMaxPasses caps how many expansion passes Build may run. n <= 0
// removes the cap.
func WithMaxPasses(n int) BuilderOption {
	return func(b *DispatcherBuilder) {
		if n <= 0 {
			n = -1
		}
		b.maxPasses = n
	}
}

func NewDispatcherBuilder(opts ...BuilderOption) *DispatcherBuilder {
	b := &DispatcherBuilder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddSystem queues an already constructed task for a parallel stage.
func (b *DispatcherBuilder) AddSystem(stage Stage, task Task) {
	mustParallel(stage)
	b.systems = append(b.systems, systemEntry{stage, prebuiltSystem{stage, task}})
}

// AddSystemDesc queues a task factory for a parallel stage.
func (b *DispatcherBuilder) AddSystemDesc(stage Stage, desc SystemDesc) {
	mustParallel(stage)
	b.systems = append(b.systems, systemEntry{stage, deferredSystem{stage, desc}})
}

func (b *DispatcherBuilder) AddThreadLocal(local ThreadLocal) {
	b.threadLocals = append(b.threadLocals, prebuiltThreadLocal{local})
}

func (b *DispatcherBuilder) AddThreadLocalDesc(desc ThreadLocalDesc) {
	b.threadLocals = append(b.threadLocals, deferredThreadLocal{desc})
}

func (b *DispatcherBuilder) AddBundle(bundle Bundle) {
	b.bundles = append(b.bundles, bundleDesc{bundle})
}

func (b *DispatcherBuilder) WithSystem(stage Stage, task Task) *DispatcherBuilder {
	b.AddSystem(stage, task)
	return b
}

func (b *DispatcherBuilder) WithSystemDesc(stage Stage, desc SystemDesc) *DispatcherBuilder {
	b.AddSystemDesc(stage, desc)
	return b
}

func (b *DispatcherBuilder) WithThreadLocal(local ThreadLocal) *DispatcherBuilder {
	b.AddThreadLocal(local)
	return b
}

func (b *DispatcherBuilder) WithThreadLocalDesc(desc ThreadLocalDesc) *DispatcherBuilder {
	b.AddThreadLocalDesc(desc)
	return b
}

func (b *DispatcherBuilder) WithBundle(bundle Bundle) *DispatcherBuilder {
	b.AddBundle(bundle)
	return b
}

// IsEmpty reports whether no descriptor is queued.
func (b *DispatcherBuilder) IsEmpty() bool {
	return len(b.systems) == 0 && len(b.bundles) == 0 && len(b.threadLocals) == 0
}

// Build resolves every queued descriptor and empties the builder.
//
// Each pass drains the queues into its own dispatcher while bundles register
// into a fresh side builder; that side builder is the next pass. Pass
// dispatchers are merged in pass order, so descriptors registered by a
// bundle run after everything resolved in the bundle's own pass.
//
// The first failing descriptor aborts the build and no dispatcher is
// returned. If the pool resource is present it is captured for Run.
func (b *DispatcherBuilder) Build(w *ecs.World) (*Dispatcher, error) {
	log := b.log
	if log == nil {
		log = zap.NewNop()
	}
	limit := b.maxPasses
	if limit == 0 {
		limit = DefaultMaxPasses
	}

	pending := &DispatcherBuilder{
		systems:      b.systems,
		threadLocals: b.threadLocals,
		bundles:      b.bundles,
	}
	b.systems, b.threadLocals, b.bundles = nil, nil, nil

	out := NewDispatcher()
	pass := 0
	for !pending.IsEmpty() {
		pass++
		if limit > 0 && pass > limit {
			return nil, fmt.Errorf("%w: %d descriptors still pending after %d passes",
				ErrBundleRecursion, pending.count(), limit)
		}

		next := &DispatcherBuilder{}
		d, err := pending.drain(w, next, pass)
		if err != nil {
			return nil, err
		}
		log.Debug("dispatcher pass resolved",
			zap.Int("pass", pass),
			zap.Int("begin", d.Len(StageBegin)),
			zap.Int("logic", d.Len(StageLogic)),
			zap.Int("render", d.Len(StageRender)),
			zap.Int("thread_local", d.Len(StageThreadLocal)),
			zap.Int("registered", next.count()),
		)
		out = out.Merge(d)
		pending = next
	}

	if pool, ok := ecs.Resource[*executor.Pool](w); ok {
		out.SetPool(pool)
	}
	log.Debug("dispatcher built",
		zap.Int("passes", pass),
		zap.Int("tasks", out.Len(StageBegin)+out.Len(StageLogic)+out.Len(StageRender)),
		zap.Int("thread_locals", out.Len(StageThreadLocal)),
	)
	return out, nil
}

// drain consumes one pass worth of descriptors into a new dispatcher.
func (b *DispatcherBuilder) drain(w *ecs.World, next *DispatcherBuilder, pass int) (*Dispatcher, error) {
	d := NewDispatcher()
	for i, e := range b.systems {
		if err := e.desc.consume(w, d, next); err != nil {
			return nil, &BuildError{Kind: e.desc.kind(), Stage: e.stage, Pass: pass, Index: i, Err: err}
		}
	}
	for i, c := range b.bundles {
		if err := c.consume(w, d, next); err != nil {
			return nil, &BuildError{Kind: c.kind(), Stage: noStage, Pass: pass, Index: i, Err: err}
		}
	}
	for i, c := range b.threadLocals {
		if err := c.consume(w, d, next); err != nil {
			return nil, &BuildError{Kind: c.kind(), Stage: StageThreadLocal, Pass: pass, Index: i, Err: err}
		}
	}
	return d, nil
}

func (b *DispatcherBuilder) count() int {
	return len(b.systems) + len(b.bundles) + len(b.threadLocals)
}

func mustParallel(stage Stage) {
	if !stage.Parallel() {
		panic(fmt.Sprintf("system: %s is not a parallel stage; register thread-local work with AddThreadLocal", stage))
	}
}
