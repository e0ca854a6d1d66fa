package scripting

import (
	"errors"
	"path/filepath"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/executor"
	coresys "github.com/l1jgo/scheduler/internal/core/system"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

var errNoClock = errors.New("frame clock resource not present")

// Script runs one Lua function per frame. It satisfies both coresys.Task
// and coresys.ThreadLocal; the manifest stage decides which.
type Script struct {
	name   string
	access executor.Access
	engine *Engine
	fn     lua.LValue
	clock  *coresys.Time
	log    *zap.Logger
}

func (s *Script) Name() string            { return s.name }
func (s *Script) Access() executor.Access { return s.access }

// Run logs script errors instead of failing the frame.
func (s *Script) Run(_ *ecs.World) {
	if err := s.engine.Call(s.fn, s.clock.Frame, s.clock.DeltaSeconds()); err != nil {
		s.log.Error("script failed", zap.Uint64("frame", s.clock.Frame), zap.Error(err))
	}
}

// Bundle expands a manifest into scripted systems. Loading a script or
// resolving its function happens at build time; failures abort the build.
// Every file gets its own environment, so scripts sharing the thread-local
// VM may all name their entry point "update".
type Bundle struct {
	Dir      string
	Manifest *Manifest
	Log      *zap.Logger

	shared  *Engine
	engines []*Engine
}

func (b *Bundle) Build(_ *ecs.World, db *coresys.DispatcherBuilder) error {
	if b.Log == nil {
		b.Log = zap.NewNop()
	}
	for _, entry := range b.Manifest.Systems {
		entry := entry
		if entry.Stage == coresys.StageThreadLocal {
			db.AddThreadLocalDesc(coresys.ThreadLocalDescFunc(func(w *ecs.World) (coresys.ThreadLocal, error) {
				if b.shared == nil {
					b.shared = b.newEngine("thread_local")
				}
				return b.script(b.shared, entry, w)
			}))
			continue
		}
		db.AddSystemDesc(entry.Stage, coresys.SystemDescFunc(func(w *ecs.World) (coresys.Task, error) {
			return b.script(b.newEngine(entry.Name), entry, w)
		}))
	}
	return nil
}

// Close releases every VM created by Build.
func (b *Bundle) Close() {
	for _, e := range b.engines {
		e.Close()
	}
	b.engines, b.shared = nil, nil
}

func (b *Bundle) newEngine(name string) *Engine {
	e := NewEngine(b.Log.With(zap.String("vm", name)))
	b.engines = append(b.engines, e)
	return e
}

func (b *Bundle) script(e *Engine, entry Entry, w *ecs.World) (*Script, error) {
	clock, ok := ecs.Resource[*coresys.Time](w)
	if !ok {
		return nil, errNoClock
	}
	path := filepath.Join(b.Dir, entry.File)
	if err := e.Load(path); err != nil {
		return nil, err
	}
	fn, err := e.Function(path, entry.Function)
	if err != nil {
		return nil, err
	}
	return &Script{
		name: entry.Name,
		access: executor.Access{
			Reads:     entry.Reads,
			Writes:    entry.Writes,
			Exclusive: entry.Exclusive,
		},
		engine: e,
		fn:     fn,
		clock:  clock,
		log:    b.Log.With(zap.String("script", entry.Name)),
	}, nil
}
