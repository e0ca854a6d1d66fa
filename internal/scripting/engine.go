package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. A VM is single-goroutine: every
// parallel scripted system owns its own Engine, thread-local ones share one.
//
// Each script file runs in its own global environment that falls back to
// the VM globals, so two files may define functions with the same name.
type Engine struct {
	vm   *lua.LState
	log  *zap.Logger
	envs map[string]*lua.LTable // script path -> its environment
}

// NewEngine creates a VM with the host API installed: API_VERSION and
// log(msg).
func NewEngine(log *zap.Logger) *Engine {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e := &Engine{vm: vm, log: log, envs: make(map[string]*lua.LTable)}
	vm.SetGlobal("log", vm.NewFunction(e.luaLog))
	return e
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info(L.CheckString(1))
	return 0
}

// Load runs a script file once; later calls with the same path are no-ops.
func (e *Engine) Load(path string) error {
	if _, ok := e.envs[path]; ok {
		return nil
	}
	chunk, err := e.vm.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	env := e.vm.NewTable()
	meta := e.vm.NewTable()
	meta.RawSetString("__index", e.vm.G.Global)
	e.vm.SetMetatable(env, meta)
	chunk.Env = env

	e.vm.Push(chunk)
	if err := e.vm.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.envs[path] = env
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// Function resolves a function defined by the script at path, which must
// have been loaded.
func (e *Engine) Function(path, name string) (lua.LValue, error) {
	env, ok := e.envs[path]
	if !ok {
		return nil, fmt.Errorf("lua script %s not loaded", path)
	}
	fn := env.RawGetString(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("lua function %s not found in %s", name, path)
	}
	return fn, nil
}

// Call invokes fn(frame, dt) in protected mode.
func (e *Engine) Call(fn lua.LValue, frame uint64, dt float64) error {
	return e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(frame), lua.LNumber(dt))
}

func (e *Engine) Close() {
	e.vm.Close()
}
