package scripting

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/executor"
	coresys "github.com/l1jgo/scheduler/internal/core/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newWorld() *ecs.World {
	w := ecs.NewWorld()
	ecs.InsertResource(w, executor.NewPool(2))
	coresys.EnsureFrameResources(w)
	return w
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
systems:
  - name: spawner
    stage: logic
    file: spawner.lua
    writes: [spawns]
  - name: report
    stage: thread_local
    file: report.lua
    function: report
`))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(m.Systems) != 2 {
		t.Fatalf("systems = %d", len(m.Systems))
	}
	if s := m.Systems[0]; s.Stage != coresys.StageLogic || s.Function != "update" || s.Writes[0] != "spawns" {
		t.Errorf("spawner = %+v", s)
	}
	if s := m.Systems[1]; s.Stage != coresys.StageThreadLocal || s.Function != "report" {
		t.Errorf("report = %+v", s)
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"missing name", "systems:\n  - file: a.lua\n", "missing name"},
		{"duplicate", "systems:\n  - {name: a, file: a.lua}\n  - {name: a, file: b.lua}\n", "duplicate"},
		{"missing file", "systems:\n  - name: a\n", "missing file"},
		{"bad stage", "systems:\n  - {name: a, file: a.lua, stage: physics}\n", "unknown stage"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBundleRunsScripts(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.lua": `function update(frame, dt) log("a " .. frame) end`,
		"b.lua": `function update(frame, dt) log("b " .. frame) end`,
		"c.lua": `function tick(frame, dt) log("c " .. dt) end`,
	})
	m := &Manifest{Systems: []Entry{
		{Name: "a", Stage: coresys.StageThreadLocal, File: "a.lua", Function: "update"},
		{Name: "b", Stage: coresys.StageThreadLocal, File: "b.lua", Function: "update"},
		{Name: "a again", Stage: coresys.StageThreadLocal, File: "a.lua", Function: "update"},
		{Name: "c", Stage: coresys.StageRender, File: "c.lua", Function: "tick"},
	}}

	core, logs := observer.New(zapcore.InfoLevel)
	bundle := &Bundle{Dir: dir, Manifest: m, Log: zap.New(core)}
	defer bundle.Close()

	w := newWorld()
	d, err := coresys.NewDispatcherBuilder().WithBundle(bundle).Build(w)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Len(coresys.StageRender) != 1 || d.Len(coresys.StageThreadLocal) != 3 {
		t.Fatalf("render=%d thread_local=%d", d.Len(coresys.StageRender), d.Len(coresys.StageThreadLocal))
	}
	if len(bundle.engines) != 2 {
		t.Errorf("engines = %d, want 2 (one shared, one private)", len(bundle.engines))
	}

	coresys.NewRunner(d, w, nil).Tick(250 * time.Millisecond)

	var got []string
	for _, e := range logs.All() {
		got = append(got, e.Message)
	}
	// a.lua is reused after b.lua loaded into the same VM; it must keep
	// running its own update.
	want := []string{"c 0.25", "a 1", "b 1", "a 1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("script logs = %v, want %v", got, want)
	}
}

func TestBundleLogsRuntimeErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.lua": `function update(frame, dt) error("nope") end`,
	})
	core, logs := observer.New(zapcore.ErrorLevel)
	bundle := &Bundle{Dir: dir, Log: zap.New(core), Manifest: &Manifest{Systems: []Entry{
		{Name: "bad", Stage: coresys.StageLogic, File: "bad.lua", Function: "update"},
	}}}
	defer bundle.Close()

	w := newWorld()
	d, err := coresys.NewDispatcherBuilder().WithBundle(bundle).Build(w)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	coresys.NewRunner(d, w, nil).Tick(time.Millisecond)
	if logs.FilterMessage("script failed").Len() != 1 {
		t.Errorf("expected one script failure log, got %v", logs.All())
	}
}

func TestBundleConstructionErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"syntax.lua": `function update(`,
		"empty.lua":  `x = 1`,
	})
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"missing file", Entry{Name: "m", Stage: coresys.StageLogic, File: "absent.lua", Function: "update"}, "absent.lua"},
		{"syntax error", Entry{Name: "s", Stage: coresys.StageBegin, File: "syntax.lua", Function: "update"}, "syntax.lua"},
		{"missing function", Entry{Name: "f", Stage: coresys.StageThreadLocal, File: "empty.lua", Function: "update"}, "lua function update not found"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			bundle := &Bundle{Dir: dir, Manifest: &Manifest{Systems: []Entry{tt.entry}}}
			defer bundle.Close()
			_, err := coresys.NewDispatcherBuilder().WithBundle(bundle).Build(newWorld())
			if !errors.Is(err, coresys.ErrConstruction) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want construction error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestBundleNeedsClock(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.lua": `function update() end`})
	bundle := &Bundle{Dir: dir, Manifest: &Manifest{Systems: []Entry{
		{Name: "a", Stage: coresys.StageLogic, File: "a.lua", Function: "update"},
	}}}
	defer bundle.Close()

	w := ecs.NewWorld()
	_, err := coresys.NewDispatcherBuilder().WithBundle(bundle).Build(w)
	if !errors.Is(err, errNoClock) {
		t.Fatalf("err = %v, want errNoClock", err)
	}
}

func TestLoadManifestFromFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"systems.yaml": "systems:\n  - {name: a, stage: begin, file: a.lua}\n",
	})
	m, err := LoadManifest(filepath.Join(dir, "systems.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Systems) != 1 || m.Systems[0].Stage != coresys.StageBegin {
		t.Errorf("manifest = %+v", m)
	}
}

func TestEngineIsolatesScriptGlobals(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"one.lua": `label = "one"
function update() log(label) end`,
		"two.lua": `label = "two"
function update() log(label .. " v" .. API_VERSION) end`,
	})
	core, logs := observer.New(zapcore.InfoLevel)
	e := NewEngine(zap.New(core))
	defer e.Close()

	one, two := filepath.Join(dir, "one.lua"), filepath.Join(dir, "two.lua")
	for _, p := range []string{one, two, one} {
		if err := e.Load(p); err != nil {
			t.Fatalf("Load(%s): %v", p, err)
		}
	}
	for _, p := range []string{one, two, one} {
		fn, err := e.Function(p, "update")
		if err != nil {
			t.Fatalf("Function(%s): %v", p, err)
		}
		if err := e.Call(fn, 1, 0); err != nil {
			t.Fatalf("Call(%s): %v", p, err)
		}
	}

	var got []string
	for _, entry := range logs.All() {
		got = append(got, entry.Message)
	}
	if strings.Join(got, ",") != "one,two v1,one" {
		t.Errorf("logs = %v, want [one two v1 one]", got)
	}

	if _, err := e.Function(filepath.Join(dir, "absent.lua"), "update"); err == nil {
		t.Error("Function on an unloaded script succeeded")
	}
}
