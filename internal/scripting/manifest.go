package scripting

import (
	"errors"
	"fmt"
	"os"

	coresys "github.com/l1jgo/scheduler/internal/core/system"
	"gopkg.in/yaml.v3"
)

// Entry describes one scripted system.
type Entry struct {
	Name      string        `yaml:"name"`
	Stage     coresys.Stage `yaml:"stage"`
	File      string        `yaml:"file"`     // relative to the scripts dir
	Function  string        `yaml:"function"` // defaults to "update"
	Reads     []string      `yaml:"reads"`
	Writes    []string      `yaml:"writes"`
	Exclusive bool          `yaml:"exclusive"`
}

type Manifest struct {
	Systems []Entry `yaml:"systems"`
}

// LoadManifest reads and validates a script manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	seen := make(map[string]bool, len(m.Systems))
	for i := range m.Systems {
		e := &m.Systems[i]
		if e.Name == "" {
			return nil, fmt.Errorf("system #%d: missing name", i)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("system %q: duplicate name", e.Name)
		}
		seen[e.Name] = true
		if e.File == "" {
			return nil, fmt.Errorf("system %q: %w", e.Name, errors.New("missing file"))
		}
		if e.Function == "" {
			e.Function = "update"
		}
	}
	return &m, nil
}
