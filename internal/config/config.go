package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Scheduler SchedulerConfig `toml:"scheduler"`
	Scripting ScriptingConfig `toml:"scripting"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
}

type SchedulerConfig struct {
	Workers        int           `toml:"workers"`          // 0 = GOMAXPROCS
	TickRate       time.Duration `toml:"tick_rate"`        // frame interval
	MaxBuildPasses int           `toml:"max_build_passes"` // 0 = unbounded bundle expansion
	SlowFrame      time.Duration `toml:"slow_frame"`       // 0 = no slow frame warnings
}

type ScriptingConfig struct {
	Dir      string `toml:"dir"`
	Manifest string `toml:"manifest"` // relative to Dir; empty disables scripted systems
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables frame stats persistence
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	StatsEvery      int           `toml:"stats_every"` // frames per batch insert
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the scheduler cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Scheduler.Workers < 0 {
		errs = append(errs, errors.New("scheduler.workers must be >= 0"))
	}
	if c.Scheduler.TickRate <= 0 {
		errs = append(errs, errors.New("scheduler.tick_rate must be > 0"))
	}
	if c.Scheduler.MaxBuildPasses < 0 {
		errs = append(errs, errors.New("scheduler.max_build_passes must be >= 0"))
	}
	if c.Scheduler.SlowFrame < 0 {
		errs = append(errs, errors.New("scheduler.slow_frame must be >= 0"))
	}
	if c.Database.DSN != "" && c.Database.StatsEvery <= 0 {
		errs = append(errs, errors.New("database.stats_every must be > 0"))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want json or console", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func Defaults() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Workers:        0,
			TickRate:       50 * time.Millisecond,
			MaxBuildPasses: 64,
			SlowFrame:      100 * time.Millisecond,
		},
		Scripting: ScriptingConfig{
			Dir:      "scripts",
			Manifest: "systems.yaml",
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			StatsEvery:      100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
