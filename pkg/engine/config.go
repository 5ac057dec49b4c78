package engine

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/wildfunctions/linear_gp/pkg/instruction"
	"github.com/wildfunctions/linear_gp/pkg/program"
	"github.com/wildfunctions/linear_gp/pkg/score"
	"github.com/wildfunctions/linear_gp/pkg/task"
	"github.com/wildfunctions/linear_gp/pkg/team"
	"github.com/wildfunctions/linear_gp/pkg/trainer"
)

// Config holds all parameters for an evolutionary run.
type Config struct {
	Mode        string   `toml:"mode" json:"mode"` // "program" or "team"
	Tasks       []string `toml:"tasks" json:"tasks"`
	Aggregation string   `toml:"aggregation" json:"aggregation"`
	Offspring   string   `toml:"offspring" json:"offspring"`
	Population  int      `toml:"population" json:"population"`
	Gap         float64  `toml:"gap" json:"gap"`
	Generations int      `toml:"generations" json:"generations"`
	Seed        int64    `toml:"seed" json:"seed"`
	Workers     int      `toml:"workers" json:"workers"`
	Reevaluate  bool     `toml:"reevaluate" json:"reevaluate"` // rescore survivors every generation

	MaxProgSize int                `toml:"max_prog_size" json:"max_prog_size"`
	OutRegs     int                `toml:"out_regs" json:"out_regs"` // 0 = derived from the tasks
	MemRegs     int                `toml:"mem_regs" json:"mem_regs"`
	FgtRegs     int                `toml:"fgt_regs" json:"fgt_regs"`
	Format      instruction.Format `toml:"format" json:"format"`
	Rates       program.Rates      `toml:"rates" json:"rates"`
	TeamSize    int                `toml:"team_size" json:"team_size"` // 0 = derived from the tasks
	TeamRates   team.Rates         `toml:"team_rates" json:"team_rates"`

	Output        string `toml:"output" json:"output"` // "text" or "json"
	Verbose       bool   `toml:"verbose" json:"verbose"`
	SnapshotPath  string `toml:"snapshot" json:"snapshot,omitempty"`
	SnapshotEvery int    `toml:"snapshot_every" json:"snapshot_every"`
	Resume        bool   `toml:"resume" json:"resume"`
	HistoryPath   string `toml:"history" json:"history,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	pc := program.DefaultConfig()
	return Config{
		Mode:        trainer.ModeProgram,
		Tasks:       []string{"parity"},
		Aggregation: score.Average.String(),
		Offspring:   trainer.OffspringClone.String(),
		Population:  200,
		Gap:         0.5,
		Generations: 100,
		Seed:        0, // 0 = random
		Workers:     runtime.NumCPU(),

		MaxProgSize: 32,
		MemRegs:     pc.NumMemRegs,
		FgtRegs:     pc.NumFgtRegs,
		Format:      instruction.Format{Dest: 5, Src: 8},
		Rates:       program.DefaultRates(),
		TeamRates:   team.DefaultRates(),

		Output:        "text",
		SnapshotEvery: 10,
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// Validate checks the config and resolves the named tasks.
func (c *Config) Validate() ([]task.Task, error) {
	if c.Mode != trainer.ModeProgram && c.Mode != trainer.ModeTeam {
		return nil, fmt.Errorf("unknown mode: %s (available: %s, %s)", c.Mode, trainer.ModeProgram, trainer.ModeTeam)
	}
	if len(c.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks given (available: %v)", task.Names())
	}
	seen := map[string]bool{}
	tasks := make([]task.Task, 0, len(c.Tasks))
	for _, name := range c.Tasks {
		if seen[name] {
			return nil, fmt.Errorf("task %s listed twice", name)
		}
		seen[name] = true
		t, err := task.Get(name)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if _, err := score.ParseAggregation(c.Aggregation); err != nil {
		return nil, err
	}
	if _, err := trainer.ParseOffspring(c.Offspring); err != nil {
		return nil, err
	}
	if c.Generations < 0 {
		return nil, fmt.Errorf("generations must be >= 0, got %d", c.Generations)
	}
	if c.SnapshotEvery < 0 {
		return nil, fmt.Errorf("snapshot interval must be >= 0, got %d", c.SnapshotEvery)
	}
	if c.Resume && c.SnapshotPath == "" {
		return nil, fmt.Errorf("resume needs a snapshot path")
	}
	if c.Output != "text" && c.Output != "json" {
		return nil, fmt.Errorf("unknown output format: %s (available: text, json)", c.Output)
	}
	p, err := c.TrainerParams(tasks)
	if err != nil {
		return nil, err
	}
	if c.Mode == trainer.ModeTeam {
		err = p.ValidateTeam()
	} else {
		err = p.Validate()
	}
	return tasks, err
}

func maxActions(tasks []task.Task) int {
	n := 1
	for _, t := range tasks {
		n = max(n, t.NumActions())
	}
	return n
}

// TrainerParams converts the config into population parameters. Output
// registers and team size default to the widest action space among tasks:
// a program carries one output per action, a team one member per action.
func (c *Config) TrainerParams(tasks []task.Task) (trainer.Params, error) {
	off, err := trainer.ParseOffspring(c.Offspring)
	if err != nil {
		return trainer.Params{}, err
	}
	actions := maxActions(tasks)
	out, teamSize := c.OutRegs, c.TeamSize
	if out == 0 {
		out = actions
		if c.Mode == trainer.ModeTeam {
			out = 1
		}
	}
	if teamSize == 0 {
		teamSize = actions
	}
	return trainer.Params{
		PopSize: c.Population,
		Gap:     c.Gap,
		Program: program.Config{
			MaxProgSize: c.MaxProgSize,
			NumOutRegs:  out,
			NumMemRegs:  c.MemRegs,
			NumFgtRegs:  c.FgtRegs,
			Format:      c.Format,
		},
		Instruction: c.Rates,
		Offspring:   off,
		TeamSize:    teamSize,
		Team:        c.TeamRates,
	}, nil
}
