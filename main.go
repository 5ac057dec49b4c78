package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/wildfunctions/linear_gp/pkg/engine"
	"github.com/wildfunctions/linear_gp/pkg/score"
	"github.com/wildfunctions/linear_gp/pkg/task"
	"github.com/wildfunctions/linear_gp/pkg/trainer"
)

// configFlag returns the value of -config in args, if present. The file is
// loaded before the other flags are bound so that flags override it.
func configFlag(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	cfg := engine.DefaultConfig()
	configPath := configFlag(os.Args[1:])
	if configPath != "" {
		var err error
		if cfg, err = engine.LoadConfig(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	tasks := strings.Join(cfg.Tasks, ",")
	verbosity := 1

	flag.StringVar(&configPath, "config", configPath, "TOML config file; other flags override it")
	flag.StringVar(&cfg.Mode, "mode", cfg.Mode, "population mode ("+trainer.ModeProgram+", "+trainer.ModeTeam+")")
	flag.StringVar(&tasks, "tasks", tasks, "comma-separated tasks ("+strings.Join(task.Names(), ", ")+")")
	flag.StringVar(&cfg.Aggregation, "aggregation", cfg.Aggregation, "multi-task aggregation ("+strings.Join(score.AggregationNames(), ", ")+")")
	flag.StringVar(&cfg.Offspring, "offspring", cfg.Offspring, "offspring mode in program mode ("+strings.Join(trainer.OffspringNames(), ", ")+")")
	flag.IntVar(&cfg.Population, "population", cfg.Population, "population size")
	flag.Float64Var(&cfg.Gap, "gap", cfg.Gap, "fraction of the population replaced each generation")
	flag.IntVar(&cfg.Generations, "generations", cfg.Generations, "number of generations")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 = random)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of parallel workers")
	flag.BoolVar(&cfg.Reevaluate, "reevaluate", cfg.Reevaluate, "rescore survivors every generation")
	flag.IntVar(&cfg.MaxProgSize, "maxprog", cfg.MaxProgSize, "max instructions per program")
	flag.IntVar(&cfg.OutRegs, "outregs", cfg.OutRegs, "output registers (0 = from tasks)")
	flag.IntVar(&cfg.MemRegs, "memregs", cfg.MemRegs, "memory registers")
	flag.IntVar(&cfg.FgtRegs, "fgtregs", cfg.FgtRegs, "forget registers")
	flag.IntVar(&cfg.TeamSize, "teamsize", cfg.TeamSize, "programs per team (0 = from tasks)")
	flag.StringVar(&cfg.Output, "format", cfg.Output, "output format (text, json)")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "include every generation in the final report")
	flag.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "snapshot file")
	flag.IntVar(&cfg.SnapshotEvery, "snapshot-every", cfg.SnapshotEvery, "generations between snapshots (0 = only at the end)")
	flag.BoolVar(&cfg.Resume, "resume", cfg.Resume, "resume from the snapshot file")
	flag.StringVar(&cfg.HistoryPath, "history", cfg.HistoryPath, "SQLite run history database")
	flag.IntVar(&verbosity, "v", verbosity, "log verbosity (higher is chattier)")
	flag.Parse()

	commonlog.Configure(verbosity, nil)
	cfg.Tasks = strings.Split(tasks, ",")

	e, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := e.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		e.Close()
		os.Exit(1)
	}

	switch cfg.Output {
	case "json":
		if err := engine.WriteJSONFinal(os.Stdout, report); err != nil {
			fmt.Fprintf(os.Stderr, "error writing JSON: %v\n", err)
			os.Exit(1)
		}
	default:
		engine.WriteTextFinal(os.Stdout, report)
	}
}
