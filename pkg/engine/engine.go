package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/tliron/commonlog"

	"github.com/wildfunctions/linear_gp/pkg/history"
	"github.com/wildfunctions/linear_gp/pkg/score"
	"github.com/wildfunctions/linear_gp/pkg/snapshot"
	"github.com/wildfunctions/linear_gp/pkg/task"
	"github.com/wildfunctions/linear_gp/pkg/trainer"
)

var log = commonlog.GetLogger("linear_gp.engine")

// population is what the engine drives; both trainer modes implement it.
type population interface {
	Generation() int
	Size() int
	Units(tasks []string, all bool) []trainer.Unit
	ApplyScores(results []trainer.Result) error
	Stats(task string) (trainer.Stats, error)
	Evolve(tasks []string, agg score.Aggregation) (trainer.Stats, error)
	Best(tasks []string, agg score.Aggregation) (trainer.Summary, error)
	Export() trainer.State
}

// Engine runs the evolutionary loop.
type Engine struct {
	cfg   Config
	tasks []task.Task
	names []string
	agg   score.Aggregation
	seed  int64
	pop   population

	history *history.Store
	runID   string
}

// New creates an engine from cfg, restoring from the snapshot when
// cfg.Resume is set.
func New(cfg Config) (*Engine, error) {
	tasks, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	agg, _ := score.ParseAggregation(cfg.Aggregation)
	params, _ := cfg.TrainerParams(tasks)

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	cfg.Seed = seed
	rng := rand.New(rand.NewSource(seed))

	e := &Engine{cfg: cfg, tasks: tasks, agg: agg, seed: seed}
	for _, t := range tasks {
		e.names = append(e.names, t.Name())
	}

	switch {
	case cfg.Resume:
		st, err := snapshot.Load(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		if st.Mode != cfg.Mode {
			return nil, fmt.Errorf("snapshot %s holds a %s population, config asks for %s", cfg.SnapshotPath, st.Mode, cfg.Mode)
		}
		if cfg.Mode == trainer.ModeTeam {
			e.pop, err = trainer.RestoreTeam(st, rng)
		} else {
			e.pop, err = trainer.Restore(st, rng)
		}
		if err != nil {
			return nil, err
		}
		log.Infof("resumed %s population of %d at generation %d from %s",
			st.Mode, e.pop.Size(), e.pop.Generation(), cfg.SnapshotPath)
	case cfg.Mode == trainer.ModeTeam:
		if e.pop, err = trainer.NewTeam(params, rng); err != nil {
			return nil, err
		}
	default:
		if e.pop, err = trainer.New(params, rng); err != nil {
			return nil, err
		}
	}

	if cfg.HistoryPath != "" {
		if e.history, err = history.Open(cfg.HistoryPath); err != nil {
			return nil, err
		}
		if e.runID, err = e.history.StartRun(cfg); err != nil {
			e.history.Close()
			return nil, err
		}
	}
	return e, nil
}

// Close releases the history store, if any.
func (e *Engine) Close() error {
	if e.history == nil {
		return nil
	}
	return e.history.Close()
}

// Config returns the engine's config with the seed resolved.
func (e *Engine) Config() Config { return e.cfg }

// Generation returns the population's generation counter.
func (e *Engine) Generation() int { return e.pop.Generation() }

// Run executes cfg.Generations generations and returns the final report.
// Cancelling ctx stops the run between generations; the population is
// snapshotted before returning either way.
func (e *Engine) Run(ctx context.Context) (FinalReport, error) {
	start := time.Now()
	log.Infof("starting %s mode, tasks %v, aggregation %s, population %d, gap %.2f, %d generations, workers %d, seed %d",
		e.cfg.Mode, e.names, e.agg, e.cfg.Population, e.cfg.Gap, e.cfg.Generations, e.cfg.Workers, e.seed)

	final := FinalReport{Config: e.cfg, RunID: e.runID, StartGeneration: e.pop.Generation()}
	var runErr error
	for i := 0; i < e.cfg.Generations; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		report, err := e.step(ctx)
		if err != nil {
			runErr = err
			break
		}
		if e.cfg.Verbose {
			final.Generations = append(final.Generations, report)
		}
		if e.cfg.SnapshotPath != "" && e.cfg.SnapshotEvery > 0 && e.pop.Generation()%e.cfg.SnapshotEvery == 0 {
			if err := e.snapshot(); err != nil {
				runErr = err
				break
			}
		}
	}

	// Offspring of the last generation are still unscored.
	if runErr == nil {
		if err := e.evaluate(ctx, false); err != nil {
			runErr = err
		}
	}
	if e.cfg.SnapshotPath != "" {
		if err := e.snapshot(); err != nil && runErr == nil {
			runErr = err
		}
	}
	final.Generation = e.pop.Generation()
	final.Elapsed = time.Since(start).Round(time.Millisecond).String()
	if runErr != nil {
		return final, runErr
	}

	best, err := e.pop.Best(e.names, e.agg)
	if err != nil {
		return final, err
	}
	final.Best = best
	for _, name := range e.names {
		s, err := e.pop.Stats(name)
		if err != nil {
			return final, err
		}
		final.Stats = append(final.Stats, s)
	}
	log.Infof("finished at generation %d in %s, best %d %v", final.Generation, final.Elapsed, best.ID, best.Outcomes)
	return final, nil
}

// step runs one generation: evaluate, report, evolve.
func (e *Engine) step(ctx context.Context) (GenerationReport, error) {
	gen := e.pop.Generation()
	if err := e.evaluate(ctx, e.cfg.Reevaluate); err != nil {
		return GenerationReport{}, err
	}

	report := GenerationReport{Generation: gen}
	best, err := e.pop.Best(e.names, e.agg)
	if err != nil {
		return report, err
	}
	report.Best = best
	for _, name := range e.names {
		s, err := e.pop.Stats(name)
		if err != nil {
			return report, err
		}
		report.Stats = append(report.Stats, s)
		if e.history != nil {
			row := history.GenerationRow{
				Generation: gen, Task: s.Task, Count: s.Count,
				Min: s.Min, Max: s.Max, Average: s.Average, BestID: best.ID,
			}
			if err := e.history.RecordGeneration(e.runID, row); err != nil {
				log.Warningf("recording generation %d: %v", gen, err)
			}
		}
	}
	log.Infof("%s", formatGeneration(report))

	if _, err := e.pop.Evolve(e.names, e.agg); err != nil {
		return report, fmt.Errorf("generation %d: %w", gen, err)
	}
	return report, nil
}

// evaluate scores the population's units on every task in parallel and
// merges the results once all of them are done.
func (e *Engine) evaluate(ctx context.Context, all bool) error {
	units := e.pop.Units(e.names, all)
	if len(units) == 0 {
		return nil
	}
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]trainer.Result, len(units))
	p := pool.New().WithMaxGoroutines(workers)
	for i, u := range units {
		i, u := i, u
		p.Go(func() {
			out := make(map[string]float64, len(e.tasks))
			for _, t := range e.tasks {
				if ctx.Err() != nil {
					return
				}
				out[t.Name()] = t.Evaluate(u.Agent)
			}
			results[i] = trainer.Result{ID: u.ID, Outcomes: out}
		})
	}
	p.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debugf("evaluated %d units on %d tasks", len(units), len(e.tasks))
	return e.pop.ApplyScores(results)
}

func (e *Engine) snapshot() error {
	if err := snapshot.Save(e.cfg.SnapshotPath, e.pop.Export()); err != nil {
		return err
	}
	log.Debugf("snapshot of generation %d written to %s", e.pop.Generation(), e.cfg.SnapshotPath)
	return nil
}
