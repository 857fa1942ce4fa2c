// Package platform drives a configured run generation by generation and
// persists what it produces.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"vivarium/internal/config"
	"vivarium/internal/evo"
	"vivarium/internal/history"
	"vivarium/internal/metrics"
	"vivarium/internal/model"
	"vivarium/internal/rng"
	"vivarium/internal/storage"
)

type Config struct {
	Store   storage.Store
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

type StopReason string

const (
	StopReasonGenerations StopReason = "generations"
	StopReasonGoal        StopReason = "fitness_goal"
	StopReasonCanceled    StopReason = "canceled"
)

type EvolutionResult struct {
	RunID            string
	Generations      int
	BestByGeneration []float64
	BestFinalFitness float64
	FinalStats       model.Stats
	HistoryRecords   int
	StopReason       StopReason

	bestFitness model.Fitness
}

// Platform runs evolutions against one store.
type Platform struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func New(cfg Config) *Platform {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Platform{store: cfg.Store, logger: logger, metrics: cfg.Metrics}
}

// RunEvolution seeds a random population, evaluates it, then applies the
// replacement strategy and migration to every deme each generation.
// Provenance is flushed to the store after every generation and a
// milestone is saved at the end, and every MilestoneInterval generations
// when set. Cancelling ctx stops the run between generations; the
// partial result is returned with the context error.
func (p *Platform) RunEvolution(ctx context.Context, run config.Run) (EvolutionResult, error) {
	if p.store == nil {
		return EvolutionResult{}, errors.New("platform has no store")
	}
	asm, err := run.Build(p.logger)
	if err != nil {
		return EvolutionResult{}, err
	}
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	r := rng.New(run.Seed)
	viv := model.NewRandomVivarium(asm.PopSizes, run.Genome.Length, asm.Init, r)
	return p.evolve(ctx, run, asm, r, viv, 0)
}

// ResumeEvolution continues a run from a saved milestone up to
// run.Generations. The milestone's run ID replaces run.RunID.
func (p *Platform) ResumeEvolution(ctx context.Context, run config.Run, snap model.VivariumSnapshot) (EvolutionResult, error) {
	if p.store == nil {
		return EvolutionResult{}, errors.New("platform has no store")
	}
	asm, err := run.Build(p.logger)
	if err != nil {
		return EvolutionResult{}, err
	}
	if len(snap.Demes) != len(asm.PopSizes) {
		return EvolutionResult{}, fmt.Errorf("%w: milestone has %d demes, configuration has %d",
			model.ErrValidation, len(snap.Demes), len(asm.PopSizes))
	}
	if snap.Generation >= run.Generations {
		return EvolutionResult{}, fmt.Errorf("%w: milestone is at generation %d, run ends at %d",
			model.ErrValidation, snap.Generation, run.Generations)
	}
	viv, err := storage.Restore(snap)
	if err != nil {
		return EvolutionResult{}, fmt.Errorf("restore milestone: %w", err)
	}
	if snap.RunID != "" {
		run.RunID = snap.RunID
	}
	// a stream distinct from the one that produced the milestone
	r := rng.New(run.Seed + uint64(snap.Generation))
	return p.evolve(ctx, run, asm, r, viv, snap.Generation)
}

func (p *Platform) evolve(ctx context.Context, run config.Run, asm *config.Assembly, r rng.Randomizer, viv *model.Vivarium, start int) (EvolutionResult, error) {
	runID := run.RunID
	logger := p.logger.With("run_id", runID)
	hist := history.New(runID)
	sys := &evo.System{Logger: logger, History: hist, Metrics: p.metrics, Workers: run.Workers}
	ec := evo.NewContext(sys, r, viv)
	ec.Generation = start

	result := EvolutionResult{RunID: runID, Generations: start, StopReason: StopReasonGenerations}
	fail := func(err error) (EvolutionResult, error) {
		if ctx.Err() != nil {
			result.StopReason = StopReasonCanceled
		}
		result.HistoryRecords = hist.Total()
		return result, err
	}
	if err := p.evaluateAll(ctx, asm, ec); err != nil {
		return fail(fmt.Errorf("initial evaluation: %w", err))
	}
	if err := p.endGeneration(ctx, runID, hist, ec, &result); err != nil {
		return fail(err)
	}
	if start > 0 {
		logger.Info("resumed from milestone", "generation", start)
	}

	for gen := start + 1; gen <= run.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		ec.Generation = gen
		for di := range viv.Demes {
			ec.ForDeme(di)
			if err := asm.Strategy.Operate(ctx, ec); err != nil {
				return fail(fmt.Errorf("generation %d deme %d: %w", gen, di, err))
			}
			if asm.Migration != nil {
				if err := asm.Migration.Operate(ctx, ec); err != nil {
					return fail(fmt.Errorf("generation %d deme %d: %w", gen, di, err))
				}
			}
		}
		// individuals left unevaluated by the strategy or by migration
		if err := p.evaluateAll(ctx, asm, ec); err != nil {
			return fail(fmt.Errorf("generation %d: %w", gen, err))
		}
		if err := p.truncateOversized(ctx, asm, ec); err != nil {
			return fail(fmt.Errorf("generation %d: %w", gen, err))
		}
		result.Generations = gen
		if err := p.endGeneration(ctx, runID, hist, ec, &result); err != nil {
			return fail(err)
		}
		if run.FitnessGoal != nil && model.MeetsGoal(result.bestFitness, *run.FitnessGoal) {
			logger.Info("fitness goal reached", "generation", gen, "best", result.BestFinalFitness)
			result.StopReason = StopReasonGoal
			break
		}
		if run.MilestoneInterval > 0 && gen%run.MilestoneInterval == 0 && gen != run.Generations {
			if err := p.saveMilestone(ctx, runID, ec); err != nil {
				return fail(err)
			}
		}
	}

	if err := p.saveMilestone(ctx, runID, ec); err != nil {
		return fail(err)
	}
	result.HistoryRecords = hist.Total()
	logger.Info("run finished", "generations", result.Generations,
		"best", result.BestFinalFitness, "reason", result.StopReason)
	return result, nil
}

func (p *Platform) evaluateAll(ctx context.Context, asm *config.Assembly, ec *evo.Context) error {
	for di := range ec.Vivarium.Demes {
		ec.ForDeme(di)
		if err := asm.Evaluation.Apply(ctx, ec); err != nil {
			return fmt.Errorf("deme %d: %w", di, err)
		}
	}
	ec.Vivarium.InvalidateStats()
	return nil
}

// truncateOversized cuts every deme above its configured size down to its
// best individuals. (μ,λ) and (μ+λ) leave their candidates untruncated
// when the breeder tree does not evaluate offspring.
func (p *Platform) truncateOversized(ctx context.Context, asm *config.Assembly, ec *evo.Context) error {
	for di, deme := range ec.Vivarium.Demes {
		if deme.Len() <= asm.PopSizes[di] {
			continue
		}
		ec.ForDeme(di)
		if err := asm.Truncate.Operate(ctx, ec); err != nil {
			return fmt.Errorf("deme %d: %w", di, err)
		}
	}
	ec.Vivarium.InvalidateStats()
	return nil
}

func (p *Platform) endGeneration(ctx context.Context, runID string, hist *history.Log, ec *evo.Context, result *EvolutionResult) error {
	viv := ec.Vivarium
	viv.UpdateStats()
	stats := viv.Stats()
	var best float64
	result.bestFitness = nil
	if ind := viv.Best(); ind != nil {
		result.bestFitness = ind.Fitness
		best, _ = ind.ScalarFitness()
	}
	result.BestByGeneration = append(result.BestByGeneration, best)
	result.BestFinalFitness = best
	result.FinalStats = stats
	for di, deme := range viv.Demes {
		deme.UpdateStats()
		p.metrics.DemeSize(di, deme.Len())
	}
	p.logger.Info("generation complete", "run_id", runID, "generation", ec.Generation,
		"size", stats.Size, "best", best, "mean", stats.Mean, "std_dev", stats.StdDev)

	if _, err := hist.Flush(ctx, p.store); err != nil {
		return fmt.Errorf("flush history: %w", err)
	}
	return nil
}

func (p *Platform) saveMilestone(ctx context.Context, runID string, ec *evo.Context) error {
	snap, err := storage.Snapshot(runID, ec.Generation, ec.Vivarium)
	if err != nil {
		return fmt.Errorf("milestone: %w", err)
	}
	if err := p.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save milestone: %w", err)
	}
	p.logger.Debug("milestone saved", "run_id", runID, "generation", ec.Generation)
	return nil
}
