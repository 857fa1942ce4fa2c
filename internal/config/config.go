// Package config loads a run description from JSON and assembles the
// breeder tree, replacement strategy and migration operator it names.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"vivarium/internal/evo"
	"vivarium/internal/migration"
	"vivarium/internal/model"
	"vivarium/internal/replacement"
)

// Run is the top-level configuration document.
type Run struct {
	RunID       string `json:"run_id,omitempty"`
	Seed        uint64 `json:"seed"`
	Generations int    `json:"generations"`
	Workers     int    `json:"workers,omitempty"`
	LogLevel    string `json:"log_level,omitempty"`
	// FitnessGoal stops the run once the best fitness reaches it.
	FitnessGoal *float64 `json:"fitness_goal,omitempty"`

	Genome     Genome       `json:"genome"`
	PopSizes   []int        `json:"population"`
	Evaluation evo.OpParams `json:"evaluation"`
	Breeder    []Node       `json:"breeder"`

	Replacement Replacement `json:"replacement"`
	Migration   *Migration  `json:"migration,omitempty"`

	// MilestoneInterval saves a snapshot every so many generations; 0
	// saves only the final one.
	MilestoneInterval int   `json:"milestone_interval,omitempty"`
	Store             Store `json:"store"`
}

type Genome struct {
	Kind   string `json:"kind"`
	Length int    `json:"length"`
}

// Node is one breeder-tree node: an operator from the op registry and the
// alternatives feeding it.
type Node struct {
	evo.OpParams
	Children []Node `json:"children,omitempty"`
}

type Replacement struct {
	Strategy string  `json:"strategy"`
	Elitism  int     `json:"elitism,omitempty"`
	Ratio    float64 `json:"ratio,omitempty"`

	LambdaInit int     `json:"lambda_init,omitempty"`
	LambdaMin  int     `json:"lambda_min,omitempty"`
	LambdaMax  int     `json:"lambda_max,omitempty"`
	Factor     float64 `json:"factor,omitempty"`

	Percentile float64 `json:"percentile,omitempty"`
	Interval   int     `json:"interval,omitempty"`
}

type Migration struct {
	// Topology is ring, grid or map.
	Topology string  `json:"topology"`
	Interval int     `json:"interval"`
	Migrants int     `json:"migrants,omitempty"`
	Width    int     `json:"width,omitempty"`
	Toroidal bool    `json:"toroidal,omitempty"`
	Table    [][]int `json:"table,omitempty"`

	Selector     string `json:"selector,omitempty"`
	Replacement  string `json:"replacement,omitempty"`
	Participants int    `json:"participants,omitempty"`
}

type Store struct {
	Kind string `json:"kind,omitempty"`
	Path string `json:"path,omitempty"`
}

// Load reads and validates the document at path.
func Load(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, err
	}
	return Parse(data)
}

// Parse decodes a document, rejecting unknown fields, and validates it.
func Parse(data []byte) (Run, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var run Run
	if err := dec.Decode(&run); err != nil {
		return Run{}, fmt.Errorf("decode config: %w", err)
	}
	if err := run.Validate(); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Validate checks the fields that no operator constructor sees.
func (r Run) Validate() error {
	if r.Generations < 0 {
		return invalid("generations must be >= 0, got %d", r.Generations)
	}
	if r.Workers < 0 {
		return invalid("workers must be >= 0, got %d", r.Workers)
	}
	if len(r.PopSizes) == 0 {
		return invalid("population needs at least one deme size")
	}
	for i, n := range r.PopSizes {
		if n < 1 {
			return invalid("deme %d size must be >= 1, got %d", i, n)
		}
	}
	if r.Genome.Length < 1 {
		return invalid("genome length must be >= 1, got %d", r.Genome.Length)
	}
	if _, err := model.Initializers.Resolve(r.Genome.Kind); err != nil {
		return invalid("genome: %v", err)
	}
	if r.Evaluation.Name == "" {
		return invalid("evaluation operator is required")
	}
	if r.Replacement.Strategy == "" {
		return invalid("replacement strategy is required")
	}
	if r.MilestoneInterval < 0 {
		return invalid("milestone_interval must be >= 0, got %d", r.MilestoneInterval)
	}
	if r.Migration != nil && len(r.PopSizes) < 2 {
		return invalid("migration needs at least two demes")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrValidation, fmt.Sprintf(format, args...))
}

// Assembly is a run's operators, ready to drive.
type Assembly struct {
	Tree       *evo.Tree
	Strategy   replacement.Strategy
	Evaluation *evo.EvaluationOp
	// Migration is nil when the run has no migration.
	Migration *migration.Op
	// Truncate brings an evaluated deme left above its configured size
	// back down to it, for strategies that defer truncation until their
	// offspring are evaluated.
	Truncate replacement.Strategy
	PopSizes []int
	Init     model.GenomeInit
}

// Build resolves every operator named by the document.
func (r Run) Build(logger *slog.Logger) (*Assembly, error) {
	genomeInit, err := model.Initializers.Resolve(r.Genome.Kind)
	if err != nil {
		return nil, err
	}
	asm := &Assembly{PopSizes: append([]int(nil), r.PopSizes...), Init: genomeInit}

	op, err := evo.BuildOp(r.Evaluation)
	if err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}
	eval, ok := op.(*evo.EvaluationOp)
	if !ok {
		return nil, invalid("evaluation operator %s does not evaluate", r.Evaluation.Name)
	}
	asm.Evaluation = eval

	if len(r.Breeder) > 0 {
		specs, err := buildSpecs(r.Breeder)
		if err != nil {
			return nil, err
		}
		if asm.Tree, err = evo.NewTree(specs...); err != nil {
			return nil, err
		}
	}

	if asm.Strategy, err = r.Replacement.build(asm.Tree, asm.PopSizes); err != nil {
		return nil, fmt.Errorf("replacement: %w", err)
	}
	if asm.Truncate, err = replacement.NewDecimate(replacement.DecimateConfig{
		Ratio: replacement.FromTable, PopSizes: asm.PopSizes,
	}); err != nil {
		return nil, err
	}
	if r.Migration != nil {
		if asm.Migration, err = r.Migration.build(len(asm.PopSizes), logger); err != nil {
			return nil, fmt.Errorf("migration: %w", err)
		}
	}
	return asm, nil
}

func buildSpecs(nodes []Node) ([]evo.TreeSpec, error) {
	specs := make([]evo.TreeSpec, len(nodes))
	for i, n := range nodes {
		op, err := evo.BuildOp(n.OpParams)
		if err != nil {
			return nil, fmt.Errorf("breeder: %w", err)
		}
		children, err := buildSpecs(n.Children)
		if err != nil {
			return nil, err
		}
		specs[i] = evo.TreeSpec{Op: op, Children: children}
	}
	return specs, nil
}

func (c Replacement) build(tree *evo.Tree, popSizes []int) (replacement.Strategy, error) {
	ratio := func(def float64) float64 {
		if c.Ratio == 0 {
			return def
		}
		return c.Ratio
	}
	switch c.Strategy {
	case "generational":
		return replacement.NewGenerational(tree, c.Elitism)
	case "steady-state":
		return replacement.NewSteadyState(tree, c.Elitism)
	case "mu-comma-lambda":
		return replacement.NewMuCommaLambda(tree, replacement.MuLambdaConfig{
			Ratio: ratio(7), Elitism: c.Elitism, PopSizes: popSizes,
		})
	case "mu-plus-lambda":
		return replacement.NewMuPlusLambda(tree, replacement.MuLambdaConfig{
			Ratio: ratio(1), PopSizes: popSizes,
		})
	case "one-comma-lambda":
		cfg := replacement.DefaultOneCommaLambdaConfig()
		if c.LambdaInit != 0 {
			cfg.LambdaInit = c.LambdaInit
		}
		if c.LambdaMin != 0 {
			cfg.LambdaMin = c.LambdaMin
		}
		if c.LambdaMax != 0 {
			cfg.LambdaMax = c.LambdaMax
		}
		if c.Factor != 0 {
			cfg.Factor = c.Factor
		}
		for i, n := range popSizes {
			if n != 1 {
				return nil, invalid("one-comma-lambda needs demes of one individual, deme %d has %d", i, n)
			}
		}
		return replacement.NewOneCommaLambda(tree, cfg)
	case "hfc":
		cfg := replacement.DefaultHFCConfig(popSizes)
		if c.Percentile != 0 {
			cfg.Percentile = c.Percentile
		}
		if c.Interval != 0 {
			cfg.Interval = c.Interval
		}
		return replacement.NewHFC(tree, cfg)
	case "oversize-decimate":
		grow, err := replacement.NewOversize(tree, replacement.OversizeConfig{Ratio: ratio(2), PopSizes: popSizes})
		if err != nil {
			return nil, err
		}
		shrink, err := replacement.NewDecimate(replacement.DecimateConfig{Ratio: replacement.FromTable, PopSizes: popSizes})
		if err != nil {
			return nil, err
		}
		return replacement.NewSequence(c.Strategy, grow, shrink)
	default:
		return nil, invalid("unknown replacement strategy %q", c.Strategy)
	}
}

func (c Migration) build(demes int, logger *slog.Logger) (*migration.Op, error) {
	sel, err := evo.SelectorByName(c.Selector, max(c.Participants, 2))
	if err != nil {
		return nil, err
	}
	cfg := migration.Config{Interval: c.Interval, Selector: sel}
	if c.Replacement != "" {
		if cfg.Replacement, err = evo.SelectorByName(c.Replacement, max(c.Participants, 2)); err != nil {
			return nil, err
		}
	}
	switch c.Topology {
	case "ring":
		return migration.NewRingOp(demes, c.Migrants, cfg)
	case "grid":
		return migration.NewGridOp(demes, migration.GridConfig{
			Width: c.Width, Toroidal: c.Toroidal, Migrants: c.Migrants,
		}, cfg, logger)
	case "map":
		table := migration.Topology(c.Table)
		if err := table.Validate(demes); err != nil {
			return nil, err
		}
		return migration.NewMapOp(table, cfg)
	default:
		return nil, invalid("unknown migration topology %q", c.Topology)
	}
}
