package evo

import (
	"fmt"

	"vivarium/internal/model"
	"vivarium/internal/registry"
)

// OpParams carries the typed settings a named operator may need. Unused
// fields are ignored by constructors that do not need them.
type OpParams struct {
	Name string `json:"name"`
	// Proba overrides the operator's default breeding probability.
	Proba        *float64           `json:"proba,omitempty"`
	Participants int                `json:"participants,omitempty"`
	Period       int                `json:"period,omitempty"`
	Factor       float64            `json:"factor,omitempty"`
	Count        int                `json:"count,omitempty"`
	Args         map[string]float64 `json:"args,omitempty"`
}

// ProbaOr returns the configured probability or def.
func (p OpParams) ProbaOr(def float64) float64 {
	if p.Proba == nil {
		return def
	}
	return *p.Proba
}

// Arg returns a plug-in specific argument or def.
func (p OpParams) Arg(key string, def float64) float64 {
	if v, ok := p.Args[key]; ok {
		return v
	}
	return def
}

// OpConstructor builds a breeder operator from its parameters.
type OpConstructor func(p OpParams) (BreederOp, error)

var ops = registry.New[OpConstructor]("breeder operator")

// RegisterOp makes a constructor resolvable by name. Plug-ins call it
// from init.
func RegisterOp(name string, ctor OpConstructor) error {
	return ops.Register(name, ctor)
}

func MustRegisterOp(name string, ctor OpConstructor) {
	ops.MustRegister(name, ctor)
}

func ResolveOp(name string) (OpConstructor, error) {
	return ops.Resolve(name)
}

// BuildOp resolves p.Name and constructs the operator.
func BuildOp(p OpParams) (BreederOp, error) {
	ctor, err := ResolveOp(p.Name)
	if err != nil {
		return nil, err
	}
	op, err := ctor(p)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", p.Name, err)
	}
	return op, nil
}

func ListOps() []string {
	return ops.Names()
}

func participantsOr(p OpParams, def int) int {
	if p.Participants == 0 {
		return def
	}
	return p.Participants
}

func selectionCtor(build func(p OpParams) (Selector, error)) OpConstructor {
	return func(p OpParams) (BreederOp, error) {
		sel, err := build(p)
		if err != nil {
			return nil, err
		}
		return NewSelectionOp(p.Name, sel, p.ProbaOr(DefaultReproProba))
	}
}

func init() {
	MustRegisterOp("select-best", selectionCtor(func(OpParams) (Selector, error) { return BestSelector{}, nil }))
	MustRegisterOp("select-worst", selectionCtor(func(OpParams) (Selector, error) { return WorstSelector{}, nil }))
	MustRegisterOp("select-random", selectionCtor(func(OpParams) (Selector, error) { return RandomSelector{}, nil }))
	MustRegisterOp("select-roulette", selectionCtor(func(OpParams) (Selector, error) { return RouletteSelector{}, nil }))
	MustRegisterOp("select-tournament", selectionCtor(func(p OpParams) (Selector, error) {
		return NewTournamentSelector(participantsOr(p, 2))
	}))
	MustRegisterOp("select-parsimony-tournament", selectionCtor(func(p OpParams) (Selector, error) {
		return NewParsimonyTournamentSelector(participantsOr(p, 2))
	}))
	MustRegisterOp("select-worst-tournament", selectionCtor(func(p OpParams) (Selector, error) {
		return NewWorstTournamentSelector(participantsOr(p, 2))
	}))
	MustRegisterOp("adapt-breeding-proba", func(p OpParams) (BreederOp, error) {
		cfg := DefaultAdaptConfig()
		if p.Period != 0 {
			cfg.Period = p.Period
		}
		if p.Factor != 0 {
			cfg.Factor = p.Factor
		}
		return NewAdaptBreedingProbaOp(p.Name, cfg)
	})
}

// SelectorByName returns a built-in selector for migration and other
// non-tree uses.
func SelectorByName(name string, participants int) (Selector, error) {
	switch name {
	case "best":
		return BestSelector{}, nil
	case "worst":
		return WorstSelector{}, nil
	case "random":
		return RandomSelector{}, nil
	case "", "unique-random":
		return UniqueRandomSelector{}, nil
	case "roulette":
		return RouletteSelector{}, nil
	case "tournament":
		return NewTournamentSelector(participants)
	case "parsimony-tournament":
		return NewParsimonyTournamentSelector(participants)
	case "worst-tournament":
		return NewWorstTournamentSelector(participants)
	default:
		return nil, fmt.Errorf("%w: unknown selector %q", model.ErrValidation, name)
	}
}
