package bitstr

import (
	"vivarium/internal/evo"
	"vivarium/internal/model"
	"vivarium/internal/rng"
)

// Default operator settings.
const (
	DefaultMutationProba  = 0.1
	DefaultBitProba       = 0.01
	DefaultCrossoverProba = 0.3
	DefaultRecombProba    = 0.3
)

func init() {
	model.Genomes.MustRegister(Kind, func() model.Genome { return &BitString{} })
	model.Initializers.MustRegister(Kind, func(length int, r rng.Randomizer) model.Genome {
		return Random(length, r)
	})

	evo.MustRegisterOp("bitstr-flip-mutation", func(p evo.OpParams) (evo.BreederOp, error) {
		return evo.NewMutationOp(p.Name, p.ProbaOr(DefaultMutationProba),
			FlipMutator{BitProba: p.Arg("bit_proba", DefaultBitProba)})
	})
	evo.MustRegisterOp("bitstr-one-point-crossover", func(p evo.OpParams) (evo.BreederOp, error) {
		return evo.NewCrossoverOp(p.Name, p.ProbaOr(DefaultCrossoverProba), OnePointCrossover{})
	})
	evo.MustRegisterOp("bitstr-uniform-recombination", func(p evo.OpParams) (evo.BreederOp, error) {
		return evo.NewRecombinationOp(p.Name, p.ProbaOr(DefaultRecombProba), p.Count, UniformRecombiner{})
	})
	evo.MustRegisterOp("onemax-evaluation", func(p evo.OpParams) (evo.BreederOp, error) {
		return evo.NewEvaluationOp(p.Name, OneMax{Minimize: p.Arg("minimize", 0) != 0})
	})
}
