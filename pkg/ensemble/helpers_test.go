package ensemble

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// funcLearner assembles a learner from closures so tests can script training
// and scoring behavior without separate types.
type funcLearner struct {
	learn     func(*mat.Dense) (Candidate, error)
	objective func(Candidate, *mat.Dense) ([]float64, error)
	minimize  bool
	dedup     bool
	duplicate func(a, b Candidate) bool
}

func (l funcLearner) Learn(sample *mat.Dense) (Candidate, error) { return l.learn(sample) }

func (l funcLearner) Objective(c Candidate, sample *mat.Dense) ([]float64, error) {
	return l.objective(c, sample)
}

func (l funcLearner) Minimize() bool { return l.minimize }

func (l funcLearner) EnableDeduplication() bool { return l.dedup }

func (l funcLearner) IsDuplicate(a, b Candidate) bool {
	if l.duplicate == nil {
		return false
	}
	return l.duplicate(a, b)
}

// firstColumnLearner returns the subsample's first column as the candidate,
// so each result identifies exactly which rows were drawn.
func firstColumnLearner() funcLearner {
	return funcLearner{
		learn: func(sample *mat.Dense) (Candidate, error) {
			return Candidate(mat.Col(nil, 0, sample)), nil
		},
		objective: scaleObjective,
		minimize:  true,
	}
}

// scaleObjective scores row i as candidate[0] * sample[i][0].
func scaleObjective(candidate Candidate, sample *mat.Dense) ([]float64, error) {
	rows, _ := sample.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = candidate[0] * sample.At(i, 0)
	}
	return out, nil
}

// twoArmLearner allocates the whole budget to the column with the smaller
// sum, mirroring a two-product cost minimization.
func twoArmLearner(dedup bool) funcLearner {
	return funcLearner{
		learn: func(sample *mat.Dense) (Candidate, error) {
			rows, _ := sample.Dims()
			first, second := 0.0, 0.0
			for i := range rows {
				first += sample.At(i, 0)
				second += sample.At(i, 1)
			}
			if first < second {
				return Candidate{1, 0}, nil
			}
			return Candidate{0, 1}, nil
		},
		objective: func(candidate Candidate, sample *mat.Dense) ([]float64, error) {
			rows, _ := sample.Dims()
			out := make([]float64, rows)
			for i := range out {
				out[i] = candidate[0]*sample.At(i, 0) + candidate[1]*sample.At(i, 1)
			}
			return out, nil
		},
		minimize:  true,
		dedup:     dedup,
		duplicate: func(a, b Candidate) bool { return slices.Equal(a, b) },
	}
}

// indexColumnSample builds an n x 1 sample whose single column holds the row
// index.
func indexColumnSample(n int) *mat.Dense {
	sample := mat.NewDense(n, 1, nil)
	for i := range n {
		sample.Set(i, 0, float64(i))
	}
	return sample
}

// twoArmSample builds an n x 2 cost sample with the given column means and
// Gaussian noise.
func twoArmSample(n int, firstMean, secondMean, noise float64, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed))
	sample := mat.NewDense(n, 2, nil)
	for i := range n {
		sample.Set(i, 0, firstMean+noise*rng.NormFloat64())
		sample.Set(i, 1, secondMean+noise*rng.NormFloat64())
	}
	return sample
}
