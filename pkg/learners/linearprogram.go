package learners

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/PrejudiceDDH/voteensemble/pkg/ensemble"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Two solutions closer than this in L1 distance count as the same vertex.
const duplicateTolerance = 1e-6

// LinearProgram solves a toy two-product allocation problem: given a sample
// of per-product costs, put the whole unit budget on the product with the
// lower mean cost. Solutions are basic feasible points, either [1 0] or
// [0 1], so deduplication is exact and the learner suits both selectors.
type LinearProgram struct{}

// Learn compares the column means of the two cost columns and allocates the
// budget to the cheaper product.
func (LinearProgram) Learn(sample *mat.Dense) (ensemble.Candidate, error) {
	rows, cols := sample.Dims()
	if rows == 0 {
		return nil, fmt.Errorf("%w: sample has no rows", ErrMalformedSample)
	}
	if cols != 2 {
		return nil, fmt.Errorf("%w: expected 2 cost columns, got %d", ErrMalformedSample, cols)
	}

	first := floats.Sum(mat.Col(nil, 0, sample)) / float64(rows)
	second := floats.Sum(mat.Col(nil, 1, sample)) / float64(rows)
	if first < second {
		return ensemble.Candidate{1, 0}, nil
	}
	return ensemble.Candidate{0, 1}, nil
}

// Objective returns the allocation cost of the candidate on every row.
func (LinearProgram) Objective(candidate ensemble.Candidate, sample *mat.Dense) ([]float64, error) {
	rows, cols := sample.Dims()
	if cols != 2 || len(candidate) != 2 {
		return nil, fmt.Errorf("%w: expected a 2-element allocation, got %d (sample has %d columns)", ErrBadCandidate, len(candidate), cols)
	}

	costs := make([]float64, rows)
	for i := range costs {
		costs[i] = sample.At(i, 0)*candidate[0] + sample.At(i, 1)*candidate[1]
	}
	return costs, nil
}

func (LinearProgram) Minimize() bool { return true }

func (LinearProgram) EnableDeduplication() bool { return true }

// IsDuplicate reports whether two allocations land on the same vertex.
func (LinearProgram) IsDuplicate(a, b ensemble.Candidate) bool {
	if len(a) != len(b) {
		return false
	}
	distance := 0.0
	for i := range a {
		distance += math.Abs(a[i] - b[i])
	}
	return distance < duplicateTolerance
}

// GenerateProgramData draws a synthetic cost sample with one column per
// entry of means, each cell the column mean plus centered Gaussian noise.
func GenerateProgramData(rows int, means []float64, noise float64, seed uint64) *mat.Dense {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed)}

	sample := mat.NewDense(rows, len(means), nil)
	for i := range rows {
		for j, mean := range means {
			sample.Set(i, j, mean+noise*normal.Rand())
		}
	}
	return sample
}
