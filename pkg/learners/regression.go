// Package learners bundles ready-made learners for the ensemble selectors:
// an ordinary least squares regression and a two-product newsvendor style
// linear program, plus synthetic data generators for both.
package learners

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/PrejudiceDDH/voteensemble/pkg/ensemble"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LinearRegression fits ordinary least squares coefficients on each
// subsample. Column 0 of a sample holds the label, the remaining columns the
// features. The objective is the per-row squared residual, so selection
// minimizes out-of-sample squared error.
//
// Regression coefficients are continuous, so deduplication is disabled and
// the learner only suits the two-phase selector.
type LinearRegression struct{}

// Learn solves the least squares problem on the subsample and returns the
// fitted coefficients, one per feature column.
func (LinearRegression) Learn(sample *mat.Dense) (ensemble.Candidate, error) {
	rows, cols := sample.Dims()
	if rows == 0 {
		return nil, fmt.Errorf("%w: sample has no rows", ErrMalformedSample)
	}
	if cols < 2 {
		return nil, fmt.Errorf("%w: regression needs a label column and at least one feature, got %d columns", ErrMalformedSample, cols)
	}

	features := sample.Slice(0, rows, 1, cols)
	labels := mat.NewVecDense(rows, mat.Col(nil, 0, sample))

	var beta mat.VecDense
	if err := beta.SolveVec(features, labels); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("solve least squares: %w", err)
		}
		// An ill-conditioned subsample still yields usable coefficients.
	}

	candidate := make(ensemble.Candidate, cols-1)
	for i := range candidate {
		v := beta.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("least squares produced non-finite coefficient at index %d", i)
		}
		candidate[i] = v
	}
	return candidate, nil
}

// Objective returns the squared residual of the fitted coefficients on every
// row of the sample.
func (LinearRegression) Objective(candidate ensemble.Candidate, sample *mat.Dense) ([]float64, error) {
	rows, cols := sample.Dims()
	if cols < 2 || len(candidate) != cols-1 {
		return nil, fmt.Errorf("%w: expected %d coefficients, got %d", ErrBadCandidate, cols-1, len(candidate))
	}

	var predicted mat.VecDense
	predicted.MulVec(sample.Slice(0, rows, 1, cols), mat.NewVecDense(len(candidate), candidate))

	residuals := make([]float64, rows)
	for i := range residuals {
		r := sample.At(i, 0) - predicted.AtVec(i)
		residuals[i] = r * r
	}
	return residuals, nil
}

func (LinearRegression) Minimize() bool { return true }

func (LinearRegression) EnableDeduplication() bool { return false }

func (LinearRegression) IsDuplicate(a, b ensemble.Candidate) bool { return false }

// GenerateRegressionData draws a synthetic regression sample with standard
// normal features and labels produced by the ground truth coefficients
// beta_j = j plus centered Gaussian noise. Column 0 holds the label.
func GenerateRegressionData(rows, features int, noise float64, seed uint64) *mat.Dense {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed)}

	sample := mat.NewDense(rows, features+1, nil)
	for i := range rows {
		label := 0.0
		for j := range features {
			v := normal.Rand()
			sample.Set(i, j+1, v)
			label += float64(j) * v
		}
		sample.Set(i, 0, label+noise*normal.Rand())
	}
	return sample
}
