package ensemble

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ROVEParams are the run parameters for two-phase epsilon-optimal voting.
// K1/K2 <= 0 pick the subsample sizes automatically; Epsilon < 0 switches on
// auto-calibration toward AutoEpsilonProb.
type ROVEParams struct {
	B1, B2          int
	K1, K2          int
	Epsilon         float64
	AutoEpsilonProb float64
}

// DefaultROVEParams returns the standard two-phase configuration, with
// epsilon auto-calibrated toward a 0.5 optimality probability.
func DefaultROVEParams() ROVEParams {
	return ROVEParams{B1: 50, B2: 200, Epsilon: -1, AutoEpsilonProb: 0.5}
}

// ROVE gathers unique candidates from a first round of subsample training,
// then selects the one most likely to be epsilon-optimal across a second
// round of subsample evaluations.
type ROVE struct {
	base
	dataSplit bool
}

// NewROVE builds a two-phase epsilon-optimal selector.
func NewROVE(learner Learner, opts ...Option) (*ROVE, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	b, err := newBase(learner, s)
	if err != nil {
		return nil, err
	}
	return &ROVE{base: b, dataSplit: s.dataSplit}, nil
}

// Run performs two-phase selection with the default parameters.
func (r *ROVE) Run(sample *mat.Dense) (Candidate, error) {
	return r.RunWith(sample, DefaultROVEParams())
}

// RunWith executes both phases with the given parameters and returns the
// selected candidate. Explicit subsample sizes larger than their phase's row
// count are clamped with a warning, collapsing that phase to one subsample.
func (r *ROVE) RunWith(sample *mat.Dense, params ROVEParams) (Candidate, error) {
	if sample == nil {
		return nil, fmt.Errorf("%w: sample must not be nil", ErrInvalidArgument)
	}
	n, cols := sample.Dims()
	if n == 0 {
		return nil, fmt.Errorf("%w: sample must not be empty", ErrInvalidArgument)
	}
	if params.B1 <= 0 || params.B2 <= 0 {
		return nil, fmt.Errorf("%w: subsample counts B1=%d and B2=%d must be positive", ErrInvalidArgument, params.B1, params.B2)
	}
	plan, err := r.plan(n, params)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("B1", plan.b1).Int("k1", plan.k1).
		Int("B2", plan.b2).Int("k2", plan.k2).
		Bool("data_split", r.dataSplit).
		Msg("starting two-phase selection")

	phaseOne := sample
	if r.dataSplit {
		phaseOne = sample.Slice(0, plan.n1, 0, cols).(*mat.Dense)
	}
	refs, err := r.learnOnSubsamples(phaseOne, plan.k1, plan.b1)
	if err != nil {
		return nil, err
	}
	defer r.cleanup(refs)

	candidates, err := r.gatherCandidates(refs)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("candidates", len(candidates)).Msg("phase one finished")

	evaluator := newCachedEvaluator(r.learner, candidates, sample, r.evalParallelism)
	best, err := r.selectCandidate(evaluator, plan, params)
	if err != nil {
		return nil, err
	}
	winner := candidates[best]
	if len(winner) == 0 {
		return nil, fmt.Errorf("%w: selected candidate %d is empty", ErrInternal, best)
	}
	return winner, nil
}

// rovePlan is the resolved run layout: phase row counts and effective
// subsample shapes.
type rovePlan struct {
	n1, n2        int
	phaseTwoStart int
	b1, b2        int
	k1, k2        int
}

func (r *ROVE) plan(n int, params ROVEParams) (rovePlan, error) {
	p := rovePlan{b1: params.B1, b2: params.B2}
	phaseOneEnd := n
	if r.dataSplit {
		phaseOneEnd = n / 2
		p.phaseTwoStart = phaseOneEnd
	}
	if phaseOneEnd <= 0 || p.phaseTwoStart >= n {
		return rovePlan{}, fmt.Errorf("%w: sample of %d rows is too small to split across phases", ErrInvalidArgument, n)
	}
	p.n1 = phaseOneEnd
	p.n2 = n - p.phaseTwoStart

	switch {
	case params.K1 <= 0:
		divisor := noDedupDivisor
		if r.learner.EnableDeduplication() {
			divisor = dedupDivisor
		}
		p.k1 = autoSubsampleSize(p.n1, divisor)
	case params.K1 > p.n1:
		log.Warn().Int("k1", params.K1).Int("rows", p.n1).Msg("phase one subsample size exceeds available rows, clamping with B1=1")
		p.k1 = p.n1
		p.b1 = 1
	default:
		p.k1 = params.K1
	}

	switch {
	case params.K2 <= 0:
		p.k2 = autoSubsampleSize(p.n2, dedupDivisor)
	case params.K2 > p.n2:
		log.Warn().Int("k2", params.K2).Int("rows", p.n2).Msg("phase two subsample size exceeds available rows, clamping with B2=1")
		p.k2 = p.n2
		p.b2 = 1
	default:
		p.k2 = params.K2
	}
	return p, nil
}

// gatherCandidates resolves every phase one reference, dropping duplicates
// in favor of their first occurrence when the learner supports
// deduplication.
func (r *ROVE) gatherCandidates(refs []resultRef) ([]Candidate, error) {
	dedup := r.learner.EnableDeduplication()
	candidates := make([]Candidate, 0, len(refs))
	for _, ref := range refs {
		candidate, err := r.resolve(ref)
		if err != nil {
			return nil, err
		}
		if dedup && hasDuplicate(r.learner, candidates, candidate) {
			continue
		}
		candidates = append(candidates, candidate)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: phase one retained no candidates", ErrNoResults)
	}
	return candidates, nil
}

func hasDuplicate(learner Learner, kept []Candidate, candidate Candidate) bool {
	for _, other := range kept {
		if learner.IsDuplicate(candidate, other) {
			return true
		}
	}
	return false
}

// selectCandidate evaluates phase two subsamples, fixes epsilon and returns
// the index of the candidate with the highest epsilon-optimal probability.
// Ties go to the first-occurring maximum.
func (r *ROVE) selectCandidate(evaluator *cachedEvaluator, plan rovePlan, params ROVEParams) (int, error) {
	pool := indexRange(plan.phaseTwoStart, plan.phaseTwoStart+plan.n2)
	scores, err := evaluator.evaluateSubsamples(pool, plan.k2, plan.b2, r.rng)
	if err != nil {
		return 0, err
	}
	gaps := gapMatrix(scores, r.learner.Minimize())

	epsilon := params.Epsilon
	if epsilon < 0 {
		target := clamp01(params.AutoEpsilonProb)
		calibration := gaps
		if r.dataSplit {
			// The phase two rows pick the winner, so they cannot also
			// calibrate epsilon; rerun the same evaluation shape on the
			// phase one rows.
			kCal := plan.k2
			if kCal > plan.n1 {
				log.Warn().Int("k2", kCal).Int("rows", plan.n1).Msg("calibration subsample size exceeds phase one rows, clamping")
				kCal = plan.n1
			}
			calScores, err := evaluator.evaluateSubsamples(indexRange(0, plan.n1), kCal, plan.b2, r.rng)
			if err != nil {
				return 0, err
			}
			calibration = gapMatrix(calScores, r.learner.Minimize())
		}
		epsilon, err = findEpsilon(calibration, target)
		if err != nil {
			return 0, err
		}
		log.Debug().Float64("epsilon", epsilon).Float64("target_prob", target).Msg("calibrated epsilon")
	}

	return floats.MaxIdx(epsilonOptimalProbs(gaps, epsilon)), nil
}

// gapMatrix converts raw scores into per-row distances from the row's best
// value: zero at the best candidate, positive elsewhere.
func gapMatrix(scores *mat.Dense, minimize bool) *mat.Dense {
	rows, cols := scores.Dims()
	gaps := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for i := range rows {
		mat.Row(row, i, scores)
		if minimize {
			floats.AddConst(-floats.Min(row), row)
		} else {
			best := floats.Max(row)
			floats.Scale(-1, row)
			floats.AddConst(best, row)
		}
		gaps.SetRow(i, row)
	}
	return gaps
}

// epsilonOptimalProbs returns, per candidate, the fraction of subsample rows
// whose gap is within epsilon of that row's best value.
func epsilonOptimalProbs(gaps *mat.Dense, epsilon float64) []float64 {
	rows, cols := gaps.Dims()
	probs := make([]float64, cols)
	for j := range cols {
		within := 0
		for i := range rows {
			if gaps.At(i, j) <= epsilon {
				within++
			}
		}
		probs[j] = float64(within) / float64(rows)
	}
	return probs
}

// epsilonTolerance stops the bisection once the bracket is narrow in both
// absolute and relative terms.
const epsilonTolerance = 1e-3

// findEpsilon returns the smallest epsilon (within tolerance) at which some
// candidate's epsilon-optimal probability reaches targetProb, or exactly 0
// when the target is already met without relaxation. The bracket doubles
// from 1 until it contains the threshold, then bisects.
func findEpsilon(gaps *mat.Dense, targetProb float64) (float64, error) {
	if targetProb > 1 {
		return 0, fmt.Errorf("%w: target probability %g exceeds 1", ErrInvalidArgument, targetProb)
	}
	if floats.Max(epsilonOptimalProbs(gaps, 0)) >= targetProb {
		return 0, nil
	}

	left, right := 0.0, 1.0
	for floats.Max(epsilonOptimalProbs(gaps, right)) < targetProb {
		left = right
		right *= 2
	}
	for bracketWidth(left, right) > epsilonTolerance {
		mid := (left + right) / 2
		if floats.Max(epsilonOptimalProbs(gaps, mid)) >= targetProb {
			right = mid
		} else {
			left = mid
		}
	}
	return right, nil
}

// bracketWidth is the larger of the bracket's absolute width and its width
// relative to the bound magnitudes.
func bracketWidth(left, right float64) float64 {
	width := right - left
	return math.Max(width, width/(math.Abs(left)/2+math.Abs(right)/2+1e-5))
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
