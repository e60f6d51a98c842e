package ensemble

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// cachedEvaluator scores a fixed candidate list on individual sample rows,
// caching each row's per-candidate scores so overlapping subsamples never
// trigger repeat evaluation. One instance lives for one ROVE run.
type cachedEvaluator struct {
	learner    Learner
	candidates []Candidate
	sample     *mat.Dense
	parallel   int

	// cache maps a sample row index to that row's score per candidate. Each
	// row is filled at most once per evaluator instance.
	cache map[int][]float64
}

func newCachedEvaluator(learner Learner, candidates []Candidate, sample *mat.Dense, parallel int) *cachedEvaluator {
	return &cachedEvaluator{
		learner:    learner,
		candidates: candidates,
		sample:     sample,
		parallel:   max(parallel, 1),
		cache:      make(map[int][]float64),
	}
}

// evaluateSubsamples draws B subsamples of size k from pool, scores every
// candidate on the union of drawn rows and returns the (B x numCandidates)
// matrix of per-subsample average scores, rows in draw order.
func (e *cachedEvaluator) evaluateSubsamples(pool []int, k, B int, rng *rand.Rand) (*mat.Dense, error) {
	if B <= 0 {
		return nil, fmt.Errorf("%w: subsample count B=%d must be positive", ErrInvalidArgument, B)
	}
	if k <= 0 || k > len(pool) {
		return nil, fmt.Errorf("%w: subsample size k=%d must be in (0, %d]", ErrInvalidArgument, k, len(pool))
	}

	// The union of all draws, minus rows already cached, is the minimal
	// evaluation workload for this call.
	draws := make([][]int, B)
	seen := make(map[int]struct{})
	var workload []int
	for i := range draws {
		draws[i] = drawIndices(rng, pool, k)
		for _, row := range draws[i] {
			if _, ok := seen[row]; ok {
				continue
			}
			seen[row] = struct{}{}
			if _, cached := e.cache[row]; !cached {
				workload = append(workload, row)
			}
		}
	}
	slices.Sort(workload)

	if err := e.evaluateRows(workload); err != nil {
		return nil, err
	}

	results := mat.NewDense(B, len(e.candidates), nil)
	sums := make([]float64, len(e.candidates))
	for i, draw := range draws {
		clear(sums)
		for _, row := range draw {
			scores, ok := e.cache[row]
			if !ok {
				return nil, fmt.Errorf("%w: row %d missing from evaluation cache", ErrInternal, row)
			}
			floats.Add(sums, scores)
		}
		floats.Scale(1/float64(len(draw)), sums)
		results.SetRow(i, sums)
	}
	return results, nil
}

// evaluateRows scores every candidate on each listed row and merges the
// worker blocks into the cache. Rows split contiguously across workers; each
// worker owns a disjoint chunk, so the blocks merge without contention after
// the join.
func (e *cachedEvaluator) evaluateRows(rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	spans := partitionTasks(len(rows), min(e.parallel, len(rows)))
	blocks := make([][][]float64, len(spans))
	errs := make([]error, len(spans))

	var wg sync.WaitGroup
	for w, sp := range spans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blocks[w], errs[w] = e.evaluateChunk(rows[sp.start:sp.end])
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	for w, sp := range spans {
		for i, row := range rows[sp.start:sp.end] {
			e.cache[row] = blocks[w][i]
		}
	}
	return nil
}

// evaluateChunk scores every candidate on the chunk's rows, returning one
// per-candidate score vector per row.
func (e *cachedEvaluator) evaluateChunk(rows []int) ([][]float64, error) {
	chunk := rowSubset(e.sample, rows)
	scores := make([][]float64, len(rows))
	for i := range scores {
		scores[i] = make([]float64, len(e.candidates))
	}
	for c, candidate := range e.candidates {
		values, err := e.learner.Objective(candidate, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %d: %w", ErrEvaluation, c, err)
		}
		if len(values) != len(rows) {
			return nil, fmt.Errorf("%w: candidate %d: objective returned %d values for %d rows",
				ErrEvaluation, c, len(values), len(rows))
		}
		for i, v := range values {
			scores[i][c] = v
		}
	}
	return scores, nil
}
