package ensemble

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
)

// resultRef points at one trained candidate: either held inline or persisted
// in the result store under its subsample index. Stored references stay valid
// only while the backing store directory exists.
type resultRef struct {
	candidate Candidate
	index     int
	stored    bool
}

func inlineRef(c Candidate) resultRef {
	return resultRef{candidate: c}
}

func storedRef(index int) resultRef {
	return resultRef{index: index, stored: true}
}

// base carries what both selectors share: the learner, the result store, the
// run-scoped random source and the worker counts. The random source is owned
// by the selector and only ever used from the calling goroutine.
type base struct {
	learner Learner
	store   *resultStore

	rng  *rand.Rand
	seed uint64

	learnParallelism int
	evalParallelism  int
	deleteResults    bool
}

func newBase(learner Learner, s settings) (base, error) {
	if learner == nil {
		return base{}, fmt.Errorf("%w: learner must not be nil", ErrInvalidArgument)
	}
	seed := s.seed
	if !s.seeded {
		seed = uint64(time.Now().UnixNano())
	}
	b := base{
		learner:          learner,
		store:            newResultStore(s.storageDir, codecFor(learner)),
		rng:              rand.New(rand.NewPCG(seed, seed)),
		seed:             seed,
		learnParallelism: s.learnParallelism,
		evalParallelism:  s.evalParallelism,
		deleteResults:    !s.keepResults,
	}
	if err := b.store.prepare(); err != nil {
		return base{}, err
	}
	return b, nil
}

// Reseed restores the selector's random source to its initial seed, so the
// next run repeats the same subsample draws.
func (b *base) Reseed() {
	b.rng = rand.New(rand.NewPCG(b.seed, b.seed))
}

// learnOnSubsamples draws B subsamples of size k from the sample rows, trains
// the learner on each across min(learnParallelism, B) workers and returns the
// B results ordered by draw index regardless of worker completion order. With
// storage enabled every candidate is persisted and referenced by index. The
// first failing task aborts the call; sibling results are discarded and any
// already stored entries are cleaned up.
func (b *base) learnOnSubsamples(sample *mat.Dense, k, B int) ([]resultRef, error) {
	n, _ := sample.Dims()
	if B <= 0 {
		return nil, fmt.Errorf("%w: subsample count B=%d must be positive", ErrInvalidArgument, B)
	}
	if k <= 0 || k > n {
		return nil, fmt.Errorf("%w: subsample size k=%d must be in (0, %d]", ErrInvalidArgument, k, n)
	}
	if err := b.store.prepare(); err != nil {
		return nil, err
	}

	// Draws happen on the calling goroutine before dispatch, so the sequence
	// depends only on the seed, never on the worker count.
	pool := indexRange(0, n)
	draws := make([][]int, B)
	for i := range draws {
		draws[i] = drawIndices(b.rng, pool, k)
	}

	spans := partitionTasks(B, min(b.learnParallelism, B))
	refs := make([]resultRef, B)
	errs := make([]error, len(spans))

	var wg sync.WaitGroup
	for w, sp := range spans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := sp.start; i < sp.end; i++ {
				candidate, err := b.learner.Learn(rowSubset(sample, draws[i]))
				if err != nil {
					errs[w] = fmt.Errorf("%w: subsample %d: %w", ErrLearning, i, err)
					return
				}
				if !b.store.enabled() {
					refs[i] = inlineRef(candidate)
					continue
				}
				if err := b.store.dump(candidate, i); err != nil {
					errs[w] = err
					return
				}
				refs[i] = storedRef(i)
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			b.cleanup(refs)
			return nil, err
		}
	}
	return refs, nil
}

// resolve returns the referenced candidate, loading it from the store when
// it was persisted.
func (b *base) resolve(ref resultRef) (Candidate, error) {
	if !ref.stored {
		return ref.candidate, nil
	}
	return b.store.load(ref.index)
}

// cleanup removes the stored entries behind refs, honoring the deletion
// flag. It never fails: the store logs and swallows deletion problems.
func (b *base) cleanup(refs []resultRef) {
	if !b.deleteResults || !b.store.enabled() {
		return
	}
	indices := make([]int, 0, len(refs))
	for _, ref := range refs {
		if ref.stored {
			indices = append(indices, ref.index)
		}
	}
	if len(indices) > 0 {
		b.store.remove(indices)
	}
}

// drawIndices draws k distinct values from pool without replacement and
// returns them in ascending order. A partial Fisher-Yates shuffle over a
// scratch copy keeps each draw at k swaps.
func drawIndices(rng *rand.Rand, pool []int, k int) []int {
	scratch := make([]int, len(pool))
	copy(scratch, pool)
	for i := range k {
		j := i + rng.IntN(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	drawn := scratch[:k:k]
	slices.Sort(drawn)
	return drawn
}

// indexRange returns the integers [start, end).
func indexRange(start, end int) []int {
	indices := make([]int, end-start)
	for i := range indices {
		indices[i] = start + i
	}
	return indices
}

// span is one worker's contiguous [start, end) share of the task range.
type span struct {
	start, end int
}

// partitionTasks splits count tasks contiguously across workers; the first
// count%workers workers take one extra task.
func partitionTasks(count, workers int) []span {
	per := count / workers
	extra := count % workers
	spans := make([]span, 0, workers)
	start := 0
	for i := range workers {
		size := per
		if i < extra {
			size++
		}
		if size == 0 {
			continue
		}
		spans = append(spans, span{start: start, end: start + size})
		start += size
	}
	return spans
}

// rowSubset copies the given rows of sample into a new dense matrix.
func rowSubset(sample *mat.Dense, rows []int) *mat.Dense {
	_, cols := sample.Dims()
	subset := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		subset.SetRow(i, sample.RawRowView(row))
	}
	return subset
}
