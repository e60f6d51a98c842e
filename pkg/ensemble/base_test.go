package ensemble

import (
	"errors"
	"math"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func mustBase(t *testing.T, learner Learner, opts ...Option) *base {
	t.Helper()
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	b, err := newBase(learner, s)
	require.NoError(t, err)
	return &b
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "subsample_result_*.zst"))
	require.NoError(t, err)
	return files
}

func TestNewBaseRejectsNilLearner(t *testing.T) {
	_, err := newBase(nil, defaultSettings())
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLearnOnSubsamplesDrawsSortedDistinctRows(t *testing.T) {
	b := mustBase(t, firstColumnLearner(), WithSeed(42))
	sample := indexColumnSample(100)

	refs, err := b.learnOnSubsamples(sample, 10, 7)
	require.NoError(t, err)
	require.Len(t, refs, 7)

	for _, ref := range refs {
		candidate, err := b.resolve(ref)
		require.NoError(t, err)
		require.Len(t, candidate, 10)
		for i, v := range candidate {
			assert.Equal(t, math.Trunc(v), v)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 100.0)
			if i > 0 {
				assert.Greater(t, v, candidate[i-1])
			}
		}
	}
}

func TestLearnOnSubsamplesValidation(t *testing.T) {
	b := mustBase(t, firstColumnLearner(), WithSeed(1))
	sample := indexColumnSample(10)

	_, err := b.learnOnSubsamples(sample, 5, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = b.learnOnSubsamples(sample, 0, 3)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = b.learnOnSubsamples(sample, 11, 3)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLearnOnSubsamplesParallelismInvariance(t *testing.T) {
	sample := indexColumnSample(60)
	serial := mustBase(t, firstColumnLearner(), WithSeed(7))
	parallel := mustBase(t, firstColumnLearner(), WithSeed(7), WithLearnParallelism(8))

	serialRefs, err := serial.learnOnSubsamples(sample, 5, 16)
	require.NoError(t, err)
	parallelRefs, err := parallel.learnOnSubsamples(sample, 5, 16)
	require.NoError(t, err)

	for i := range serialRefs {
		want, err := serial.resolve(serialRefs[i])
		require.NoError(t, err)
		got, err := parallel.resolve(parallelRefs[i])
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLearnOnSubsamplesWrapsLearnerError(t *testing.T) {
	cause := errors.New("singular subsample")
	var mu sync.Mutex
	calls := 0
	learner := funcLearner{
		learn: func(sample *mat.Dense) (Candidate, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 3 {
				return nil, cause
			}
			return Candidate{1}, nil
		},
		objective: scaleObjective,
	}

	b := mustBase(t, learner, WithSeed(2))
	_, err := b.learnOnSubsamples(indexColumnSample(20), 4, 5)
	require.ErrorIs(t, err, ErrLearning)
	require.ErrorIs(t, err, cause)
}

func TestLearnOnSubsamplesStoresAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	b := mustBase(t, firstColumnLearner(), WithSeed(3), WithStorageDir(dir))

	refs, err := b.learnOnSubsamples(indexColumnSample(30), 4, 6)
	require.NoError(t, err)
	require.Len(t, storedFiles(t, dir), 6)

	for i, ref := range refs {
		require.True(t, ref.stored)
		assert.Equal(t, i, ref.index)
		candidate, err := b.resolve(ref)
		require.NoError(t, err)
		assert.Len(t, candidate, 4)
	}

	b.cleanup(refs)
	assert.Empty(t, storedFiles(t, dir))
}

func TestLearnOnSubsamplesRemovesStoredOnFailure(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	calls := 0
	learner := funcLearner{
		learn: func(sample *mat.Dense) (Candidate, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 4 {
				return nil, errors.New("diverged")
			}
			return Candidate(mat.Col(nil, 0, sample)), nil
		},
		objective: scaleObjective,
	}

	b := mustBase(t, learner, WithSeed(4), WithStorageDir(dir))
	_, err := b.learnOnSubsamples(indexColumnSample(30), 3, 6)
	require.ErrorIs(t, err, ErrLearning)
	assert.Empty(t, storedFiles(t, dir))
}

func TestLearnOnSubsamplesKeepsResultsWhenAsked(t *testing.T) {
	dir := t.TempDir()
	b := mustBase(t, firstColumnLearner(), WithSeed(5), WithStorageDir(dir), WithKeepStoredResults())

	refs, err := b.learnOnSubsamples(indexColumnSample(20), 3, 4)
	require.NoError(t, err)
	b.cleanup(refs)

	assert.Len(t, storedFiles(t, dir), 4)
}

func TestReseedRepeatsDraws(t *testing.T) {
	b := mustBase(t, firstColumnLearner(), WithSeed(6))
	sample := indexColumnSample(50)

	first, err := b.learnOnSubsamples(sample, 5, 3)
	require.NoError(t, err)
	b.Reseed()
	second, err := b.learnOnSubsamples(sample, 5, 3)
	require.NoError(t, err)

	for i := range first {
		want, err := b.resolve(first[i])
		require.NoError(t, err)
		got, err := b.resolve(second[i])
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPartitionTasks(t *testing.T) {
	cases := []struct {
		name    string
		count   int
		workers int
		want    []span
	}{
		{"even", 9, 3, []span{{0, 3}, {3, 6}, {6, 9}}},
		{"remainder", 10, 3, []span{{0, 4}, {4, 7}, {7, 10}}},
		{"single worker", 4, 1, []span{{0, 4}}},
		{"one each", 5, 5, []span{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}}},
		{"more workers than tasks", 3, 7, []span{{0, 1}, {1, 2}, {2, 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, partitionTasks(tc.count, tc.workers))
		})
	}
}

func TestDrawIndices(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	pool := indexRange(0, 10)

	full := drawIndices(rng, pool, 10)
	assert.Equal(t, pool, full)

	partial := drawIndices(rng, pool, 4)
	require.Len(t, partial, 4)
	assert.True(t, slices.IsSorted(partial))
	for i := 1; i < len(partial); i++ {
		assert.NotEqual(t, partial[i-1], partial[i])
	}
	for _, v := range partial {
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
	}
}

func TestIndexRange(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5, 6}, indexRange(3, 7))
	assert.Empty(t, indexRange(2, 2))
}

func TestRowSubset(t *testing.T) {
	sample := mat.NewDense(4, 2, []float64{
		0, 1,
		10, 11,
		20, 21,
		30, 31,
	})

	subset := rowSubset(sample, []int{2, 0})
	rows, cols := subset.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 2, cols)
	assert.Equal(t, []float64{20, 21}, subset.RawRowView(0))
	assert.Equal(t, []float64{0, 1}, subset.RawRowView(1))
}
