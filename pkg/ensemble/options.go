package ensemble

// Option configures a selector at construction time.
type Option func(*settings)

type settings struct {
	learnParallelism int
	evalParallelism  int
	seed             uint64
	seeded           bool
	storageDir       string
	keepResults      bool
	dataSplit        bool
}

func defaultSettings() settings {
	return settings{
		learnParallelism: 1,
		evalParallelism:  1,
	}
}

// WithLearnParallelism sets the number of workers training subsamples.
// Values below 1 are ignored.
func WithLearnParallelism(workers int) Option {
	return func(s *settings) {
		if workers > 0 {
			s.learnParallelism = workers
		}
	}
}

// WithEvalParallelism sets the number of workers scoring candidates during
// ROVE's evaluation phase. Values below 1 are ignored.
func WithEvalParallelism(workers int) Option {
	return func(s *settings) {
		if workers > 0 {
			s.evalParallelism = workers
		}
	}
}

// WithSeed fixes the selector's random source so that subsample draws repeat
// across runs. Unseeded selectors draw their seed from the current time.
func WithSeed(seed uint64) Option {
	return func(s *settings) {
		s.seed = seed
		s.seeded = true
	}
}

// WithStorageDir persists every trained candidate under dir instead of
// holding it in memory. The directory is created on demand; an empty dir
// leaves storage disabled.
func WithStorageDir(dir string) Option {
	return func(s *settings) {
		s.storageDir = dir
	}
}

// WithKeepStoredResults leaves persisted candidates on disk after a run
// instead of removing them during cleanup.
func WithKeepStoredResults() Option {
	return func(s *settings) {
		s.keepResults = true
	}
}

// WithDataSplit makes ROVE train on the first half of the sample rows and
// evaluate on the second half, so that no row serves both phases. MoVE
// ignores it.
func WithDataSplit() Option {
	return func(s *settings) {
		s.dataSplit = true
	}
}
