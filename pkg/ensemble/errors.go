package ensemble

import "errors"

// ErrInvalidArgument indicates that a selector was built or run with bad
// parameters, such as a non-positive subsample count.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrLearning indicates that a learner call failed while training on a
// subsample. The whole batch is abandoned; sibling results are discarded.
var ErrLearning = errors.New("learning on subsample failed")

// ErrEvaluation indicates that a learner's objective call failed or returned
// a malformed score vector during candidate evaluation.
var ErrEvaluation = errors.New("candidate evaluation failed")

// ErrStorage indicates a filesystem failure while persisting or reading a
// stored candidate.
var ErrStorage = errors.New("result storage failed")

// ErrCorruptResult indicates that a stored candidate could not be decoded,
// including truncated or invalid compressed frames.
var ErrCorruptResult = errors.New("stored result corrupt")

// ErrNoResults indicates that a run retained no candidates to select from.
var ErrNoResults = errors.New("no candidates produced")

// ErrInternal indicates an internal consistency failure, such as a missing
// evaluation cache entry. It is never recoverable.
var ErrInternal = errors.New("internal inconsistency")
