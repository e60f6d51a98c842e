package learners

import "errors"

// ErrMalformedSample indicates a sample whose shape does not fit the learner,
// such as a regression sample without feature columns.
var ErrMalformedSample = errors.New("malformed sample")

// ErrBadCandidate indicates a candidate whose size does not match the
// learner's expected solution shape.
var ErrBadCandidate = errors.New("bad candidate")
