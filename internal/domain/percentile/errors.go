package percentile

import "errors"

// Sentinel errors for estimator preconditions.
var (
	ErrLengthMismatch = errors.New("bucket and boundary lengths differ")
	ErrQuantileRange  = errors.New("quantile must be in (0, 1]")
)
