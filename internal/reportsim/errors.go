package reportsim

import "errors"

// Sentinel kinds for simulation errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMismatch         = errors.New("best records mismatch")
)
