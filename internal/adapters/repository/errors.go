package repository

import "errors"

// Sentinel kinds for live store errors.
var (
	ErrNotFound = errors.New("team not found")
)
