package service

import (
	"errors"

	"github.com/okian/benchboard/internal/adapters/repository"
)

var (
	// ErrTeamNotFound is returned when a team has no live state.
	ErrTeamNotFound = repository.ErrNotFound
	// ErrNotStarted is returned by operations that need Start to have run.
	ErrNotStarted = errors.New("service not started")
)
