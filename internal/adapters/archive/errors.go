package archive

import "errors"

// Sentinel kinds for archive errors.
var (
	// ErrArchiveUnavailable means the team has no archive directory.
	ErrArchiveUnavailable = errors.New("archive unavailable")
	// ErrRecordUnreadable means one record could not be read or decoded.
	ErrRecordUnreadable = errors.New("record unreadable")
	// ErrInvalidTeamID means the team id cannot be used as a directory name.
	ErrInvalidTeamID = errors.New("invalid team id")
)
