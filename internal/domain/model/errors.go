package model

import "errors"

// ErrValidation marks a malformed report body.
var ErrValidation = errors.New("validation error")
