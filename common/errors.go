package common

import "errors"

var (
	ErrorInvalidValue = errors.New("invalid value")

	// ErrInput marks problems with an input series that abort the whole run:
	// missing variable, malformed time axis, unreadable source.
	ErrInput = errors.New("input error")
)
