package domain

import "errors"

var (
	ErrMalformedRequest  = errors.New("malformed run request")
	ErrDuplicateRun      = errors.New("run already registered")
	ErrUnknownRun        = errors.New("unknown run")
	ErrEngineUnavailable = errors.New("pipeline engine unavailable")
	ErrEngineRejected    = errors.New("pipeline engine rejected execution")
	ErrMalformedReport   = errors.New("malformed test report")
)
