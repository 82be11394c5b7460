package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidRequest = errors.New("invalid request")
	ErrEngineTimeout  = errors.New("engine metadata timeout")
	ErrUnsupported    = errors.New("unsupported operation")
)
