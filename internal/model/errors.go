package model

import "errors"

// ErrValidation marks configuration rejected before evolution runs.
var ErrValidation = errors.New("invalid configuration")

// Runtime failures that abort the current operation.
var (
	ErrEmptyPool              = errors.New("selection pool is empty")
	ErrMissingFitness         = errors.New("individual has no fitness")
	ErrInvalidFitness         = errors.New("individual fitness is invalid")
	ErrTooManyEmigrants       = errors.New("more emigrants requested than available")
	ErrInsufficientCandidates = errors.New("not enough distinct candidates")
	ErrNoBreederTree          = errors.New("no breeder tree attached")
	ErrDemeShape              = errors.New("deme has unexpected size")
	ErrSelectionCount         = errors.New("selection counts do not match request")
	ErrSlotOutOfRange         = errors.New("replacement slot out of range")
	ErrUnsupportedFitness     = errors.New("fitness type not supported by operator")
)
