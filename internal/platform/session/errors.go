package session

import "errors"

var (
	ErrAlreadyExists       = errors.New("clan session already exists")
	ErrNotFound            = errors.New("clan session not found")
	ErrPipelineUnavailable = errors.New("clan session pipeline not attached")
)
