package domain

import "errors"

var (
	// ErrEmptyCatalog indicates an operation needs at least one item
	ErrEmptyCatalog = errors.New("empty catalog")

	// ErrNotPrepared indicates an embedder was used before Prepare
	ErrNotPrepared = errors.New("embedder not prepared")

	// ErrDimensionMismatch indicates vectors of differing length were mixed
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrBackendUnavailable indicates the generative backend could not be used
	ErrBackendUnavailable = errors.New("generative backend unavailable")
)
