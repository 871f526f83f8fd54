package domain

import "errors"

var (
	// ErrInvalidParameter reports a bad epsilon, min-samples or threshold value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidCoordinate reports a latitude or longitude that is out of
	// range or not finite.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrEmptyInput reports a clustering run over zero incidents. It is
	// distinct from a run that found zero clusters.
	ErrEmptyInput = errors.New("empty input")

	// ErrNotReady reports a query issued before any cluster index was published.
	ErrNotReady = errors.New("cluster index not ready")
)
