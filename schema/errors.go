package schema

import "errors"

// Sentinel errors shared across the tracker, job and backend layers.
var (
	// ErrInvalidWindow is returned when a window is built with to <= from.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrMissingBounds is returned when an operation needs tracker bounds that are not set yet.
	ErrMissingBounds = errors.New("tracker bounds are not set")

	// ErrSourceNotFound is returned when a tracked source or backend data set does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrJobNotFound is returned when a job id has no open job.
	ErrJobNotFound = errors.New("index job not found")

	// ErrPartialWrite is returned when a bulk write stored only some of the rows.
	ErrPartialWrite = errors.New("partial bulk write")

	// ErrBackendUnavailable is returned when a backend type has no registered service.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
