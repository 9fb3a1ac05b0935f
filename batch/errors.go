package batch

import "errors"

var (
	// ErrRegistryRequired is returned when a jurisdiction registry is not provided.
	ErrRegistryRequired = errors.New("jurisdiction registry required")

	// ErrRunnerRequired is returned when a child job runner is not provided.
	ErrRunnerRequired = errors.New("child job runner required")

	// ErrScratchRequired is returned when a scratch repository is not provided.
	ErrScratchRequired = errors.New("scratch repository required")

	// ErrUnexpectedChildStatus indicates a child status query returned a
	// state that is neither complete nor errored.
	ErrUnexpectedChildStatus = errors.New("unexpected child status")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrSinkStatus indicates the sink responded with a non-success status.
	ErrSinkStatus = errors.New("sink returned non-success status")
)
