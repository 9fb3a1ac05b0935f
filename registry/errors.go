package registry

import "errors"

var (
	// ErrEmptyRegistry is returned when a registry file contains no jurisdictions.
	ErrEmptyRegistry = errors.New("registry contains no jurisdictions")
)
