package chunker

import "errors"

var (
	// ErrInvalidChunkSize is returned for chunk size/overlap configurations
	// that cannot produce valid chunks.
	ErrInvalidChunkSize = errors.New("invalid chunk size configuration")
)
