package processor

import "errors"

var (
	// ErrFetcherRequired is returned when a document fetcher is not provided.
	ErrFetcherRequired = errors.New("document fetcher required")

	// ErrChunkerRequired is returned when a document chunker is not provided.
	ErrChunkerRequired = errors.New("document chunker required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrUnitRequired is returned when a processing unit is not provided.
	ErrUnitRequired = errors.New("processing unit required")

	// ErrEmbeddingCountMismatch indicates the embedder returned a
	// different number of vectors than texts submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match text count")
)
