package storage

import (
	"context"

	"github.com/nmogil/compliance-iq-sub003/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ChunkRepository provides operations for managing indexed regulation chunks.
type ChunkRepository interface {
	Repository

	// UpsertChunks inserts or replaces chunks by their content-based ID.
	// Sets InsertedAt on first write and updates UpdatedAt on replace.
	// Returns the chunks with timestamps populated.
	UpsertChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetChunksByJurisdiction retrieves all chunks indexed for a jurisdiction code.
	GetChunksByJurisdiction(ctx context.Context, code string) ([]*core.Chunk, error)

	// GetAllChunks retrieves every stored chunk. Intended for
	// validation reports and reindexing, not serving queries.
	GetAllChunks(ctx context.Context) ([]*core.Chunk, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// DeleteChunksByJurisdiction removes all chunks for a jurisdiction code.
	// Returns the number of chunks deleted.
	DeleteChunksByJurisdiction(ctx context.Context, code string) (int, error)

	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results,
	// ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// ScratchRepository provides run-scoped scratch state for batch runs.
// Keys are namespaced by run identifier; a run's scratch entries are
// exclusively owned by that run and deleted in bulk at its end.
type ScratchRepository interface {
	// Put persists a value under the given run and key, replacing any
	// previous value.
	Put(ctx context.Context, runID, key string, value []byte) error

	// Get retrieves a value by run and key.
	// Returns ErrNotFound if no value exists.
	Get(ctx context.Context, runID, key string) ([]byte, error)

	// Keys lists the scratch keys currently stored for a run.
	Keys(ctx context.Context, runID string) ([]string, error)

	// Cleanup deletes every scratch entry belonging to a run.
	// Deleting a run with no entries is not an error.
	Cleanup(ctx context.Context, runID string) error
}
