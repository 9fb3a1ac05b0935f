package badger

import (
	"context"
	"testing"

	"github.com/nmogil/compliance-iq-sub003/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratchPutGet(t *testing.T) {
	_, scratchRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	require.NoError(t, scratchRepo.Put(ctx, "run-1", "counties", []byte(`["Travis","Harris"]`)))

	value, err := scratchRepo.Get(ctx, "run-1", "counties")
	require.NoError(t, err)
	assert.Equal(t, `["Travis","Harris"]`, string(value))
}

func TestScratchGet_NotFound(t *testing.T) {
	_, scratchRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = scratchRepo.Get(context.Background(), "run-1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestScratchPut_Replaces(t *testing.T) {
	_, scratchRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, scratchRepo.Put(ctx, "run-1", "status", []byte("started")))
	require.NoError(t, scratchRepo.Put(ctx, "run-1", "status", []byte("waiting")))

	value, err := scratchRepo.Get(ctx, "run-1", "status")
	require.NoError(t, err)
	assert.Equal(t, "waiting", string(value))
}

func TestScratchCleanup(t *testing.T) {
	_, scratchRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, scratchRepo.Put(ctx, "run-1", "counties", []byte("a")))
	require.NoError(t, scratchRepo.Put(ctx, "run-1", "children", []byte("b")))
	require.NoError(t, scratchRepo.Put(ctx, "run-2", "counties", []byte("c")))

	require.NoError(t, scratchRepo.Cleanup(ctx, "run-1"))

	_, err = scratchRepo.Get(ctx, "run-1", "counties")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = scratchRepo.Get(ctx, "run-1", "children")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Other runs' scratch state is untouched.
	value, err := scratchRepo.Get(ctx, "run-2", "counties")
	require.NoError(t, err)
	assert.Equal(t, "c", string(value))
}

func TestScratchCleanup_EmptyRun(t *testing.T) {
	_, scratchRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	// Cleaning up a run with no entries is not an error.
	assert.NoError(t, scratchRepo.Cleanup(context.Background(), "run-none"))
}

func TestScratchKeys(t *testing.T) {
	_, scratchRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, scratchRepo.Put(ctx, "run-1", "children", []byte("b")))
	require.NoError(t, scratchRepo.Put(ctx, "run-1", "counties", []byte("a")))

	keys, err := scratchRepo.Keys(ctx, "run-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"counties", "children"}, keys)
}
