package search

import (
	"context"
	"testing"
	"time"

	"github.com/nmogil/compliance-iq-sub003/ai/mock"
	"github.com/nmogil/compliance-iq-sub003/core"
	badgerstore "github.com/nmogil/compliance-iq-sub003/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChunk(chunkID, code, text string, vector []float32) *core.Chunk {
	return &core.Chunk{
		ChunkID:          chunkID,
		SourceID:         chunkID,
		SourceType:       core.SourceTypeCounty,
		JurisdictionCode: code,
		Citation:         "County Code § 1",
		Text:             text,
		Vector:           vector,
		IndexedAt:        time.Now().UTC(),
	}
}

// testSearcher seeds three chunks with hand-built unit vectors and an
// embedder that always returns the query axis, so similarity scores
// are exact dot products.
func testSearcher(t *testing.T, opts ...Option) (*Searcher, func()) {
	t.Helper()
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)

	_, err = chunkRepo.UpsertChunks(context.Background(),
		seedChunk("travis-noise-0", "48453", "noise limits after ten pm", []float32{1, 0, 0}),
		seedChunk("travis-burn-0", "48453", "burn ban provisions", []float32{0.8, 0.6, 0}),
		seedChunk("harris-noise-0", "48201", "noise limits near hospitals", []float32{0.9, 0, 0.43589}),
	)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	s, err := NewSearcher(chunkRepo, mock.NewMockProviderWithEmbedder(embedder), opts...)
	require.NoError(t, err)
	return s, func() { backend.Close() }
}

func TestSearch(t *testing.T) {
	s, cleanup := testSearcher(t)
	defer cleanup()

	results, err := s.Search(context.Background(), Query{Text: "noise limits"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Ranked by score descending. Both noise chunks carry the phrase
	// boost, so they outrank the closer-in-vector burn chunk.
	assert.Equal(t, "travis-noise-0", results[0].Chunk.ChunkID)
	assert.InDelta(t, 1.3, results[0].Score, 0.001)
	assert.Equal(t, "harris-noise-0", results[1].Chunk.ChunkID)
	assert.Equal(t, "travis-burn-0", results[2].Chunk.ChunkID)
	assert.InDelta(t, 0.8, results[2].Score, 0.001)
}

func TestSearch_JurisdictionFilter(t *testing.T) {
	s, cleanup := testSearcher(t)
	defer cleanup()

	results, err := s.Search(context.Background(), Query{
		Text:             "noise limits",
		JurisdictionCode: "48201",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "harris-noise-0", results[0].Chunk.ChunkID)
}

func TestSearch_MaxHits(t *testing.T) {
	s, cleanup := testSearcher(t)
	defer cleanup()

	results, err := s.Search(context.Background(), Query{Text: "noise limits", MaxHits: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "travis-noise-0", results[0].Chunk.ChunkID)
}

func TestSearch_SimilarityFloor(t *testing.T) {
	s, cleanup := testSearcher(t, WithMinSimilarity(0.85))
	defer cleanup()

	results, err := s.Search(context.Background(), Query{Text: "noise limits"})
	require.NoError(t, err)

	// The burn chunk scores 0.8 and falls below the floor.
	require.Len(t, results, 2)
	for _, result := range results {
		assert.NotEqual(t, "travis-burn-0", result.Chunk.ChunkID)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s, cleanup := testSearcher(t)
	defer cleanup()

	_, err := s.Search(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

// recordingMonitor captures the hook sequence.
type recordingMonitor struct {
	started      bool
	semanticIds  []uint64
	filteredIds  []uint64
	phraseHits   []string
	finalResults int
}

func (m *recordingMonitor) Start(Query)                      { m.started = true }
func (m *recordingMonitor) AfterSemanticSearch(ids []uint64) { m.semanticIds = ids }
func (m *recordingMonitor) AfterJurisdictionFilter(ids []uint64) {
	m.filteredIds = ids
}
func (m *recordingMonitor) PhraseMatchHit(chunk *core.Chunk) {
	m.phraseHits = append(m.phraseHits, chunk.ChunkID)
}
func (m *recordingMonitor) Finish(results []*core.SearchResult) { m.finalResults = len(results) }

func TestSearchWithMonitor(t *testing.T) {
	s, cleanup := testSearcher(t)
	defer cleanup()

	monitor := &recordingMonitor{}
	results, err := s.SearchWithMonitor(context.Background(), Query{
		Text:             "noise limits",
		JurisdictionCode: "48453",
	}, monitor)
	require.NoError(t, err)

	assert.True(t, monitor.started)
	assert.Len(t, monitor.semanticIds, 3)
	assert.Len(t, monitor.filteredIds, 2)
	assert.Contains(t, monitor.phraseHits, "travis-noise-0")
	assert.Equal(t, len(results), monitor.finalResults)
}

func TestNewSearcher_RequiresDependencies(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewSearcher(nil, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewSearcher(chunkRepo, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		name     string
		document string
		query    string
		want     bool
	}{
		{"all present", "noise limits after ten pm", "noise limits", true},
		{"missing word", "noise limits after ten pm", "noise curfew", false},
		{"stop words ignored", "noise limits in the county", "the noise limits", true},
		{"punctuation trimmed", "Noise limits, after ten.", "noise limits", true},
		{"empty query after filtering", "anything", "the a an", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAllQueryWords(tt.document, tt.query))
		})
	}
}
