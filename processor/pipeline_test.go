package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nmogil/compliance-iq-sub003/ai/mock"
	"github.com/nmogil/compliance-iq-sub003/batch"
	"github.com/nmogil/compliance-iq-sub003/core"
	badgerstore "github.com/nmogil/compliance-iq-sub003/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticFetcher returns a fixed document set.
type staticFetcher struct {
	docs []*core.Document
	err  error
}

func (f *staticFetcher) FetchDocuments(context.Context, batch.ChildParams) ([]*core.Document, error) {
	return f.docs, f.err
}

// lineChunker emits one chunk per non-empty line, enough structure to
// drive the pipeline without a tokenizer.
type lineChunker struct{}

func (lineChunker) ChunkDocument(doc *core.Document, indexedAt time.Time) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	index := 0
	for _, line := range strings.Split(doc.Text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		chunkID := fmt.Sprintf("%s-%d", doc.SourceID, index)
		chunks = append(chunks, &core.Chunk{
			Id:               core.IDFromContent(chunkID + "\n" + line),
			ChunkID:          chunkID,
			SourceID:         doc.SourceID,
			SourceType:       doc.SourceType,
			JurisdictionCode: doc.JurisdictionCode,
			Citation:         doc.Citation,
			Text:             line,
			TokenCount:       len(strings.Fields(line)),
			IndexedAt:        indexedAt,
		})
		index++
	}
	return chunks, nil
}

func testDocs() []*core.Document {
	return []*core.Document{
		{
			SourceID:         "travis-ord-30",
			SourceType:       core.SourceTypeCounty,
			JurisdictionCode: "48453",
			Citation:         "Travis County Code § 30.02",
			Text:             "noise limits after ten\npermit requirements",
		},
		{
			SourceID:         "travis-ord-12",
			SourceType:       core.SourceTypeCounty,
			JurisdictionCode: "48453",
			Citation:         "Travis County Code § 12.01",
			Text:             "burn ban provisions",
		},
	}
}

func testParams() batch.ChildParams {
	return batch.ChildParams{CountyName: "Travis", CountyCode: "48453"}
}

func TestProcess(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	p, err := NewProcessor(&staticFetcher{docs: testDocs()}, lineChunker{}, mock.NewMockEmbedder(), chunkRepo)
	require.NoError(t, err)

	output, err := p.Process(context.Background(), testParams())
	require.NoError(t, err)

	assert.True(t, output.Success)
	assert.Equal(t, 2, output.Data.OrdinancesFetched)
	assert.Equal(t, 3, output.Data.ChunksCreated)
	assert.Equal(t, 3, output.Data.VectorsUpserted)

	stored, err := chunkRepo.GetChunksByJurisdiction(context.Background(), "48453")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, chunk := range stored {
		assert.NotEmpty(t, chunk.Vector, "chunk %s missing vector", chunk.ChunkID)

		// Vectors are normalized before upsert.
		var sum float32
		for _, v := range chunk.Vector {
			sum += v * v
		}
		assert.InDelta(t, 1.0, sum, 0.01)
	}
}

func TestProcess_NoDocuments(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	p, err := NewProcessor(&staticFetcher{}, lineChunker{}, mock.NewMockEmbedder(), chunkRepo)
	require.NoError(t, err)

	output, err := p.Process(context.Background(), testParams())
	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.Zero(t, output.Data.OrdinancesFetched)
	assert.Zero(t, output.Data.ChunksCreated)
	assert.Zero(t, output.Data.VectorsUpserted)
}

func TestProcess_FetchError(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	p, err := NewProcessor(&staticFetcher{err: errors.New("source unavailable")}, lineChunker{}, mock.NewMockEmbedder(), chunkRepo)
	require.NoError(t, err)

	_, err = p.Process(context.Background(), testParams())
	assert.ErrorContains(t, err, "source unavailable")
}

func TestProcess_EmbeddingRetried(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	calls := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("embedding service overloaded")
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	}

	p, err := NewProcessor(&staticFetcher{docs: testDocs()}, lineChunker{}, embedder, chunkRepo,
		WithEmbedRetry(3, time.Millisecond))
	require.NoError(t, err)

	output, err := p.Process(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, 3, output.Data.VectorsUpserted)
	assert.Equal(t, 2, calls)
}

func TestProcess_EmbeddingExhausted(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	p, err := NewProcessor(&staticFetcher{docs: testDocs()}, lineChunker{}, embedder, chunkRepo,
		WithEmbedRetry(2, time.Millisecond))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), testParams())
	assert.ErrorContains(t, err, "embedding service down")
}

func TestProcess_EmbeddingCountMismatch(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}

	p, err := NewProcessor(&staticFetcher{docs: testDocs()}, lineChunker{}, embedder, chunkRepo,
		WithEmbedRetry(1, time.Millisecond))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), testParams())
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestProcess_BatchesEmbeddings(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	var batchSizes []int
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(texts))
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{0, 1}
		}
		return vectors, nil
	}

	p, err := NewProcessor(&staticFetcher{docs: testDocs()}, lineChunker{}, embedder, chunkRepo,
		WithEmbedBatchSize(2))
	require.NoError(t, err)

	output, err := p.Process(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, 3, output.Data.VectorsUpserted)
	assert.Equal(t, []int{2, 1}, batchSizes)
}

func TestNewProcessor_RequiresDependencies(t *testing.T) {
	chunkRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewProcessor(nil, lineChunker{}, mock.NewMockEmbedder(), chunkRepo)
	assert.ErrorIs(t, err, ErrFetcherRequired)

	_, err = NewProcessor(&staticFetcher{}, nil, mock.NewMockEmbedder(), chunkRepo)
	assert.ErrorIs(t, err, ErrChunkerRequired)

	_, err = NewProcessor(&staticFetcher{}, lineChunker{}, nil, chunkRepo)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewProcessor(&staticFetcher{}, lineChunker{}, mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)
}
