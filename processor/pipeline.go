// Copyright 2025 Compliance IQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nmogil/compliance-iq-sub003/ai"
	"github.com/nmogil/compliance-iq-sub003/batch"
	"github.com/nmogil/compliance-iq-sub003/core"
	"github.com/nmogil/compliance-iq-sub003/storage"
)

const (
	// DefaultEmbedBatchSize is the number of chunk texts sent to the
	// embedder per request.
	DefaultEmbedBatchSize = 16
	// DefaultEmbedAttempts bounds embedding calls per batch.
	DefaultEmbedAttempts = 3
	// DefaultEmbedRetryDelay is the base backoff between embedding retries.
	DefaultEmbedRetryDelay = time.Second
)

// DocumentChunker splits one document into metadata-stamped chunks.
type DocumentChunker interface {
	ChunkDocument(doc *core.Document, indexedAt time.Time) ([]*core.Chunk, error)
}

// Processor runs the per-county pipeline: fetch documents, chunk,
// embed, normalize, upsert. One Process call handles one county.
type Processor struct {
	fetcher        Fetcher
	chunker        DocumentChunker
	embedder       ai.Embedder
	chunks         storage.ChunkRepository
	logger         *slog.Logger
	embedBatchSize int
	embedAttempts  int
	embedDelay     time.Duration
	now            func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithEmbedBatchSize sets the embedding batch size.
func WithEmbedBatchSize(size int) ProcessorOption {
	return func(p *Processor) {
		if size > 0 {
			p.embedBatchSize = size
		}
	}
}

// WithEmbedRetry sets the attempt bound and base delay for embedding calls.
func WithEmbedRetry(attempts int, delay time.Duration) ProcessorOption {
	return func(p *Processor) {
		if attempts > 0 {
			p.embedAttempts = attempts
		}
		if delay > 0 {
			p.embedDelay = delay
		}
	}
}

// WithProcessorLogger sets a custom logger.
// Default is slog.Default().
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a per-county processing unit.
func NewProcessor(fetcher Fetcher, chunker DocumentChunker, embedder ai.Embedder, chunks storage.ChunkRepository, opts ...ProcessorOption) (*Processor, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}

	p := &Processor{
		fetcher:        fetcher,
		chunker:        chunker,
		embedder:       embedder,
		chunks:         chunks,
		logger:         slog.Default().With("component", "processor"),
		embedBatchSize: DefaultEmbedBatchSize,
		embedAttempts:  DefaultEmbedAttempts,
		embedDelay:     DefaultEmbedRetryDelay,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs the pipeline for one county and reports what it did.
// A county with no documents is a successful no-op.
func (p *Processor) Process(ctx context.Context, params batch.ChildParams) (*batch.ChildOutput, error) {
	start := time.Now()
	logger := p.logger.With("county", params.CountyName, "countyCode", params.CountyCode)

	docs, err := p.fetcher.FetchDocuments(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents for %s: %w", params.CountyName, err)
	}
	logger.Info("fetched documents", "count", len(docs))

	indexedAt := p.now()
	var chunks []*core.Chunk
	for _, doc := range docs {
		docChunks, err := p.chunker.ChunkDocument(doc, indexedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk document %s: %w", doc.SourceID, err)
		}
		chunks = append(chunks, docChunks...)
	}

	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if len(chunks) > 0 {
		if _, err := p.chunks.UpsertChunks(ctx, chunks...); err != nil {
			return nil, fmt.Errorf("failed to upsert chunks for %s: %w", params.CountyName, err)
		}
	}

	logger.Info("processed county",
		"documents", len(docs), "chunks", len(chunks), "vectors", vectors)
	return &batch.ChildOutput{
		Success:    true,
		DurationMs: time.Since(start).Milliseconds(),
		Data: batch.ChildCounts{
			OrdinancesFetched: len(docs),
			ChunksCreated:     len(chunks),
			VectorsUpserted:   vectors,
		},
	}, nil
}

// embedChunks embeds chunk texts in batches, retrying each batch with
// backoff, and stores unit-length vectors on the chunks. Returns the
// number of vectors produced.
func (p *Processor) embedChunks(ctx context.Context, chunks []*core.Chunk) (int, error) {
	vectors := 0
	for lo := 0; lo < len(chunks); lo += p.embedBatchSize {
		hi := min(lo+p.embedBatchSize, len(chunks))
		texts := make([]string, 0, hi-lo)
		for _, chunk := range chunks[lo:hi] {
			texts = append(texts, chunk.Text)
		}

		var embeddings [][]float32
		err := batch.RetryWithBackoff(ctx, func() error {
			result, err := p.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return err
			}
			if len(result) != len(texts) {
				return fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCountMismatch, len(result), len(texts))
			}
			embeddings = result
			return nil
		}, p.embedAttempts, p.embedDelay)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk batch at offset %d: %w", lo, err)
		}

		for i, embedding := range embeddings {
			chunks[lo+i].Vector = NormalizeVector(embedding)
			vectors++
		}
	}
	return vectors, nil
}
