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


// Package chunker splits regulation documents into token-bounded
// chunks with stamped metadata, ready for embedding and indexing.
package chunker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nmogil/compliance-iq-sub003/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk size in tokens.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is the token overlap between adjacent chunks.
	DefaultChunkOverlap = 64
	// defaultEncoding is the tokenizer encoding used for both splitting
	// and counting. Must match the embedding model family.
	defaultEncoding = "cl100k_base"
)

// TokenCounter counts tokens in a text string.
type TokenCounter interface {
	Count(text string) int
}

// Chunker splits documents into token-bounded chunks.
type Chunker struct {
	splitter  textsplitter.TextSplitter
	counter   TokenCounter
	limits    core.TokenLimits
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the token overlap between adjacent chunks.
func WithChunkOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithTokenLimits sets the soft/hard token limits enforced on output chunks.
func WithTokenLimits(limits core.TokenLimits) Option {
	return func(c *Chunker) {
		c.limits = limits
	}
}

// WithTokenCounter sets a custom token counter.
// Default is a tiktoken cl100k_base counter.
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Chunker) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// WithTextSplitter sets a custom text splitter.
// Default is a langchaingo token splitter over the cl100k_base encoding.
func WithTextSplitter(splitter textsplitter.TextSplitter) Option {
	return func(c *Chunker) {
		if splitter != nil {
			c.splitter = splitter
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		limits:    core.DefaultTokenLimits(),
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		logger:    slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize > c.limits.Hard {
		return nil, fmt.Errorf("%w: chunk size %d exceeds hard token limit %d",
			ErrInvalidChunkSize, c.chunkSize, c.limits.Hard)
	}
	if c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			ErrInvalidChunkSize, c.overlap, c.chunkSize)
	}

	if c.counter == nil {
		counter, err := newTiktokenCounter(defaultEncoding)
		if err != nil {
			return nil, err
		}
		c.counter = counter
	}

	if c.splitter == nil {
		c.splitter = textsplitter.NewTokenSplitter(
			textsplitter.WithChunkSize(c.chunkSize),
			textsplitter.WithChunkOverlap(c.overlap),
			textsplitter.WithEncodingName(defaultEncoding),
		)
	}

	return c, nil
}

// ChunkDocument splits one document into metadata-stamped chunks.
// ChunkIDs are deterministic ("{SourceID}-{index}") and the content ID
// is derived from the chunk ID plus text, so re-chunking the same
// document upserts in place.
func (c *Chunker) ChunkDocument(doc *core.Document, indexedAt time.Time) ([]*core.Chunk, error) {
	if doc == nil {
		return nil, core.ErrInvalidDocument
	}
	if doc.Text == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrEmptyText)
	}

	pieces, err := c.splitter.SplitText(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to split document %s: %w", doc.SourceID, err)
	}

	chunks := make([]*core.Chunk, 0, len(pieces))
	index := 0
	for _, piece := range pieces {
		for _, text := range c.enforceHardLimit(piece) {
			chunkID := fmt.Sprintf("%s-%d", doc.SourceID, index)
			chunks = append(chunks, &core.Chunk{
				Id:               core.IDFromContent(chunkID + "\n" + text),
				ChunkID:          chunkID,
				SourceID:         doc.SourceID,
				SourceType:       doc.SourceType,
				JurisdictionCode: doc.JurisdictionCode,
				Title:            doc.Title,
				Category:         doc.Category,
				Citation:         doc.Citation,
				Text:             text,
				TokenCount:       c.counter.Count(text),
				IndexedAt:        indexedAt,
				LastUpdated:      doc.LastUpdated,
			})
			index++
		}
	}

	c.logger.Debug("chunked document",
		"sourceId", doc.SourceID, "chunks", len(chunks))
	return chunks, nil
}

// enforceHardLimit re-splits a piece that exceeds the hard token limit
// by halving it until every part fits. The splitter normally keeps
// pieces under the configured chunk size; this guards against
// pathological inputs the tokenizer expands.
func (c *Chunker) enforceHardLimit(text string) []string {
	if c.counter.Count(text) <= c.limits.Hard {
		return []string{text}
	}
	if len(text) < 2 {
		return []string{text}
	}

	c.logger.Warn("chunk exceeds hard token limit, re-splitting", "length", len(text))
	mid := len(text) / 2
	out := c.enforceHardLimit(text[:mid])
	return append(out, c.enforceHardLimit(text[mid:])...)
}
