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


package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/nmogil/compliance-iq-sub003/ai"
	"github.com/nmogil/compliance-iq-sub003/core"
	"github.com/nmogil/compliance-iq-sub003/storage"
)

const (
	// DefaultMinSimilarity is the similarity floor for semantic matches.
	DefaultMinSimilarity float32 = 0.60
	// DefaultMaxHits is the result cap when the query does not set one.
	DefaultMaxHits = 10
	// phraseBoost is added when every query word appears in the chunk text.
	phraseBoost float32 = 0.3
	// filterOverfetch widens the candidate pull when a jurisdiction
	// filter will discard part of it.
	filterOverfetch = 4
)

// Query describes one retrieval request.
type Query struct {
	// Text is the natural-language query. Required.
	Text string
	// JurisdictionCode restricts results to one jurisdiction when set.
	JurisdictionCode string
	// MaxHits caps the number of results. Zero means DefaultMaxHits.
	MaxHits int
}

// Searcher provides semantic search over indexed regulation chunks.
type Searcher struct {
	chunks        storage.ChunkRepository
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the similarity floor for semantic matches.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = min
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(chunks storage.ChunkRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		chunks:        chunks,
		embedder:      provider.Embedder(),
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search retrieves chunks relevant to the query, ranked by score.
func (s *Searcher) Search(ctx context.Context, query Query) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor retrieves chunks relevant to the query with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query Query, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if query.Text == "" {
		return nil, ErrEmptyQuery
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	maxHits := query.MaxHits
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query.Text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query.Text, "err", err)
		return nil, err
	}

	// Pull extra candidates when a jurisdiction filter will discard some.
	fetchLimit := maxHits
	if query.JurisdictionCode != "" {
		fetchLimit = maxHits * filterOverfetch
	}

	matches, err := s.chunks.FindSimilar(ctx, embedding, s.minSimilarity, fetchLimit)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	semanticIds := make([]uint64, 0, len(matches))
	for _, match := range matches {
		semanticIds = append(semanticIds, uint64(match.Chunk.Id))
	}
	monitor.AfterSemanticSearch(semanticIds)

	if query.JurisdictionCode != "" {
		filtered := matches[:0]
		filteredIds := make([]uint64, 0, len(matches))
		for _, match := range matches {
			if match.Chunk.JurisdictionCode == query.JurisdictionCode {
				filtered = append(filtered, match)
				filteredIds = append(filteredIds, uint64(match.Chunk.Id))
			}
		}
		matches = filtered
		monitor.AfterJurisdictionFilter(filteredIds)
	}

	results := make([]*core.SearchResult, 0, len(matches))
	for _, match := range matches {
		score := match.Score
		if containsAllQueryWords(match.Chunk.Text, query.Text) {
			score += phraseBoost
			monitor.PhraseMatchHit(match.Chunk)
		}
		results = append(results, &core.SearchResult{
			Chunk: match.Chunk,
			Score: score,
		})
	}

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}
