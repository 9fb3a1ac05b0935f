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


// Package complianceiq indexes county regulation documents into a
// local vector store and retrieves them by semantic similarity. The
// Database facade wires storage, embedding, the jurisdiction registry,
// and the batch/processing/search subsystems together.
package complianceiq

import (
	"log/slog"

	"github.com/nmogil/compliance-iq-sub003/ai"
	"github.com/nmogil/compliance-iq-sub003/ai/openai"
	"github.com/nmogil/compliance-iq-sub003/batch"
	"github.com/nmogil/compliance-iq-sub003/chunker"
	"github.com/nmogil/compliance-iq-sub003/processor"
	"github.com/nmogil/compliance-iq-sub003/registry"
	"github.com/nmogil/compliance-iq-sub003/search"
	"github.com/nmogil/compliance-iq-sub003/storage"
	"github.com/nmogil/compliance-iq-sub003/storage/badger"
)

type Database struct {
	backend     *badger.Backend
	chunkRepo   storage.ChunkRepository
	scratchRepo storage.ScratchRepository
	registry    *registry.Registry
	provider    ai.AIProvider
	logger      *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	registry *registry.Registry
	inMemory bool
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithAIProvider injects a pre-built AI provider, bypassing the
// OpenAI-compatible client. Used for tests and custom backends.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		if provider != nil {
			o.provider = provider
		}
	}
}

// WithRegistry sets the jurisdiction registry.
// Default is registry.Default().
func WithRegistry(reg *registry.Registry) DatabaseOption {
	return func(o *databaseOptions) {
		if reg != nil {
			o.registry = reg
		}
	}
}

// WithInMemory opens the store in memory, discarding data on close.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		registry: registry.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create chunk repository
	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create scratch repository
	scratchRepo := badger.NewScratchRepository(backend)

	// Create AI provider with configured settings unless one was injected
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			chunkRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:     backend,
		chunkRepo:   chunkRepo,
		scratchRepo: scratchRepo,
		registry:    options.registry,
		provider:    provider,
		logger:      slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.chunkRepo.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunkRepo
}

func (db *Database) ScratchRepository() storage.ScratchRepository {
	return db.scratchRepo
}

func (db *Database) Registry() *registry.Registry {
	return db.registry
}

// NewProcessor builds the per-county processing unit over this
// database's chunk store and embedder.
func (db *Database) NewProcessor(fetcher processor.Fetcher, chunkerOpts []chunker.Option, opts ...processor.ProcessorOption) (*processor.Processor, error) {
	c, err := chunker.New(chunkerOpts...)
	if err != nil {
		return nil, err
	}
	return processor.NewProcessor(fetcher, c, db.provider.Embedder(), db.chunkRepo, opts...)
}

// NewCoordinator builds a batch coordinator executing children on the
// given runner.
func (db *Database) NewCoordinator(runner batch.Runner, opts ...batch.Option) (*batch.Coordinator, error) {
	return batch.NewCoordinator(db.registry, runner, db.scratchRepo, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.chunkRepo, db.provider, opts...)
}
