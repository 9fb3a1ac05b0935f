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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	complianceiq "github.com/nmogil/compliance-iq-sub003"
	"github.com/nmogil/compliance-iq-sub003/ai"
	"github.com/nmogil/compliance-iq-sub003/batch"
	"github.com/nmogil/compliance-iq-sub003/core"
	"github.com/nmogil/compliance-iq-sub003/processor"
	"github.com/nmogil/compliance-iq-sub003/registry"
	"github.com/nmogil/compliance-iq-sub003/search"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "complianceiq",
		Usage: "County regulation retrieval pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "batch",
				Usage:  "Run a county batch: fetch, chunk, embed, and index regulation documents",
				Action: batchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "county",
						Aliases: []string{"c"},
						Usage:   "County to process (repeatable; default: all enabled counties)",
					},
					&cli.StringFlag{
						Name:     "docs-dir",
						Usage:    "Directory holding fetched documents, one subdirectory per county code",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "registry-file",
						Usage: "YAML jurisdiction registry (default: built-in Texas counties)",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "sink-url",
						Usage: "HTTP endpoint receiving the final run status (optional)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of counties processed concurrently",
						Value: 2,
					},
					&cli.DurationFlag{
						Name:  "status-retry-delay",
						Usage: "Delay before retrying a failed child status query",
						Value: batch.DefaultStatusRetryDelay,
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "Report metadata validation, citation coverage, and token statistics for the index",
				Action: validateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "outlier-stddevs",
						Usage: "Standard deviations from the mean marking a token-count outlier",
						Value: 2.0,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Retrieve indexed regulation chunks by semantic similarity",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "jurisdiction",
						Aliases: []string{"j"},
						Usage:   "Restrict results to one jurisdiction code",
					},
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of results",
						Value: search.DefaultMaxHits,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Similarity floor for semantic matches",
						Value: float64(search.DefaultMinSimilarity),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func batchCommand(c *cli.Context) error {
	ctx := context.Background()

	reg := registry.Default()
	if path := c.String("registry-file"); path != "" {
		loaded, err := registry.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = loaded
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := complianceiq.NewDatabase(c.String("db"),
		complianceiq.WithAIConfig(aiConfig),
		complianceiq.WithRegistry(reg),
	)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	proc, err := db.NewProcessor(processor.NewDirFetcher(c.String("docs-dir")), nil)
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}

	runner, err := processor.NewLocalRunner(proc, processor.WithPoolSize(c.Int("pool-size")))
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}
	defer runner.Release()

	coordinatorOpts := []batch.Option{
		batch.WithStatusRetryDelay(c.Duration("status-retry-delay")),
	}
	if sinkURL := c.String("sink-url"); sinkURL != "" {
		coordinatorOpts = append(coordinatorOpts, batch.WithSink(batch.NewHTTPSink(sinkURL)))
	}

	coordinator, err := db.NewCoordinator(runner, coordinatorOpts...)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}

	result := coordinator.Run(ctx, batch.Params{CountyNames: c.StringSlice("county")})

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))

	if !result.Success {
		return fmt.Errorf("batch run did not fully succeed")
	}
	return nil
}

func validateCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := complianceiq.NewDatabase(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	chunks, err := db.ChunkRepository().GetAllChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}

	validation := core.ValidateChunks(chunks)
	coverage := core.CitationCoverage(chunks)
	completeness := core.MetadataCompleteness(chunks)
	distribution := core.SourceTypeDistribution(chunks)

	fmt.Printf("Chunks: %d total, %d valid\n", validation.TotalChunks, validation.ValidChunks)
	for _, invalid := range validation.InvalidChunks {
		fmt.Printf("  %s: %s\n", invalid.ChunkID, strings.Join(invalid.Issues, "; "))
	}

	fmt.Printf("Citation coverage: %.1f%% (%d/%d)\n",
		coverage.CoveragePercent, coverage.WithCitation, coverage.TotalChunks)
	for _, id := range coverage.MissingCitations {
		fmt.Printf("  missing citation: %s\n", id)
	}

	fmt.Printf("Optional metadata: title %d, category %d, lastUpdated %d\n",
		completeness.Title, completeness.Category, completeness.LastUpdated)

	fmt.Println("Source types:")
	for _, sourceType := range []core.SourceType{
		core.SourceTypeFederal, core.SourceTypeState, core.SourceTypeCounty, core.SourceTypeMunicipal,
	} {
		if count := distribution[sourceType]; count > 0 {
			fmt.Printf("  %s: %d\n", sourceType, count)
		}
	}

	counts := make([]int, 0, len(chunks))
	for _, chunk := range chunks {
		counts = append(counts, chunk.TokenCount)
	}

	stats, err := core.ComputeTokenStats(counts)
	if err != nil {
		fmt.Println("Token stats: no chunks indexed")
		return nil
	}
	fmt.Printf("Token counts: min %d, max %d, avg %.1f, p50 %d, p95 %d, p99 %d\n",
		stats.Min, stats.Max, stats.Avg, stats.P50, stats.P95, stats.P99)

	limits := core.DefaultTokenLimits()
	limitReport := core.CheckTokenLimits(counts, limits)
	fmt.Printf("Over soft limit (%d): %d, over hard limit (%d): %d\n",
		limits.Soft, limitReport.OverSoft, limits.Hard, limitReport.OverHard)

	for _, outlier := range core.TokenOutliers(counts, c.Float64("outlier-stddevs")) {
		fmt.Printf("  outlier: chunk %s at %d tokens (%.1f stddevs)\n",
			chunks[outlier.Index].ChunkID, outlier.TokenCount, outlier.Deviation)
	}

	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := complianceiq.NewDatabase(c.String("db"), complianceiq.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	searcher, err := db.NewSearcher(search.WithMinSimilarity(float32(c.Float64("min-similarity"))))
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	start := time.Now()
	results, err := searcher.Search(ctx, search.Query{
		Text:             query,
		JurisdictionCode: c.String("jurisdiction"),
		MaxHits:          c.Int("max-hits"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("%d results in %s\n\n", len(results), time.Since(start).Round(time.Millisecond))
	for i, result := range results {
		fmt.Printf("%d. [%.3f] %s (%s)\n", i+1, result.Score, result.Chunk.Citation, result.Chunk.JurisdictionCode)
		text := result.Chunk.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Printf("   %s\n\n", text)
	}

	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
