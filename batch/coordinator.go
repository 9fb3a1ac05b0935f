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


package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nmogil/compliance-iq-sub003/registry"
	"github.com/nmogil/compliance-iq-sub003/storage"
)

const (
	// DefaultStatusAttempts bounds child status queries: the first
	// attempt plus exactly one retry.
	DefaultStatusAttempts = 2
	// DefaultStatusRetryDelay is the pause before the status retry.
	DefaultStatusRetryDelay = 5 * time.Second

	// Scratch keys written during a run.
	scratchKeyCounties = "counties"
	scratchKeyChildren = "children"
)

// Coordinator orchestrates one batch ingestion run across counties.
type Coordinator struct {
	registry       *registry.Registry
	runner         Runner
	scratch        storage.ScratchRepository
	sink           Sink
	logger         *slog.Logger
	statusAttempts int
	retryDelay     time.Duration
	newRunID       func() string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSink sets the status sink.
// Default is NoopSink.
func WithSink(sink Sink) Option {
	return func(c *Coordinator) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStatusRetryDelay sets the pause before retrying a failed child
// status query.
func WithStatusRetryDelay(delay time.Duration) Option {
	return func(c *Coordinator) {
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithRunIDFunc sets the run identifier generator.
func WithRunIDFunc(fn func() string) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newRunID = fn
		}
	}
}

// NewCoordinator creates a batch coordinator.
func NewCoordinator(reg *registry.Registry, runner Runner, scratch storage.ScratchRepository, opts ...Option) (*Coordinator, error) {
	if reg == nil {
		return nil, ErrRegistryRequired
	}
	if runner == nil {
		return nil, ErrRunnerRequired
	}
	if scratch == nil {
		return nil, ErrScratchRequired
	}

	c := &Coordinator{
		registry:       reg,
		runner:         runner,
		scratch:        scratch,
		sink:           NoopSink{},
		logger:         slog.Default().With("component", "batch"),
		statusAttempts: DefaultStatusAttempts,
		retryDelay:     DefaultStatusRetryDelay,
		newRunID: func() string {
			return fmt.Sprintf("batch-%d", time.Now().UnixNano())
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes a batch ingestion run and always returns a summary,
// never an error. Individual child failures are tolerated and recorded
// in the summary; only a failure of the run itself (spawn error,
// scratch write, status query exhausting its retry) produces a failed
// summary with Error set. Scratch state is cleaned up on both paths.
func (c *Coordinator) Run(ctx context.Context, params Params) *Result {
	start := time.Now()
	runID := c.newRunID()
	logger := c.logger.With("runId", runID)
	logger.Info("starting batch run", "requestedCounties", len(params.CountyNames))

	var advisory Advisory
	result, err := c.run(ctx, runID, logger, params)
	if err != nil {
		logger.Error("batch run failed", "error", err)
		result = &Result{
			RunID: runID,
			Error: err.Error(),
			Data:  Data{ChildWorkflowIDs: []string{}},
		}
	} else {
		if sinkErr := c.sink.SyncStatus(ctx, result); sinkErr != nil {
			logger.Warn("status sync failed", "error", sinkErr)
			advisory.SinkErr = sinkErr
		} else {
			advisory.SinkSynced = true
		}
	}

	if cleanupErr := c.scratch.Cleanup(ctx, runID); cleanupErr != nil {
		logger.Warn("scratch cleanup failed", "error", cleanupErr)
		advisory.CleanupErr = cleanupErr
	}

	result.DurationMs = time.Since(start).Milliseconds()
	result.Advisory = advisory

	logger.Info("batch run finished",
		"success", result.Success,
		"counties", result.Data.CountiesProcessed,
		"chunks", result.Data.TotalChunks,
		"vectors", result.Data.TotalVectors,
		"durationMs", result.DurationMs)
	return result
}

// childManifestEntry records one spawned child in scratch state.
type childManifestEntry struct {
	County     string `json:"county"`
	CountyCode string `json:"countyCode"`
	ChildID    string `json:"childId"`
}

func (c *Coordinator) run(ctx context.Context, runID string, logger *slog.Logger, params Params) (*Result, error) {
	counties := c.registry.Select(params.CountyNames)
	logger.Info("selected counties", "count", len(counties))

	if err := c.putScratchJSON(ctx, runID, scratchKeyCounties, counties); err != nil {
		return nil, err
	}

	// Spawn every child before awaiting any, so counties process
	// concurrently.
	handles := make([]Handle, 0, len(counties))
	manifest := make([]childManifestEntry, 0, len(counties))
	for _, county := range counties {
		handle, err := c.runner.Start(ctx, ChildParams{
			CountyName: county.Name,
			CountyCode: county.Code,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start child for county %s: %w", county.Name, err)
		}
		logger.Info("spawned child", "county", county.Name, "childId", handle.ID())
		handles = append(handles, handle)
		manifest = append(manifest, childManifestEntry{
			County:     county.Name,
			CountyCode: county.Code,
			ChildID:    handle.ID(),
		})
	}

	if err := c.putScratchJSON(ctx, runID, scratchKeyChildren, manifest); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:   runID,
		Success: true,
		Data:    Data{ChildWorkflowIDs: make([]string, 0, len(handles))},
	}
	for i, handle := range handles {
		status, err := c.awaitChild(ctx, handle)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve status of child %s: %w", handle.ID(), err)
		}

		child := buildChildResult(manifest[i], status)
		if child.Success {
			logger.Info("child completed",
				"county", child.County,
				"chunks", child.Counts.ChunksCreated,
				"vectors", child.Counts.VectorsUpserted)
		} else {
			logger.Warn("child failed", "county", child.County, "error", child.Error)
			result.Success = false
		}

		result.Children = append(result.Children, child)
		result.Data.CountiesProcessed++
		result.Data.TotalChunks += child.Counts.ChunksCreated
		result.Data.TotalVectors += child.Counts.VectorsUpserted
		result.Data.ChildWorkflowIDs = append(result.Data.ChildWorkflowIDs, child.ChildID)
	}

	return result, nil
}

// awaitChild resolves a child's terminal status, retrying a failed
// query exactly once. A child reporting errored is a valid resolution,
// not a query failure.
func (c *Coordinator) awaitChild(ctx context.Context, handle Handle) (*ChildStatus, error) {
	var status *ChildStatus
	err := RetryWithBackoff(ctx, func() error {
		s, err := handle.Await(ctx)
		if err != nil {
			return err
		}
		switch s.State {
		case StateComplete:
			if s.Output == nil {
				return fmt.Errorf("%w: complete without output for child %s", ErrUnexpectedChildStatus, handle.ID())
			}
		case StateErrored:
		default:
			return fmt.Errorf("%w: %q for child %s", ErrUnexpectedChildStatus, s.State, handle.ID())
		}
		status = s
		return nil
	}, c.statusAttempts, c.retryDelay)
	if err != nil {
		return nil, err
	}
	return status, nil
}

// buildChildResult converts a terminal status into the run's record of
// the child. Errored children become synthetic failed results with
// zero counts.
func buildChildResult(entry childManifestEntry, status *ChildStatus) ChildResult {
	child := ChildResult{
		County:     entry.County,
		CountyCode: entry.CountyCode,
		ChildID:    entry.ChildID,
	}
	if status.State == StateErrored {
		child.Error = status.Error
		return child
	}

	child.Success = status.Output.Success
	child.DurationMs = status.Output.DurationMs
	child.Counts = status.Output.Data
	return child
}

func (c *Coordinator) putScratchJSON(ctx context.Context, runID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode scratch value %s: %w", key, err)
	}
	if err := c.scratch.Put(ctx, runID, key, data); err != nil {
		return fmt.Errorf("failed to persist scratch value %s: %w", key, err)
	}
	return nil
}
