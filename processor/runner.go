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
	"runtime"
	"time"

	"github.com/nmogil/compliance-iq-sub003/batch"
	"github.com/panjf2000/ants/v2"
)

// Unit is a per-county processing unit executed by a runner.
type Unit interface {
	Process(ctx context.Context, params batch.ChildParams) (*batch.ChildOutput, error)
}

// LocalRunner executes processing units in-process on a worker pool.
// It implements batch.Runner: children run concurrently with each
// other and with the coordinator, and keep running even if the
// spawning context is canceled.
type LocalRunner struct {
	pool   *ants.Pool
	unit   Unit
	logger *slog.Logger
}

// RunnerOption configures a LocalRunner.
type RunnerOption func(*LocalRunner) error

// WithPoolSize sets the worker pool size for concurrent children.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) RunnerOption {
	return func(r *LocalRunner) error {
		if size < 1 {
			size = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithRunnerLogger sets a custom logger.
// Default is slog.Default().
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *LocalRunner) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// NewLocalRunner creates a runner executing the given unit.
func NewLocalRunner(unit Unit, opts ...RunnerOption) (*LocalRunner, error) {
	if unit == nil {
		return nil, ErrUnitRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &LocalRunner{
		pool:   pool,
		unit:   unit,
		logger: slog.Default().With("component", "runner"),
	}
	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.Release()
			return nil, optErr
		}
	}
	return r, nil
}

// Start submits one child job to the pool and returns its handle.
func (r *LocalRunner) Start(_ context.Context, params batch.ChildParams) (batch.Handle, error) {
	h := &localHandle{
		id:   fmt.Sprintf("county-%s-%d", params.CountyCode, time.Now().UnixNano()),
		done: make(chan struct{}),
	}

	err := r.pool.Submit(func() {
		// Children outlive the spawning call. A fresh context keeps a
		// coordinator-side cancellation from tearing down work in flight.
		output, procErr := r.unit.Process(context.Background(), params)
		if procErr != nil {
			r.logger.Warn("child errored", "childId", h.id, "error", procErr)
			h.status = &batch.ChildStatus{State: batch.StateErrored, Error: procErr.Error()}
		} else {
			h.status = &batch.ChildStatus{State: batch.StateComplete, Output: output}
		}
		close(h.done)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit child for county %s: %w", params.CountyName, err)
	}
	return h, nil
}

// Release releases the worker pool.
// The runner should not be used after calling Release.
func (r *LocalRunner) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// localHandle tracks one in-process child job.
type localHandle struct {
	id     string
	done   chan struct{}
	status *batch.ChildStatus
}

func (h *localHandle) ID() string { return h.id }

// Await blocks until the child finishes or the context is done.
// The status write happens before done is closed, so the read here is
// safe without further synchronization.
func (h *localHandle) Await(ctx context.Context) (*batch.ChildStatus, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.status, nil
	}
}
