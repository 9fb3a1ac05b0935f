package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nmogil/compliance-iq-sub003/core"
	"github.com/nmogil/compliance-iq-sub003/registry"
	"github.com/nmogil/compliance-iq-sub003/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandle returns a scripted sequence of status responses, one per
// Await call, so tests can exercise the single-retry behavior.
type fakeHandle struct {
	id        string
	responses []awaitResponse
	calls     int
}

type awaitResponse struct {
	status *ChildStatus
	err    error
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Await(context.Context) (*ChildStatus, error) {
	r := h.responses[min(h.calls, len(h.responses)-1)]
	h.calls++
	return r.status, r.err
}

// fakeRunner hands out pre-scripted handles keyed by county name.
type fakeRunner struct {
	handles  map[string]*fakeHandle
	startErr error
	started  []ChildParams
}

func (r *fakeRunner) Start(_ context.Context, params ChildParams) (Handle, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.started = append(r.started, params)
	h, ok := r.handles[params.CountyName]
	if !ok {
		return nil, fmt.Errorf("no scripted handle for %s", params.CountyName)
	}
	return h, nil
}

// fakeScratch is an in-memory scratch store with failure injection.
type fakeScratch struct {
	mu         sync.Mutex
	entries    map[string][]byte
	putErr     error
	cleanupErr error
	cleaned    []string
}

func newFakeScratch() *fakeScratch {
	return &fakeScratch{entries: map[string][]byte{}}
}

func (s *fakeScratch) Put(_ context.Context, runID, key string, value []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[runID+"/"+key] = value
	return nil
}

func (s *fakeScratch) Get(_ context.Context, runID, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[runID+"/"+key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return value, nil
}

func (s *fakeScratch) Keys(_ context.Context, runID string) ([]string, error) {
	return nil, nil
}

func (s *fakeScratch) Cleanup(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaned = append(s.cleaned, runID)
	if s.cleanupErr != nil {
		return s.cleanupErr
	}
	for k := range s.entries {
		delete(s.entries, k)
	}
	return nil
}

// recordingSink captures pushed results and optionally fails.
type recordingSink struct {
	results []*Result
	err     error
}

func (s *recordingSink) SyncStatus(_ context.Context, result *Result) error {
	s.results = append(s.results, result)
	return s.err
}

func testRegistry() *registry.Registry {
	return registry.New([]core.Jurisdiction{
		{Name: "Travis", Code: "48453", Enabled: true},
		{Name: "Harris", Code: "48201", Enabled: true},
		{Name: "Dallas", Code: "48113", Enabled: true},
	})
}

func completedHandle(id string, fetched, chunks, vectors int) *fakeHandle {
	return &fakeHandle{id: id, responses: []awaitResponse{{
		status: &ChildStatus{State: StateComplete, Output: &ChildOutput{
			Success:    true,
			DurationMs: 1200,
			Data: ChildCounts{
				OrdinancesFetched: fetched,
				ChunksCreated:     chunks,
				VectorsUpserted:   vectors,
			},
		}},
	}}}
}

func erroredHandle(id, message string) *fakeHandle {
	return &fakeHandle{id: id, responses: []awaitResponse{{
		status: &ChildStatus{State: StateErrored, Error: message},
	}}}
}

func testCoordinator(t *testing.T, runner Runner, scratch storage.ScratchRepository, opts ...Option) *Coordinator {
	t.Helper()
	base := []Option{
		WithStatusRetryDelay(time.Millisecond),
		WithRunIDFunc(func() string { return "run-test" }),
	}
	c, err := NewCoordinator(testRegistry(), runner, scratch, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestRun_AllChildrenSucceed(t *testing.T) {
	runner := &fakeRunner{handles: map[string]*fakeHandle{
		"Travis": completedHandle("county-48453-1", 10, 100, 100),
		"Harris": completedHandle("county-48201-1", 20, 250, 250),
	}}
	scratch := newFakeScratch()
	c := testCoordinator(t, runner, scratch)

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis", "Harris"}})

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, 2, result.Data.CountiesProcessed)
	assert.Equal(t, 350, result.Data.TotalChunks)
	assert.Equal(t, 350, result.Data.TotalVectors)
	assert.Equal(t, []string{"county-48453-1", "county-48201-1"}, result.Data.ChildWorkflowIDs)
	require.Len(t, result.Children, 2)
	assert.Equal(t, "Travis", result.Children[0].County)
	assert.Equal(t, "48453", result.Children[0].CountyCode)

	// All children spawned before any await.
	assert.Len(t, runner.started, 2)

	// Scratch cleaned up after the run.
	assert.Equal(t, []string{"run-test"}, scratch.cleaned)
	assert.Empty(t, scratch.entries)
}

func TestRun_PartialFailureTolerated(t *testing.T) {
	runner := &fakeRunner{handles: map[string]*fakeHandle{
		"Travis": completedHandle("county-48453-1", 10, 100, 100),
		"Harris": erroredHandle("county-48201-1", "timeout"),
	}}
	c := testCoordinator(t, runner, newFakeScratch())

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis", "Harris"}})

	// One child failing flips the aggregate but is not a run error.
	assert.False(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, 2, result.Data.CountiesProcessed)
	assert.Equal(t, 100, result.Data.TotalChunks)
	assert.Equal(t, 100, result.Data.TotalVectors)

	require.Len(t, result.Children, 2)
	failed := result.Children[1]
	assert.False(t, failed.Success)
	assert.Equal(t, "timeout", failed.Error)
	assert.Zero(t, failed.Counts.OrdinancesFetched)
	assert.Zero(t, failed.Counts.ChunksCreated)
	assert.Zero(t, failed.Counts.VectorsUpserted)
}

func TestRun_StatusQueryRetriedOnce(t *testing.T) {
	handle := &fakeHandle{id: "county-48453-1", responses: []awaitResponse{
		{err: errors.New("transient query failure")},
		{status: &ChildStatus{State: StateComplete, Output: &ChildOutput{Success: true}}},
	}}
	runner := &fakeRunner{handles: map[string]*fakeHandle{"Travis": handle}}
	c := testCoordinator(t, runner, newFakeScratch())

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis"}})

	assert.True(t, result.Success)
	assert.Equal(t, 2, handle.calls, "failed query retried exactly once")
}

func TestRun_StatusQueryExhaustedFailsRun(t *testing.T) {
	handle := &fakeHandle{id: "county-48453-1", responses: []awaitResponse{
		{err: errors.New("query failure")},
	}}
	runner := &fakeRunner{handles: map[string]*fakeHandle{"Travis": handle}}
	scratch := newFakeScratch()
	c := testCoordinator(t, runner, scratch)

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis"}})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "query failure")
	assert.Empty(t, result.Children)
	assert.Equal(t, 2, handle.calls)

	// Cleanup runs on the failure path too.
	assert.Equal(t, []string{"run-test"}, scratch.cleaned)
}

func TestRun_UnexpectedStateFailsRun(t *testing.T) {
	handle := &fakeHandle{id: "county-48453-1", responses: []awaitResponse{
		{status: &ChildStatus{State: StateRunning}},
	}}
	runner := &fakeRunner{handles: map[string]*fakeHandle{"Travis": handle}}
	c := testCoordinator(t, runner, newFakeScratch())

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis"}})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unexpected child status")
}

func TestRun_SpawnFailureFailsRun(t *testing.T) {
	runner := &fakeRunner{startErr: errors.New("pool exhausted")}
	scratch := newFakeScratch()
	c := testCoordinator(t, runner, scratch)

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis"}})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "pool exhausted")
	assert.Equal(t, []string{"run-test"}, scratch.cleaned)
}

func TestRun_SinkFailureIsAdvisory(t *testing.T) {
	runner := &fakeRunner{handles: map[string]*fakeHandle{
		"Travis": completedHandle("county-48453-1", 1, 10, 10),
	}}
	sink := &recordingSink{err: errors.New("sink unavailable")}
	c := testCoordinator(t, runner, newFakeScratch(), WithSink(sink))

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis"}})

	// The push failed but the run outcome is untouched.
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.False(t, result.Advisory.SinkSynced)
	assert.ErrorContains(t, result.Advisory.SinkErr, "sink unavailable")
	require.Len(t, sink.results, 1)
}

func TestRun_SinkReceivesSummary(t *testing.T) {
	runner := &fakeRunner{handles: map[string]*fakeHandle{
		"Travis": completedHandle("county-48453-1", 1, 10, 10),
		"Harris": erroredHandle("county-48201-1", "timeout"),
	}}
	sink := &recordingSink{}
	c := testCoordinator(t, runner, newFakeScratch(), WithSink(sink))

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis", "Harris"}})

	assert.True(t, result.Advisory.SinkSynced)
	require.Len(t, sink.results, 1)
	assert.False(t, sink.results[0].Success)
	assert.Equal(t, 10, sink.results[0].Data.TotalChunks)
}

func TestRun_CleanupFailureIsAdvisory(t *testing.T) {
	runner := &fakeRunner{handles: map[string]*fakeHandle{
		"Travis": completedHandle("county-48453-1", 1, 10, 10),
	}}
	scratch := newFakeScratch()
	scratch.cleanupErr = errors.New("cleanup failed")
	c := testCoordinator(t, runner, scratch)

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis"}})

	assert.True(t, result.Success)
	assert.ErrorContains(t, result.Advisory.CleanupErr, "cleanup failed")
}

func TestRun_ScratchWriteFailureFailsRun(t *testing.T) {
	scratch := newFakeScratch()
	scratch.putErr = errors.New("disk full")
	c := testCoordinator(t, &fakeRunner{}, scratch)

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis"}})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "disk full")
}

func TestRun_UnknownCountiesSelectNothing(t *testing.T) {
	runner := &fakeRunner{handles: map[string]*fakeHandle{}}
	c := testCoordinator(t, runner, newFakeScratch())

	result := c.Run(context.Background(), Params{CountyNames: []string{"Nowhere"}})

	// Vacuous success: nothing selected, nothing failed.
	assert.True(t, result.Success)
	assert.Zero(t, result.Data.CountiesProcessed)
	assert.Empty(t, runner.started)
}

func TestRun_ScratchManifestWritten(t *testing.T) {
	runner := &fakeRunner{handles: map[string]*fakeHandle{
		"Travis": completedHandle("county-48453-1", 1, 10, 10),
	}}
	scratch := newFakeScratch()
	var manifest []byte
	// Capture before cleanup wipes it.
	c := testCoordinator(t, runner, scratch, WithSink(sinkFunc(func(ctx context.Context, _ *Result) error {
		var err error
		manifest, err = scratch.Get(ctx, "run-test", "children")
		return err
	})))

	result := c.Run(context.Background(), Params{CountyNames: []string{"Travis"}})

	require.True(t, result.Success)
	require.True(t, result.Advisory.SinkSynced)
	assert.Contains(t, string(manifest), "county-48453-1")
	assert.Contains(t, string(manifest), "48453")
}

type sinkFunc func(ctx context.Context, result *Result) error

func (f sinkFunc) SyncStatus(ctx context.Context, result *Result) error { return f(ctx, result) }

func TestNewCoordinator_RequiresDependencies(t *testing.T) {
	scratch := newFakeScratch()
	runner := &fakeRunner{}

	_, err := NewCoordinator(nil, runner, scratch)
	assert.ErrorIs(t, err, ErrRegistryRequired)

	_, err = NewCoordinator(testRegistry(), nil, scratch)
	assert.ErrorIs(t, err, ErrRunnerRequired)

	_, err = NewCoordinator(testRegistry(), runner, nil)
	assert.ErrorIs(t, err, ErrScratchRequired)
}
