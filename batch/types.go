package batch

import "context"

// State is a child job's lifecycle state as reported by its runner.
type State string

const (
	// StateRunning indicates the child has not reached a terminal state.
	StateRunning State = "running"
	// StateComplete indicates the child finished and produced an output payload.
	StateComplete State = "complete"
	// StateErrored indicates the child failed with an error message.
	StateErrored State = "errored"
)

// Params are the invocation parameters for a batch run.
// An empty CountyNames selects every enabled county in the registry.
type Params struct {
	CountyNames []string `json:"countyNames,omitempty"`
}

// ChildParams identify the jurisdiction a child job processes.
type ChildParams struct {
	CountyName string `json:"countyName"`
	CountyCode string `json:"countyCode"`
}

// ChildCounts are the per-county processing totals reported by a child.
type ChildCounts struct {
	OrdinancesFetched int `json:"ordinancesFetched"`
	ChunksCreated     int `json:"chunksCreated"`
	VectorsUpserted   int `json:"vectorsUpserted"`
}

// ChildOutput is the structured payload of a completed child job.
type ChildOutput struct {
	Success    bool        `json:"success"`
	DurationMs int64       `json:"durationMs"`
	Data       ChildCounts `json:"data"`
}

// ChildStatus is a child job's terminal status as observed by the coordinator.
type ChildStatus struct {
	State  State
	Output *ChildOutput
	Error  string
}

// Handle references one spawned child job.
type Handle interface {
	// ID returns the child job identifier.
	ID() string

	// Await blocks until the child reaches a terminal state and
	// returns that status. Await does not retry; bounded retry on
	// query failure is the coordinator's responsibility.
	Await(ctx context.Context) (*ChildStatus, error)
}

// Runner spawns child jobs. Children execute independently and
// concurrently to each other and to the coordinator. There is no
// interface to cancel a spawned child.
type Runner interface {
	Start(ctx context.Context, params ChildParams) (Handle, error)
}

// ChildResult is the coordinator's record of one child job's outcome.
// A child that reported an errored status appears as a synthetic
// failed result with zero counts and the captured error message.
type ChildResult struct {
	County     string      `json:"county"`
	CountyCode string      `json:"countyCode"`
	ChildID    string      `json:"childId"`
	Success    bool        `json:"success"`
	DurationMs int64       `json:"durationMs"`
	Counts     ChildCounts `json:"counts"`
	Error      string      `json:"error,omitempty"`
}

// Data is the aggregate over all child results in a run.
type Data struct {
	CountiesProcessed int      `json:"countiesProcessed"`
	TotalChunks       int      `json:"totalChunks"`
	TotalVectors      int      `json:"totalVectors"`
	ChildWorkflowIDs  []string `json:"childWorkflowIds"`
}

// Result is the summary returned by a batch run. Success is the
// logical AND of all child successes; Error is set only when the run
// itself failed, never for individual child failures.
type Result struct {
	RunID      string        `json:"runId"`
	Success    bool          `json:"success"`
	DurationMs int64         `json:"durationMs"`
	Error      string        `json:"error,omitempty"`
	Data       Data          `json:"data"`
	Children   []ChildResult `json:"children,omitempty"`

	// Advisory reports side-channel outcomes. It never influences
	// Success or Error and is excluded from the sink payload.
	Advisory Advisory `json:"-"`
}

// Advisory is the outcome of the run's best-effort side channels.
type Advisory struct {
	SinkSynced bool
	SinkErr    error
	CleanupErr error
}
