package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sink receives the final status of a batch run. Pushes are
// best-effort: the coordinator records sink failures as advisory and
// never lets them change the run outcome.
type Sink interface {
	SyncStatus(ctx context.Context, result *Result) error
}

// DefaultSinkTimeout bounds a single sink push.
const DefaultSinkTimeout = 10 * time.Second

// defaultSinkPath is the logical mutation name carried in the payload.
const defaultSinkPath = "batch/recordRunStatus"

// HTTPSink pushes run status to an HTTP endpoint as a single JSON POST.
// It makes exactly one attempt per run; retrying a status push is not
// worth delaying the caller over.
type HTTPSink struct {
	endpoint string
	path     string
	client   *http.Client
}

// SinkOption configures an HTTPSink.
type SinkOption func(*HTTPSink)

// WithSinkPath sets the logical path sent in the payload.
func WithSinkPath(path string) SinkOption {
	return func(s *HTTPSink) {
		if path != "" {
			s.path = path
		}
	}
}

// WithSinkClient sets a custom HTTP client.
func WithSinkClient(client *http.Client) SinkOption {
	return func(s *HTTPSink) {
		if client != nil {
			s.client = client
		}
	}
}

// NewHTTPSink creates a sink that POSTs to the given endpoint URL.
func NewHTTPSink(endpoint string, opts ...SinkOption) *HTTPSink {
	s := &HTTPSink{
		endpoint: endpoint,
		path:     defaultSinkPath,
		client:   &http.Client{Timeout: DefaultSinkTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sinkPayload struct {
	Path string  `json:"path"`
	Args *Result `json:"args"`
}

// SyncStatus POSTs the run summary. Any non-2xx response is an error.
func (s *HTTPSink) SyncStatus(ctx context.Context, result *Result) error {
	body, err := json.Marshal(sinkPayload{Path: s.path, Args: result})
	if err != nil {
		return fmt.Errorf("failed to encode sink payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", ErrSinkStatus, resp.Status)
	}
	return nil
}

// NoopSink discards run status. Used when no external sink is configured.
type NoopSink struct{}

func (NoopSink) SyncStatus(context.Context, *Result) error { return nil }
