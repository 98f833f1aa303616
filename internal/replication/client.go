package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"semikv/internal/delay"
	"semikv/internal/wire"
)

// Follower is one follower's replicate endpoint. Implementations make a
// single attempt per call; retries are owned by nobody in this system.
type Follower interface {
	ID() string
	Replicate(ctx context.Context, req wire.ReplicateRequest) (bool, error)
}

// HTTPFollower replicates over the follower's internal HTTP endpoint,
// sleeping a leader-side simulated lag before each send.
type HTTPFollower struct {
	id      string
	baseURL string
	client  *http.Client
	delayFn delay.Func
	logger  hclog.Logger
}

// NewHTTPFollower creates a follower client for the given base URL.
// timeout bounds the HTTP call itself (one round budget per call, as a
// call may outlive the round it was dispatched for).
func NewHTTPFollower(baseURL string, delayFn delay.Func, timeout time.Duration, logger hclog.Logger) *HTTPFollower {
	return &HTTPFollower{
		id:      baseURL,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		delayFn: delayFn,
		logger:  logger.Named("follower-client").With("follower", baseURL),
	}
}

// ID returns the follower's identifier (its base URL).
func (f *HTTPFollower) ID() string {
	return f.id
}

// Replicate sleeps the simulated lag, then posts the entry to the
// follower. The sleep is not interrupted when the round resolves:
// timed-out rounds deliberately leave their calls running, so followers
// can apply writes the client already saw fail.
func (f *HTTPFollower) Replicate(ctx context.Context, req wire.ReplicateRequest) (bool, error) {
	if d := f.delayFn(); d > 0 {
		time.Sleep(d)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("marshal replicate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/internal/replicate", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build replicate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("replicate to %s: %w", f.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("replicate to %s: status %d", f.baseURL, resp.StatusCode)
	}

	var rr wire.ReplicateResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return false, fmt.Errorf("decode replicate response from %s: %w", f.baseURL, err)
	}

	// An ack means the follower received the write; Applied=false only
	// tells us it skipped the entry as stale, which still counts.
	f.logger.Debug("replicated", "key", req.Key, "seq", req.Seq, "applied", rr.Applied)
	return true, nil
}
