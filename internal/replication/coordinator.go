package replication

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"semikv/internal/metrics"
	"semikv/internal/quorum"
	"semikv/internal/storage"
	"semikv/internal/wire"
)

// Result is what one client write resolves to. Success means at least
// Quorum followers acknowledged before the round timeout. The local
// apply has happened either way and is never rolled back.
type Result struct {
	Success      bool
	Seq          uint64
	Acks         int
	Quorum       int
	Attempted    int
	Elapsed      time.Duration
	ErrorMessage string
}

// Coordinator drives the leader's write path. The follower set, quorum
// and timeout are fixed at construction.
type Coordinator struct {
	store       storage.Store
	followers   []Follower
	byID        map[string]Follower
	writeQuorum int
	timeout     time.Duration
	metrics     *metrics.Metrics
	logger      hclog.Logger
}

// NewCoordinator creates a coordinator. Settings are assumed validated:
// 1 <= writeQuorum <= len(followers), timeout > 0.
func NewCoordinator(store storage.Store, followers []Follower, writeQuorum int, timeout time.Duration, m *metrics.Metrics, logger hclog.Logger) *Coordinator {
	if m == nil {
		m = metrics.New()
	}
	byID := make(map[string]Follower, len(followers))
	for _, f := range followers {
		byID[f.ID()] = f
	}
	return &Coordinator{
		store:       store,
		followers:   followers,
		byID:        byID,
		writeQuorum: writeQuorum,
		timeout:     timeout,
		metrics:     m,
		logger:      logger.Named("coordinator"),
	}
}

// Write applies the entry to the local store, fans it out to every
// follower concurrently, and resolves once writeQuorum followers have
// acknowledged or the round timeout elapses. The leader's own apply
// does not count toward the quorum.
func (c *Coordinator) Write(ctx context.Context, key, value string) Result {
	seq := c.store.NextSeq()
	c.store.Apply(key, value, seq)

	req := wire.ReplicateRequest{Key: key, Value: value, Seq: seq}

	targets := make([]string, len(c.followers))
	for i, f := range c.followers {
		targets[i] = f.ID()
	}

	writeFn := func(ctx context.Context, target string) (bool, error) {
		ack, err := c.byID[target].Replicate(ctx, req)
		c.metrics.RecordReplicate(ack)
		if err != nil {
			c.logger.Debug("replicate failed", "follower", target, "key", key, "seq", seq, "error", err)
		}
		return ack, err
	}

	res := quorum.DoWrite(ctx, targets, c.writeQuorum, c.timeout, writeFn)
	c.metrics.RecordWrite(res.Elapsed, res.Success)

	if res.Success {
		c.logger.Debug("write replicated", "key", key, "seq", seq,
			"acks", res.Acks, "quorum", res.Required, "elapsed", res.Elapsed)
	} else {
		c.logger.Error("write failed quorum", "key", key, "seq", seq,
			"acks", res.Acks, "quorum", res.Required, "error", res.ErrorMessage)
	}

	return Result{
		Success:      res.Success,
		Seq:          seq,
		Acks:         res.Acks,
		Quorum:       res.Required,
		Attempted:    res.Attempted,
		Elapsed:      res.Elapsed,
		ErrorMessage: res.ErrorMessage,
	}
}

// Quorum returns the configured write quorum.
func (c *Coordinator) Quorum() int {
	return c.writeQuorum
}

// FollowerCount returns the size of the fixed follower set.
func (c *Coordinator) FollowerCount() int {
	return len(c.followers)
}
