package node

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"semikv/internal/config"
	"semikv/internal/delay"
	"semikv/internal/health"
	"semikv/internal/metrics"
	"semikv/internal/replication"
	"semikv/internal/storage"
)

const proberFailThreshold = 3

// Node is a single process in the cluster: a leader with a replication
// coordinator and follower prober, or a follower serving only reads and
// internal applies.
type Node struct {
	settings    config.Settings
	store       storage.Store
	coordinator *replication.Coordinator
	prober      *health.Prober
	metrics     *metrics.Metrics
	logger      hclog.Logger
	httpServer  *http.Server
}

// New wires a node from validated settings. A configuration error is
// fatal: the caller must refuse to serve.
func New(settings config.Settings, logger hclog.Logger) (*Node, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger = logger.With("node", settings.NodeID)

	n := &Node{
		settings: settings,
		store:    storage.NewInMemoryStore(),
		metrics:  metrics.New(),
		logger:   logger,
	}

	n.httpServer = &http.Server{Handler: n.Handler()}

	if settings.Role == config.RoleLeader {
		delayFn := delay.Uniform(settings.MinDelay(), settings.MaxDelay())
		followers := make([]replication.Follower, 0, len(settings.FollowerURLs))
		for _, url := range settings.FollowerURLs {
			followers = append(followers, replication.NewHTTPFollower(url, delayFn, settings.ReplicateTimeout(), logger))
		}
		n.coordinator = replication.NewCoordinator(
			n.store, followers, settings.WriteQuorum, settings.ReplicateTimeout(), n.metrics, logger)
		n.prober = health.NewProber(
			settings.FollowerURLs, settings.ProbeInterval(), proberFailThreshold,
			health.HTTPProbe(settings.ProbeInterval()), logger)
	}

	return n, nil
}

// Start listens on the configured address and serves until Stop.
func (n *Node) Start() error {
	lis, err := net.Listen("tcp", n.settings.ListenAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.settings.ListenAddr(), err)
	}
	return n.Serve(lis)
}

// Serve runs the node on an existing listener. It blocks until the
// server is shut down.
func (n *Node) Serve(lis net.Listener) error {
	if n.prober != nil {
		n.prober.Start()
	}

	n.logger.Info("starting node", "role", n.settings.Role, "addr", lis.Addr().String())
	if n.settings.Role == config.RoleLeader {
		n.logger.Info("replication configured",
			"followers", len(n.settings.FollowerURLs),
			"write_quorum", n.settings.WriteQuorum,
			"replicate_timeout", n.settings.ReplicateTimeout(),
			"delay_min", n.settings.MinDelay(),
			"delay_max", n.settings.MaxDelay())
	}

	if err := n.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop gracefully stops the node. Background replication calls are not
// waited for; followers that miss them stay stale, which reads are
// allowed to observe.
func (n *Node) Stop() {
	if n.prober != nil {
		n.prober.Stop()
	}
	if n.httpServer != nil {
		n.logger.Info("stopping node")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = n.httpServer.Shutdown(ctx)
	}
}

// Store exposes the node's local store.
func (n *Node) Store() storage.Store {
	return n.store
}
