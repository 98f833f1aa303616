package it

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"semikv/internal/config"
	"semikv/internal/node"
	"semikv/internal/wire"
)

// Options shapes a test cluster.
type Options struct {
	Followers          int
	WriteQuorum        int
	MinDelayMS         int
	MaxDelayMS         int
	ReplicateTimeoutMS int
}

// ClusterNode is one running node plus its loopback address.
type ClusterNode struct {
	ID   string
	URL  string
	node *node.Node
}

// Cluster is an in-process test cluster: one leader and a fixed set of
// followers, each serving on its own loopback listener.
type Cluster struct {
	Leader    *ClusterNode
	followers []*ClusterNode
	client    *http.Client
	mu        sync.Mutex
	stopped   map[string]bool
}

// StartCluster boots opts.Followers follower nodes, then a leader
// pointed at all of them.
func StartCluster(opts Options) (*Cluster, error) {
	c := &Cluster{
		client:  &http.Client{Timeout: 5 * time.Second},
		stopped: make(map[string]bool),
	}

	logger := hclog.NewNullLogger()

	for i := 0; i < opts.Followers; i++ {
		s := config.Default()
		s.Role = config.RoleFollower
		s.NodeID = fmt.Sprintf("follower-%d", i+1)

		cn, err := startNode(s, logger)
		if err != nil {
			c.Stop()
			return nil, fmt.Errorf("start follower %d: %w", i+1, err)
		}
		c.followers = append(c.followers, cn)
	}

	s := config.Default()
	s.Role = config.RoleLeader
	s.NodeID = "leader"
	s.WriteQuorum = opts.WriteQuorum
	s.MinDelayMS = opts.MinDelayMS
	s.MaxDelayMS = opts.MaxDelayMS
	s.ReplicateTimeoutMS = opts.ReplicateTimeoutMS
	if s.ReplicateTimeoutMS == 0 {
		s.ReplicateTimeoutMS = 2000
	}
	for _, f := range c.followers {
		s.FollowerURLs = append(s.FollowerURLs, f.URL)
	}

	leader, err := startNode(s, logger)
	if err != nil {
		c.Stop()
		return nil, fmt.Errorf("start leader: %w", err)
	}
	c.Leader = leader

	return c, nil
}

func startNode(s config.Settings, logger hclog.Logger) (*ClusterNode, error) {
	n, err := node.New(s, logger)
	if err != nil {
		return nil, err
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	go func() {
		_ = n.Serve(lis)
	}()

	return &ClusterNode{
		ID:   s.NodeID,
		URL:  "http://" + lis.Addr().String(),
		node: n,
	}, nil
}

// Stop shuts down every node still running.
func (c *Cluster) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Leader != nil && !c.stopped[c.Leader.ID] {
		c.Leader.node.Stop()
		c.stopped[c.Leader.ID] = true
	}
	for _, f := range c.followers {
		if !c.stopped[f.ID] {
			f.node.Stop()
			c.stopped[f.ID] = true
		}
	}
}

// StopFollower takes one follower down mid-test.
func (c *Cluster) StopFollower(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.followers[i]
	if !c.stopped[f.ID] {
		f.node.Stop()
		c.stopped[f.ID] = true
	}
}

// Follower returns the i-th follower.
func (c *Cluster) Follower(i int) *ClusterNode {
	return c.followers[i]
}

// FollowerCount returns the number of followers the cluster started.
func (c *Cluster) FollowerCount() int {
	return len(c.followers)
}

// Put issues a client write against a node and decodes whichever body
// came back.
func (c *Cluster) Put(nodeURL, key, value string) (int, wire.PutResponse, wire.ErrorResponse, error) {
	body, _ := json.Marshal(wire.PutRequest{Value: value})
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/kv/%s", nodeURL, key), bytes.NewReader(body))
	if err != nil {
		return 0, wire.PutResponse{}, wire.ErrorResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, wire.PutResponse{}, wire.ErrorResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var pr wire.PutResponse
		err = json.NewDecoder(resp.Body).Decode(&pr)
		return resp.StatusCode, pr, wire.ErrorResponse{}, err
	}
	var er wire.ErrorResponse
	err = json.NewDecoder(resp.Body).Decode(&er)
	return resp.StatusCode, wire.PutResponse{}, er, err
}

// Get reads a key from a node. Returns the status code and, on 200,
// the decoded body.
func (c *Cluster) Get(nodeURL, key string) (int, wire.GetResponse, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s/kv/%s", nodeURL, key))
	if err != nil {
		return 0, wire.GetResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, wire.GetResponse{}, nil
	}
	var gr wire.GetResponse
	err = json.NewDecoder(resp.Body).Decode(&gr)
	return resp.StatusCode, gr, err
}

// Dump fetches a node's full snapshot.
func (c *Cluster) Dump(nodeURL string) (wire.DumpResponse, error) {
	resp, err := c.client.Get(nodeURL + "/dump")
	if err != nil {
		return wire.DumpResponse{}, err
	}
	defer resp.Body.Close()

	var dr wire.DumpResponse
	err = json.NewDecoder(resp.Body).Decode(&dr)
	return dr, err
}

// WaitForValue polls a node until the key holds the value or the
// deadline passes.
func (c *Cluster) WaitForValue(nodeURL, key, value string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, gr, err := c.Get(nodeURL, key)
		if err == nil && status == http.StatusOK && gr.Value != nil && *gr.Value == value {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}
