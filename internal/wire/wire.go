// Package wire defines the JSON bodies exchanged on the public API and
// on the internal leader-to-follower replicate endpoint.
package wire

// PutRequest is the body of PUT /kv/{key}.
type PutRequest struct {
	Value string `json:"value"`
}

// PutResponse is returned by the leader once a write round resolves.
// Acks and ReplicatedTo describe the round at the moment it resolved;
// background replication may raise the real follower count afterwards.
type PutResponse struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	Seq          uint64 `json:"seq"`
	Acks         int    `json:"acks"`
	Quorum       int    `json:"quorum"`
	ReplicatedTo int    `json:"replicated_to"`
}

// GetResponse is the body of GET /kv/{key}. Value and Seq are nil when
// the key is absent (the status code is 404 in that case).
type GetResponse struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
	Seq   *uint64 `json:"seq"`
}

// ReplicateRequest is the body of POST /internal/replicate.
type ReplicateRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Seq   uint64 `json:"seq"`
}

// ReplicateResponse reports whether the follower applied the entry or
// skipped it as stale.
type ReplicateResponse struct {
	Applied bool `json:"applied"`
}

// ErrorResponse is the body of non-2xx API responses.
type ErrorResponse struct {
	Error  string `json:"error"`
	Acks   int    `json:"acks,omitempty"`
	Quorum int    `json:"quorum,omitempty"`
}

// DumpResponse is the body of GET /dump.
type DumpResponse struct {
	Role   string               `json:"role"`
	NodeID string               `json:"node_id"`
	Data   map[string]DumpEntry `json:"data"`
}

// DumpEntry is one key's state in a dump.
type DumpEntry struct {
	Value string `json:"value"`
	Seq   uint64 `json:"seq"`
}

// HealthResponse is the body of GET /health. Followers is only set on
// the leader.
type HealthResponse struct {
	OK        bool              `json:"ok"`
	Role      string            `json:"role"`
	NodeID    string            `json:"node_id"`
	Followers map[string]string `json:"followers,omitempty"`
}
