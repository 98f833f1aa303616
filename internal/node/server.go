package node

import (
	"encoding/json"
	"net/http"

	"semikv/internal/config"
	"semikv/internal/wire"
)

// Handler returns the node's HTTP routes. Role gating lives here:
// followers reject client writes, the leader rejects replicate calls.
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", n.handleHealth)
	mux.HandleFunc("GET /stats", n.handleStats)
	mux.HandleFunc("GET /dump", n.handleDump)
	mux.HandleFunc("GET /kv/{key}", n.handleGet)
	mux.HandleFunc("PUT /kv/{key}", n.handlePut)
	mux.HandleFunc("POST /internal/replicate", n.handleReplicate)
	return mux
}

func (n *Node) handlePut(w http.ResponseWriter, r *http.Request) {
	if n.settings.Role != config.RoleLeader {
		writeJSON(w, http.StatusForbidden, wire.ErrorResponse{Error: "writes must go to the leader"})
		return
	}

	key := r.PathValue("key")

	var req wire.PutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "invalid request body"})
		return
	}

	res := n.coordinator.Write(r.Context(), key, req.Value)
	if !res.Success {
		writeJSON(w, http.StatusServiceUnavailable, wire.ErrorResponse{
			Error:  "write failed to reach quorum",
			Acks:   res.Acks,
			Quorum: res.Quorum,
		})
		return
	}

	writeJSON(w, http.StatusOK, wire.PutResponse{
		Key:          key,
		Value:        req.Value,
		Seq:          res.Seq,
		Acks:         res.Acks,
		Quorum:       res.Quorum,
		ReplicatedTo: res.Attempted,
	})
}

func (n *Node) handleGet(w http.ResponseWriter, r *http.Request) {
	n.metrics.RecordRead()

	key := r.PathValue("key")
	item, ok := n.store.Get(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, wire.ErrorResponse{Error: "key not found"})
		return
	}

	writeJSON(w, http.StatusOK, wire.GetResponse{
		Key:   key,
		Value: &item.Value,
		Seq:   &item.Seq,
	})
}

func (n *Node) handleReplicate(w http.ResponseWriter, r *http.Request) {
	if n.settings.Role != config.RoleFollower {
		writeJSON(w, http.StatusForbidden, wire.ErrorResponse{Error: "leader does not accept replicate calls"})
		return
	}

	var req wire.ReplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "invalid request body"})
		return
	}

	applied := n.store.Apply(req.Key, req.Value, req.Seq)
	n.logger.Debug("applied replicate", "key", req.Key, "seq", req.Seq, "applied", applied)
	writeJSON(w, http.StatusOK, wire.ReplicateResponse{Applied: applied})
}

func (n *Node) handleDump(w http.ResponseWriter, r *http.Request) {
	snapshot := n.store.Dump()
	data := make(map[string]wire.DumpEntry, len(snapshot))
	for k, item := range snapshot {
		data[k] = wire.DumpEntry{Value: item.Value, Seq: item.Seq}
	}

	writeJSON(w, http.StatusOK, wire.DumpResponse{
		Role:   string(n.settings.Role),
		NodeID: n.settings.NodeID,
		Data:   data,
	})
}

func (n *Node) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := wire.HealthResponse{
		OK:     true,
		Role:   string(n.settings.Role),
		NodeID: n.settings.NodeID,
	}
	if n.prober != nil {
		resp.Followers = n.prober.Statuses()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (n *Node) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, n.metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
