package node

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"

	"semikv/internal/config"
	"semikv/internal/wire"
)

func followerNode(t *testing.T) *Node {
	t.Helper()
	s := config.Default()
	s.Role = config.RoleFollower
	s.NodeID = "f1"
	n, err := New(s, hclog.NewNullLogger())
	if err != nil {
		t.Fatalf("Failed to build follower: %v", err)
	}
	return n
}

// leaderNode points at an unreachable follower so write rounds fail
// fast; handler tests that need successful quorum live in internal/it.
func leaderNode(t *testing.T) *Node {
	t.Helper()
	s := config.Default()
	s.Role = config.RoleLeader
	s.NodeID = "leader"
	s.FollowerURLs = []string{"http://127.0.0.1:1"}
	s.WriteQuorum = 1
	s.ReplicateTimeoutMS = 300
	n, err := New(s, hclog.NewNullLogger())
	if err != nil {
		t.Fatalf("Failed to build leader: %v", err)
	}
	return n
}

func doRequest(t *testing.T, n *Node, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	n.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFollower_RejectsClientWrites(t *testing.T) {
	n := followerNode(t)
	rec := doRequest(t, n, http.MethodPut, "/kv/a", `{"value":"1"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
}

func TestLeader_RejectsReplicateCalls(t *testing.T) {
	n := leaderNode(t)
	rec := doRequest(t, n, http.MethodPost, "/internal/replicate", `{"key":"a","value":"1","seq":1}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
}

func TestFollower_ReplicateApplies(t *testing.T) {
	n := followerNode(t)

	rec := doRequest(t, n, http.MethodPost, "/internal/replicate", `{"key":"a","value":"1","seq":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp wire.ReplicateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Applied {
		t.Error("Expected applied=true")
	}

	item, ok := n.Store().Get("a")
	if !ok || item.Value != "1" || item.Seq != 5 {
		t.Errorf("Store not updated: %+v ok=%v", item, ok)
	}
}

func TestFollower_ReplicateSkipsStaleSeq(t *testing.T) {
	n := followerNode(t)

	doRequest(t, n, http.MethodPost, "/internal/replicate", `{"key":"a","value":"new","seq":9}`)
	rec := doRequest(t, n, http.MethodPost, "/internal/replicate", `{"key":"a","value":"old","seq":4}`)

	var resp wire.ReplicateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Applied {
		t.Error("Expected stale replicate to report applied=false")
	}
	if item, _ := n.Store().Get("a"); item.Value != "new" {
		t.Errorf("Stale replicate overwrote newer value: %s", item.Value)
	}
}

func TestGet_NotFound(t *testing.T) {
	n := followerNode(t)
	rec := doRequest(t, n, http.MethodGet, "/kv/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestGet_ReturnsValueAndSeq(t *testing.T) {
	n := followerNode(t)
	n.Store().Apply("a", "1", 3)

	rec := doRequest(t, n, http.MethodGet, "/kv/a", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp wire.GetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Value == nil || *resp.Value != "1" || resp.Seq == nil || *resp.Seq != 3 {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestPut_QuorumTimeoutIs503AndLeaderKeepsValue(t *testing.T) {
	n := leaderNode(t)

	rec := doRequest(t, n, http.MethodPut, "/kv/a", `{"value":"1"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	var resp wire.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Quorum != 1 {
		t.Errorf("Expected quorum 1 in error body, got %d", resp.Quorum)
	}

	// Failed writes are not rolled back on the leader.
	getRec := doRequest(t, n, http.MethodGet, "/kv/a", "")
	if getRec.Code != http.StatusOK {
		t.Errorf("Expected local read-your-write after failed quorum, got %d", getRec.Code)
	}
}

func TestPut_BadBody(t *testing.T) {
	n := leaderNode(t)
	rec := doRequest(t, n, http.MethodPut, "/kv/a", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestDump(t *testing.T) {
	n := followerNode(t)
	n.Store().Apply("a", "1", 1)
	n.Store().Apply("b", "2", 2)

	rec := doRequest(t, n, http.MethodGet, "/dump", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp wire.DumpResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Role != "follower" || resp.NodeID != "f1" {
		t.Errorf("Unexpected identity: %+v", resp)
	}
	if len(resp.Data) != 2 || resp.Data["a"].Value != "1" || resp.Data["b"].Seq != 2 {
		t.Errorf("Unexpected data: %+v", resp.Data)
	}
}

func TestHealth(t *testing.T) {
	follower := followerNode(t)
	rec := doRequest(t, follower, http.MethodGet, "/health", "")
	var resp wire.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Role != "follower" {
		t.Errorf("Unexpected health: %+v", resp)
	}
	if resp.Followers != nil {
		t.Error("Follower health should not report follower statuses")
	}

	leader := leaderNode(t)
	rec = doRequest(t, leader, http.MethodGet, "/health", "")
	resp = wire.HealthResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Followers) != 1 {
		t.Errorf("Leader health should report follower statuses: %+v", resp)
	}
}

func TestNew_RejectsInvalidConfiguration(t *testing.T) {
	s := config.Default()
	s.Role = config.RoleLeader
	s.NodeID = "leader"
	s.FollowerURLs = []string{"http://f1:8000"}
	s.WriteQuorum = 2 // above follower count

	if _, err := New(s, hclog.NewNullLogger()); err == nil {
		t.Error("Expected configuration error")
	}
}
