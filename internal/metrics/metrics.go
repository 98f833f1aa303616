// Package metrics tracks node counters with atomics. Counters are
// owned by the node and injected where needed, never package globals.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds the node's operation counters.
type Metrics struct {
	WritesTotal    atomic.Uint64
	QuorumFailures atomic.Uint64
	ReadsTotal     atomic.Uint64
	ReplicateAcks  atomic.Uint64
	ReplicateFails atomic.Uint64

	writeLatencyTotalNS atomic.Uint64
	lastWriteLatencyNS  atomic.Uint64
}

// New creates a zeroed metrics set.
func New() *Metrics {
	return &Metrics{}
}

// RecordWrite records one resolved write round.
func (m *Metrics) RecordWrite(latency time.Duration, success bool) {
	m.WritesTotal.Add(1)
	if !success {
		m.QuorumFailures.Add(1)
	}
	ns := uint64(latency.Nanoseconds())
	m.writeLatencyTotalNS.Add(ns)
	m.lastWriteLatencyNS.Store(ns)
}

// RecordRead records one read request.
func (m *Metrics) RecordRead() {
	m.ReadsTotal.Add(1)
}

// RecordReplicate records one follower replicate outcome.
func (m *Metrics) RecordReplicate(acked bool) {
	if acked {
		m.ReplicateAcks.Add(1)
	} else {
		m.ReplicateFails.Add(1)
	}
}

// Snapshot is a point-in-time copy of the counters, shaped for JSON.
type Snapshot struct {
	WritesTotal    uint64  `json:"writes_total"`
	QuorumFailures uint64  `json:"quorum_failures"`
	ReadsTotal     uint64  `json:"reads_total"`
	ReplicateAcks  uint64  `json:"replicate_acks"`
	ReplicateFails uint64  `json:"replicate_fails"`
	AvgWriteMS     float64 `json:"avg_write_ms"`
	LastWriteMS    float64 `json:"last_write_ms"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		WritesTotal:    m.WritesTotal.Load(),
		QuorumFailures: m.QuorumFailures.Load(),
		ReadsTotal:     m.ReadsTotal.Load(),
		ReplicateAcks:  m.ReplicateAcks.Load(),
		ReplicateFails: m.ReplicateFails.Load(),
	}
	s.LastWriteMS = float64(m.lastWriteLatencyNS.Load()) / 1e6
	if s.WritesTotal > 0 {
		s.AvgWriteMS = float64(m.writeLatencyTotalNS.Load()) / float64(s.WritesTotal) / 1e6
	}
	return s
}
