// Package health implements the leader-side follower liveness prober.
// Probe results are exposed on the leader's health endpoint only; they
// never gate replication, which always fans out to the full fixed
// follower set.
package health
