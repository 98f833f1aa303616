// Package delay provides injectable sources of simulated replication
// lag. The leader sleeps for one sample before each outbound replicate
// call; tests swap in deterministic sources.
package delay
