// Package replication implements the leader's write path: the local
// apply, the concurrent fan-out to the fixed follower set with
// simulated network lag, and quorum-or-timeout resolution. Followers
// that have not replied when the round resolves keep replicating in
// the background; their late applies converge follower state but are
// never reported to the client.
package replication
