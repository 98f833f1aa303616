// Package storage provides the local key-value storage interface and
// in-memory implementation. Values carry the sequence number assigned
// by the leader so that followers can skip stale replicate calls that
// arrive out of order.
package storage
