package storage

import "sync"

// Item is one stored value together with the sequence number the leader
// assigned to the write that produced it.
type Item struct {
	Value string
	Seq   uint64
}

// Store defines the interface for local key-value storage.
type Store interface {
	// Get retrieves the item for a key. The second return is false if
	// the key is absent.
	Get(key string) (Item, bool)
	// Apply upserts a key with the given sequence number. Returns false
	// if the entry was skipped because the stored sequence for that key
	// is newer. There is no delete.
	Apply(key, value string, seq uint64) bool
	// NextSeq returns the next write sequence number. Only the leader
	// calls this; followers take sequences from replicate requests.
	NextSeq() uint64
	// Dump returns a point-in-time snapshot of the whole mapping.
	Dump() map[string]Item
	// Len returns the number of keys currently stored.
	Len() int
}

// InMemoryStore is an in-memory implementation of Store. It is safe for
// concurrent use by the request handlers and any number of in-flight
// replication fan-outs.
type InMemoryStore struct {
	mu      sync.RWMutex
	data    map[string]Item
	lastSeq uint64
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]Item),
	}
}

// Get retrieves the item for a key.
func (s *InMemoryStore) Get(key string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.data[key]
	return item, ok
}

// Apply upserts a key. An entry older than the one already held for the
// key is skipped, so a replicate call that lands late (after a newer
// write already arrived) cannot roll the key backwards.
func (s *InMemoryStore) Apply(key, value string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.data[key]; ok && seq < current.Seq {
		return false
	}
	s.data[key] = Item{Value: value, Seq: seq}
	if seq > s.lastSeq {
		s.lastSeq = seq
	}
	return true
}

// NextSeq increments and returns the store's sequence counter.
func (s *InMemoryStore) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeq++
	return s.lastSeq
}

// Dump copies the whole mapping under a single read lock so the
// snapshot is consistent even while concurrent Applies are in flight.
func (s *InMemoryStore) Dump() map[string]Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Item, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Len returns the number of keys currently stored.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}
