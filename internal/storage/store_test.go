package storage

import (
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryStore_GetApply(t *testing.T) {
	store := NewInMemoryStore()

	seq := store.NextSeq()
	if seq != 1 {
		t.Fatalf("Expected first seq 1, got %d", seq)
	}
	if !store.Apply("key1", "value1", seq) {
		t.Fatal("Expected apply to succeed")
	}

	item, ok := store.Get("key1")
	if !ok {
		t.Fatal("Expected key1 to be present")
	}
	if item.Value != "value1" {
		t.Errorf("Expected 'value1', got '%s'", item.Value)
	}
	if item.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", item.Seq)
	}
}

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := NewInMemoryStore()
	if _, ok := store.Get("nonexistent"); ok {
		t.Error("Expected not-found for non-existent key")
	}
}

func TestInMemoryStore_LastWriteWins(t *testing.T) {
	store := NewInMemoryStore()

	store.Apply("key1", "old", store.NextSeq())
	store.Apply("key1", "new", store.NextSeq())

	item, _ := store.Get("key1")
	if item.Value != "new" {
		t.Errorf("Expected 'new', got '%s'", item.Value)
	}
	if item.Seq != 2 {
		t.Errorf("Expected seq 2, got %d", item.Seq)
	}
}

func TestInMemoryStore_StaleApplySkipped(t *testing.T) {
	store := NewInMemoryStore()

	// A replicate call that arrives after a newer one must not roll
	// the key backwards.
	if !store.Apply("key1", "newer", 5) {
		t.Fatal("Expected apply of seq 5 to succeed")
	}
	if store.Apply("key1", "older", 3) {
		t.Error("Expected stale apply of seq 3 to be skipped")
	}

	item, _ := store.Get("key1")
	if item.Value != "newer" || item.Seq != 5 {
		t.Errorf("Expected (newer, 5), got (%s, %d)", item.Value, item.Seq)
	}
}

func TestInMemoryStore_NextSeqAfterReplicatedApply(t *testing.T) {
	store := NewInMemoryStore()

	// A follower that saw seq 7 from the leader must not hand out
	// sequences below it.
	store.Apply("key1", "v", 7)
	if seq := store.NextSeq(); seq != 8 {
		t.Errorf("Expected next seq 8, got %d", seq)
	}
}

func TestInMemoryStore_ConcurrentDistinctKeys(t *testing.T) {
	store := NewInMemoryStore()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", i)
			store.Apply(key, fmt.Sprintf("value%d", i), store.NextSeq())
		}(i)
	}
	wg.Wait()

	dump := store.Dump()
	if len(dump) != n {
		t.Fatalf("Expected %d keys, got %d", n, len(dump))
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key%d", i)
		item, ok := dump[key]
		if !ok {
			t.Fatalf("Lost update for %s", key)
		}
		if item.Value != fmt.Sprintf("value%d", i) {
			t.Errorf("Expected value%d for %s, got %s", i, key, item.Value)
		}
	}
}

func TestInMemoryStore_DumpIsSnapshot(t *testing.T) {
	store := NewInMemoryStore()
	store.Apply("key1", "value1", store.NextSeq())

	dump := store.Dump()

	// Mutating the store after Dump must not change the snapshot.
	store.Apply("key1", "value2", store.NextSeq())
	store.Apply("key2", "value2", store.NextSeq())

	if len(dump) != 1 {
		t.Fatalf("Expected snapshot with 1 key, got %d", len(dump))
	}
	if dump["key1"].Value != "value1" {
		t.Errorf("Snapshot mutated: got %s", dump["key1"].Value)
	}
}

func TestInMemoryStore_ConcurrentDumpAndApply(t *testing.T) {
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-stop:
				return
			default:
			}
			store.Apply(fmt.Sprintf("key%d", i%10), "value", store.NextSeq())
			i++
		}
	}()

	for i := 0; i < 100; i++ {
		_ = store.Dump()
	}
	close(stop)
	wg.Wait()
}
