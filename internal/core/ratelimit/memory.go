package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/courierbot/courier/internal/core/bucket"
)

// DefaultShards is the shard count of the process-wide table.
const DefaultShards = 16

var shared = NewMemoryTable(DefaultShards)

// Shared returns the process-wide table.
func Shared() *MemoryTable {
	return shared
}

// MemoryTable is an in-process table split into mutex-guarded shards chosen by
// bucket.Key.Hash.
type MemoryTable struct {
	shards []*shard
}

type shard struct {
	mu      sync.Mutex
	entries map[bucket.Key]int64
}

// NewMemoryTable creates an empty table.
func NewMemoryTable(shards int) *MemoryTable {
	if shards < 1 {
		shards = 1
	}
	t := &MemoryTable{shards: make([]*shard, shards)}
	for i := range t.shards {
		t.shards[i] = &shard{entries: make(map[bucket.Key]int64)}
	}
	return t
}

func (t *MemoryTable) shardFor(key bucket.Key) *shard {
	return t.shards[key.Hash()%uint64(len(t.shards))]
}

// CheckLimit implements Table.
func (t *MemoryTable) CheckLimit(_ context.Context, key bucket.Key, now time.Time) (time.Duration, bool, error) {
	s := t.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	resetAt, ok := s.entries[key]
	if !ok {
		return 0, false, nil
	}
	wait, limited := waitUntil(resetAt, now)
	if !limited {
		delete(s.entries, key)
	}
	return wait, limited, nil
}

// RecordExhausted implements Table.
func (t *MemoryTable) RecordExhausted(_ context.Context, key bucket.Key, resetAt int64) error {
	s := t.shardFor(key)

	s.mu.Lock()
	s.entries[key] = resetAt
	s.mu.Unlock()
	return nil
}

// Snapshot lists entries whose reset is still ahead of now, ordered by bucket.
func (t *MemoryTable) Snapshot(_ context.Context, now time.Time) ([]Entry, error) {
	entries := []Entry{}
	for _, s := range t.shards {
		s.mu.Lock()
		for key, resetAt := range s.entries {
			if _, limited := waitUntil(resetAt, now); limited {
				entries = append(entries, newEntry(key, resetAt, now))
			}
		}
		s.mu.Unlock()
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Bucket < entries[j].Bucket })
	return entries, nil
}

// Reset removes matching entries and returns how many were removed.
func (t *MemoryTable) Reset(_ context.Context, q Query) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}

	var removed int64
	for _, s := range t.shards {
		s.mu.Lock()
		for key := range s.entries {
			if q.matches(key) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (t *MemoryTable) Len() int {
	n := 0
	for _, s := range t.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
