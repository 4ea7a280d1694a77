// Package ratelimit holds the shared bucket reset table consulted before every
// REST call.
//
// The table maps a bucket key to the epoch second at which the bucket becomes
// available again. Entries exist only for buckets the platform reported as
// exhausted. Each operation is a single atomic step; nothing spans the check
// and the wait that follows it, so two callers racing on one bucket may both
// proceed.
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/courierbot/courier/internal/core/bucket"
)

// Table is the contract the dispatcher uses.
type Table interface {
	// CheckLimit reports how long to wait before calling into key's bucket.
	// Expired entries are evicted and reported as not limited.
	CheckLimit(ctx context.Context, key bucket.Key, now time.Time) (time.Duration, bool, error)

	// RecordExhausted stores resetAt (epoch seconds) for key, replacing any entry.
	RecordExhausted(ctx context.Context, key bucket.Key, resetAt int64) error
}

// Admin exposes inspection and manual reset of a table.
type Admin interface {
	Snapshot(ctx context.Context, now time.Time) ([]Entry, error)
	Reset(ctx context.Context, q Query) (int64, error)
}

// Entry is a live table row.
type Entry struct {
	Key     bucket.Key    `json:"-" yaml:"-"`
	Bucket  string        `json:"bucket" yaml:"bucket"`
	ResetAt time.Time     `json:"reset_at" yaml:"reset_at"`
	Wait    time.Duration `json:"wait_ns" yaml:"wait"`
}

func newEntry(key bucket.Key, resetAt int64, now time.Time) Entry {
	reset := time.Unix(resetAt, 0).UTC()
	return Entry{
		Key:     key,
		Bucket:  key.String(),
		ResetAt: reset,
		Wait:    reset.Sub(now),
	}
}

// Query selects entries for Reset.
type Query struct {
	All    bool
	Key    string
	Prefix string
}

// Validate requires exactly one selector to be meaningful.
func (q Query) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.Key) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --key, or --prefix")
}

func (q Query) matches(key bucket.Key) bool {
	return q.Matches(key.String())
}

// Matches reports whether the rendered bucket name is selected by q.
func (q Query) Matches(rendered string) bool {
	if q.All {
		return true
	}
	if k := strings.TrimSpace(q.Key); k != "" {
		return rendered == k
	}
	return strings.HasPrefix(rendered, strings.TrimSpace(q.Prefix))
}

// waitUntil converts a stored reset second into the remaining wait at now.
func waitUntil(resetAt int64, now time.Time) (time.Duration, bool) {
	wait := time.Unix(resetAt, 0).Sub(now)
	if wait <= 0 {
		return 0, false
	}
	return wait, true
}
