// Package cache provides expiring key/value stores that can remember both a
// value and the fact that a key has no value.
package cache

import (
	"context"
	"time"
)

// Options controls how long an entry lives. A zero duration disables that
// kind of expiry. When both are set the entry expires at whichever comes first.
type Options struct {
	// AbsoluteTTL is measured from the moment the entry is written.
	AbsoluteTTL time.Duration
	// SlidingTTL is measured from the last successful read (or the write).
	SlidingTTL time.Duration
}

// Entry is what a lookup finds. Negative entries record a known-absent key
// and carry no value.
type Entry[V any] struct {
	Value    V
	Negative bool
}

// Cache is a concurrency-safe expiring store. TryGet reports ok=false only
// when there is no live entry for the key; a negative entry is a hit.
type Cache[V any] interface {
	Set(ctx context.Context, key string, value V, opts Options) error
	SetNegative(ctx context.Context, key string, ttl time.Duration) error
	TryGet(ctx context.Context, key string) (entry Entry[V], ok bool, err error)
	Remove(ctx context.Context, key string) error
}

// deadline returns when an entry written or touched at now stops being valid.
// A zero time means no expiry.
func deadline(now, absolute time.Time, sliding time.Duration) time.Time {
	if sliding <= 0 {
		return absolute
	}
	slide := now.Add(sliding)
	if absolute.IsZero() || slide.Before(absolute) {
		return slide
	}
	return absolute
}

func absoluteDeadline(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
