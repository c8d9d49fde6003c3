package models

import (
	"fmt"
	"time"
)

// CacheLevel represents the cache level where data was found
type CacheLevel string

const (
	CacheLevelL1   CacheLevel = "L1"
	CacheLevelL2   CacheLevel = "L2"
	CacheLevelMiss CacheLevel = "MISS"
)

func (cl CacheLevel) String() string {
	return string(cl)
}

// CacheLevelFromIndex creates a CacheLevel from a cache index.
// Index 0 returns L1, index 1 returns L2, higher indices return L3, L4, etc.
// Negative indices are treated as L1 (fallback to first level)
func CacheLevelFromIndex(index int) CacheLevel {
	if index < 0 {
		return CacheLevelL1
	}

	switch index {
	case 0:
		return CacheLevelL1
	case 1:
		return CacheLevelL2
	default:
		return CacheLevel(fmt.Sprintf("L%d", index+1))
	}
}

// CacheResult represents the result of a cache lookup with level information
type CacheResult struct {
	Entry *CacheEntry `json:"entry,omitempty"`
	Found bool        `json:"found"`
	Level CacheLevel  `json:"level"`
}

// CacheEntry is a stored value together with the moment it was stored and its time-to-live.
// Timestamps are unix milliseconds.
type CacheEntry struct {
	Data     []byte `json:"data"`
	StoredAt int64  `json:"stored_at"`
	TTL      int64  `json:"ttl_ms"`
}

// NewCacheEntry builds an entry stored at now that lives for ttl.
// A positive ttl is rounded up to whole milliseconds.
func NewCacheEntry(data []byte, now time.Time, ttl time.Duration) CacheEntry {
	ms := ttl.Milliseconds()
	if ttl > 0 && ttl%time.Millisecond != 0 {
		ms++
	}
	return CacheEntry{
		Data:     data,
		StoredAt: now.UnixMilli(),
		TTL:      ms,
	}
}

// IsExpiredAt reports whether the entry is no longer visible at now.
// An entry is visible while now - StoredAt <= TTL.
func (ce *CacheEntry) IsExpiredAt(now time.Time) bool {
	return now.UnixMilli()-ce.StoredAt > ce.TTL
}

// IsExpired checks the entry against the wall clock
func (ce *CacheEntry) IsExpired() bool {
	return ce.IsExpiredAt(time.Now())
}

// ExpiresAt returns the last instant at which the entry is still visible
func (ce *CacheEntry) ExpiresAt() time.Time {
	return time.UnixMilli(ce.StoredAt + ce.TTL)
}

// Age returns how long ago the entry was stored
func (ce *CacheEntry) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-ce.StoredAt) * time.Millisecond
}

// RemainingTTL calculates the time left before the entry expires, never negative
func (ce *CacheEntry) RemainingTTL(now time.Time) time.Duration {
	remaining := ce.StoredAt + ce.TTL - now.UnixMilli()
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(remaining) * time.Millisecond
}
