package objectstore

import (
	"strings"
	"time"
)

const (
	rawPrefix       = "raw/"
	processedPrefix = "processed/"
	rawSuffix       = ".json"
	processedSuffix = ".processed.json"
)

// RawKey builds the key for a raw snapshot captured at t. Second-level
// timestamps keep keys unique per capture; snapshots are never overwritten.
func RawKey(t time.Time) string {
	return rawPrefix + "user_spotify_data_" + t.UTC().Format("20060102_150405") + rawSuffix
}

// ProcessedKeyFor maps a raw key to its processed counterpart by swapping
// the namespace prefix and the suffix. The mapping is deterministic so any
// caller can compute it without a lookup table.
func ProcessedKeyFor(rawKey string) string {
	key := rawKey
	if strings.HasPrefix(key, rawPrefix) {
		key = processedPrefix + strings.TrimPrefix(key, rawPrefix)
	}
	if strings.HasSuffix(key, rawSuffix) && !strings.HasSuffix(key, processedSuffix) {
		key = strings.TrimSuffix(key, rawSuffix) + processedSuffix
	}
	return key
}

// IsRawKey reports whether key lives in the raw namespace.
func IsRawKey(key string) bool {
	return strings.HasPrefix(key, rawPrefix)
}
