// Package objectstore provides the durable put/get contract between the
// pipeline stages, with S3, filesystem, and in-memory implementations.
package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under the key. It is
// distinct from read/decode failures: the dashboard treats it as "still
// processing" while real errors propagate.
var ErrNotFound = errors.New("object not found")

// Store is the narrow object-storage contract used by the pipeline. Raw
// snapshots are written by capture and read by the transform stage;
// processed snapshots are written by the transform stage and read by the
// dashboard. Objects are never overwritten or deleted by this system.
type Store interface {
	// Put writes data under key, creating or replacing the object.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads the object under key. Returns ErrNotFound if it does not
	// exist.
	Get(ctx context.Context, key string) ([]byte, error)
}
