package transform

import (
	"fmt"

	"github.com/google/uuid"
)

// Event identifies exactly one created raw object. The ID tags log lines per
// delivery; redeliveries of the same object carry fresh IDs but identical
// bucket/key and therefore identical effects.
type Event struct {
	ID     string
	Bucket string
	Key    string
}

// NewEvent builds an event for a created object.
func NewEvent(bucket, key string) Event {
	return Event{
		ID:     uuid.NewString(),
		Bucket: bucket,
		Key:    key,
	}
}

// MalformedInputError reports a raw object that does not parse. Retrying
// reproduces the failure, so callers must not redeliver events that fail
// with it.
type MalformedInputError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed raw object %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}
