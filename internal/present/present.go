// Package present exposes processed snapshots to the dashboard: a read
// contract that distinguishes "not yet processed" from real failures, a
// bounded poll replacing the original fixed wait, and the narrative helpers
// the dashboard renders.
package present

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"

	"github.com/lwaltman/spotify-pulse/internal/objectstore"
	"github.com/lwaltman/spotify-pulse/internal/snapshot"
)

// ErrStillProcessing means the processed object does not exist yet. Distinct
// from malformed-data errors: callers poll on it instead of failing hard.
var ErrStillProcessing = errors.New("snapshot still processing")

const (
	defaultPollAttempts = 8
	defaultPollDelay    = 500 * time.Millisecond
	defaultPollMaxDelay = 8 * time.Second
)

// Adapter reads processed snapshots from the object store.
type Adapter struct {
	store        objectstore.Store
	pollAttempts uint
	pollDelay    time.Duration
	pollMaxDelay time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPoll overrides the backoff schedule used by WaitForProcessed.
func WithPoll(attempts uint, delay, maxDelay time.Duration) Option {
	return func(a *Adapter) {
		a.pollAttempts = attempts
		a.pollDelay = delay
		a.pollMaxDelay = maxDelay
	}
}

// NewAdapter creates a presentation adapter.
func NewAdapter(store objectstore.Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:        store,
		pollAttempts: defaultPollAttempts,
		pollDelay:    defaultPollDelay,
		pollMaxDelay: defaultPollMaxDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fetch returns the processed snapshot under key. A missing object maps to
// ErrStillProcessing; an object that exists but does not decode is a real
// error.
func (a *Adapter) Fetch(ctx context.Context, key string) (*snapshot.Processed, error) {
	data, err := a.store.Get(ctx, key)
	if errors.Is(err, objectstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrStillProcessing, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading processed object %s: %w", key, err)
	}

	p, err := snapshot.DecodeProcessed(data)
	if err != nil {
		return nil, fmt.Errorf("decoding processed object %s: %w", key, err)
	}
	return p, nil
}

// WaitForProcessed polls Fetch with exponential backoff until the processed
// object appears, the attempts run out, or ctx is done. When the attempts
// run out the returned error still matches ErrStillProcessing so the caller
// can show a "still processing" state rather than a failure.
func (a *Adapter) WaitForProcessed(ctx context.Context, key string) (*snapshot.Processed, error) {
	var p *snapshot.Processed
	err := retry.Do(
		func() error {
			var err error
			p, err = a.Fetch(ctx, key)
			return err
		},
		retry.Attempts(a.pollAttempts),
		retry.Delay(a.pollDelay),
		retry.MaxDelay(a.pollMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrStillProcessing)
		}),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
