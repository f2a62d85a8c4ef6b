// Package capture pulls a user's listening data from the upstream API and
// writes one immutable raw snapshot to durable object storage.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lwaltman/spotify-pulse/internal/objectstore"
	"github.com/lwaltman/spotify-pulse/internal/snapshot"
	"github.com/lwaltman/spotify-pulse/internal/spotify"
)

// recentPlaysWindow is how far back the recently-played fetch reaches.
const recentPlaysWindow = 7 * 24 * time.Hour

// Source is the authenticated upstream capability capture reads from.
// *spotify.Client satisfies it; tests substitute fakes.
type Source interface {
	Identity(ctx context.Context) (userID, displayName string, err error)
	TopArtists(ctx context.Context, limit int) ([]snapshot.Artist, error)
	TopTracks(ctx context.Context, limit int) ([]snapshot.Track, error)
	RecentlyPlayed(ctx context.Context, after time.Time, limit int) ([]snapshot.PlayEvent, error)
}

// Service captures raw snapshots into an object store.
type Service struct {
	store objectstore.Store
	log   *log.Logger
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the capture clock, fixing snapshot keys in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a capture service writing to store.
func New(store objectstore.Store, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   logger,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture fetches identity, top artists, top tracks, and the trailing week
// of play events, then writes the combined snapshot under a timestamped raw
// key and returns it alongside the key.
//
// The three fetches are independent, but a failure in any of them fails the
// whole capture before anything is written: a partial raw snapshot would
// silently skew every aggregate derived from it later.
func (s *Service) Capture(ctx context.Context, src Source) (*snapshot.Raw, string, error) {
	capturedAt := s.now()

	userID, displayName, err := src.Identity(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fetching identity: %w", err)
	}

	artists, err := src.TopArtists(ctx, spotify.FetchLimit)
	if err != nil {
		return nil, "", fmt.Errorf("fetching top artists: %w", err)
	}

	tracks, err := src.TopTracks(ctx, spotify.FetchLimit)
	if err != nil {
		return nil, "", fmt.Errorf("fetching top tracks: %w", err)
	}

	plays, err := src.RecentlyPlayed(ctx, capturedAt.Add(-recentPlaysWindow), spotify.FetchLimit)
	if err != nil {
		return nil, "", fmt.Errorf("fetching recent plays: %w", err)
	}

	raw := &snapshot.Raw{
		UserID:      userID,
		DisplayName: displayName,
		TopArtists:  artists,
		TopTracks:   tracks,
		RecentPlays: plays,
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encoding raw snapshot: %w", err)
	}

	key := objectstore.RawKey(capturedAt)
	if err := s.store.Put(ctx, key, data); err != nil {
		return nil, "", fmt.Errorf("storing raw snapshot: %w", err)
	}

	s.log.Info("captured raw snapshot",
		"key", key,
		"user", userID,
		"artists", len(artists),
		"tracks", len(tracks),
		"plays", len(plays),
	)
	return raw, key, nil
}
