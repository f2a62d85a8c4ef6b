// Package transform reacts to raw-snapshot arrival: it parses the raw
// object, derives the aggregate statistics, commits them to the relational
// store, and then writes the processed snapshot object.
//
// Delivery of the triggering event is at-least-once, so every side effect
// here is idempotent under repetition with identical input: the relational
// writes are natural-key upserts and the processed object's content is a
// deterministic function of the raw object.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lwaltman/spotify-pulse/internal/aggregate"
	"github.com/lwaltman/spotify-pulse/internal/db"
	"github.com/lwaltman/spotify-pulse/internal/objectstore"
	"github.com/lwaltman/spotify-pulse/internal/snapshot"
)

// StatsWriter is the relational sink contract. *db.StatsRepository satisfies
// it; tests substitute fakes.
type StatsWriter interface {
	UpsertSnapshotStats(ctx context.Context, stats *db.SnapshotStats) error
}

// Handler processes raw-object-created events. It is bound to a single
// object store at construction, so ev.Bucket is carried for logs and error
// reports only; resolving objects across buckets would need one handler per
// bucket.
type Handler struct {
	store objectstore.Store
	stats StatsWriter
	log   *log.Logger
	cfg   aggregate.Config
	now   func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithAggregateConfig overrides the aggregation configuration.
func WithAggregateConfig(cfg aggregate.Config) Option {
	return func(h *Handler) {
		h.cfg = cfg
	}
}

// WithClock overrides the processing clock, fixing record dates in tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler creates a transform handler.
func NewHandler(store objectstore.Store, stats StatsWriter, logger *log.Logger, opts ...Option) *Handler {
	h := &Handler{
		store: store,
		stats: stats,
		log:   logger,
		cfg:   aggregate.DefaultConfig(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleRawObjectCreated runs the full transform for one raw object and
// returns the processed object's key.
//
// The relational transaction commits strictly before the processed object is
// written: the relational store is the system of record for trend queries,
// so a crash between the two steps leaves it consistent while the processed
// object lags one retry behind.
func (h *Handler) HandleRawObjectCreated(ctx context.Context, ev Event) (string, error) {
	logger := h.log.With("event", ev.ID, "bucket", ev.Bucket, "key", ev.Key)
	logger.Info("processing raw snapshot")

	data, err := h.store.Get(ctx, ev.Key)
	if err != nil {
		return "", fmt.Errorf("reading raw object %s: %w", ev.Key, err)
	}

	raw, err := snapshot.DecodeRaw(data)
	if err != nil {
		// Malformed input reproduces on every retry; report it with the
		// offending key for manual inspection instead of retrying.
		return "", &MalformedInputError{Bucket: ev.Bucket, Key: ev.Key, Err: err}
	}
	logger.Debug("parsed raw snapshot", "user", raw.UserID)

	processedAt := h.now().UTC()
	processed := aggregate.Build(raw, processedAt, h.cfg)

	stats, err := statsFromProcessed(processed, processedAt)
	if err != nil {
		return "", fmt.Errorf("deriving stats rows for %s: %w", ev.Key, err)
	}
	if err := h.stats.UpsertSnapshotStats(ctx, stats); err != nil {
		return "", fmt.Errorf("writing stats for %s: %w", ev.Key, err)
	}
	logger.Debug("committed relational stats", "user", processed.UserID)

	processedKey := objectstore.ProcessedKeyFor(ev.Key)
	payload, err := json.Marshal(processed)
	if err != nil {
		return "", fmt.Errorf("encoding processed snapshot: %w", err)
	}
	if err := h.store.Put(ctx, processedKey, payload); err != nil {
		return "", fmt.Errorf("storing processed snapshot %s: %w", processedKey, err)
	}

	logger.Info("processed snapshot written", "processed_key", processedKey)
	return processedKey, nil
}

// statsFromProcessed flattens a processed snapshot into the relational
// row-set. recordDate stamps the genre and top-track rows.
func statsFromProcessed(p *snapshot.Processed, recordDate time.Time) (*db.SnapshotStats, error) {
	stats := &db.SnapshotStats{
		User: db.User{
			ID:          p.UserID,
			DisplayName: p.DisplayName,
		},
		RecordDate: recordDate.Truncate(24 * time.Hour),
	}

	labels := p.ListeningTime.DailyListeningLabels
	values := p.ListeningTime.DailyListeningValues
	if len(labels) != len(values) {
		return nil, fmt.Errorf("daily listening labels/values length mismatch: %d vs %d",
			len(labels), len(values))
	}
	for i, label := range labels {
		day, err := time.Parse("2006-01-02", label)
		if err != nil {
			return nil, fmt.Errorf("parsing daily label %q: %w", label, err)
		}
		stats.Daily = append(stats.Daily, db.DailyListening{
			ListenDate:      day,
			MinutesListened: values[i],
		})
	}

	if len(p.Genres.Labels) != len(p.Genres.Sizes) {
		return nil, fmt.Errorf("genre labels/sizes length mismatch: %d vs %d",
			len(p.Genres.Labels), len(p.Genres.Sizes))
	}
	for i, genre := range p.Genres.Labels {
		stats.Genres = append(stats.Genres, db.GenreCount{
			Genre:     genre,
			PlayCount: p.Genres.Sizes[i],
		})
	}

	for _, t := range p.TopTracks {
		stats.TopTracks = append(stats.TopTracks, db.TopTrack{
			TrackID:    t.TrackID,
			TrackName:  t.TrackName,
			ArtistName: t.ArtistName,
			Popularity: t.Popularity,
			Rank:       t.Rank,
		})
	}

	return stats, nil
}
