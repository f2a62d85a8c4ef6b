package transform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lwaltman/spotify-pulse/internal/db"
	"github.com/lwaltman/spotify-pulse/internal/objectstore"
	"github.com/lwaltman/spotify-pulse/internal/snapshot"
)

// fakeStatsWriter records upserted row-sets, emulating natural-key upserts:
// a second write for the same user replaces the first instead of adding rows.
type fakeStatsWriter struct {
	byUser map[string]*db.SnapshotStats
	writes int
	err    error
}

func newFakeStatsWriter() *fakeStatsWriter {
	return &fakeStatsWriter{byUser: make(map[string]*db.SnapshotStats)}
}

func (f *fakeStatsWriter) UpsertSnapshotStats(_ context.Context, stats *db.SnapshotStats) error {
	if f.err != nil {
		return f.err
	}
	f.writes++
	f.byUser[stats.User.ID] = stats
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func putRaw(t *testing.T, store *objectstore.Memory, key string, raw *snapshot.Raw) {
	t.Helper()
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshaling raw: %v", err)
	}
	if err := store.Put(context.Background(), key, data); err != nil {
		t.Fatalf("putting raw: %v", err)
	}
}

func sampleRaw() *snapshot.Raw {
	return &snapshot.Raw{
		UserID:      "user-1",
		DisplayName: "User One",
		TopArtists: []snapshot.Artist{
			{Name: "A", Genres: []string{"pop"}},
			{Name: "B", Genres: []string{"pop", "rock"}},
		},
		TopTracks: []snapshot.Track{
			{ID: "t1", Name: "One", ArtistName: "A", Popularity: 80},
			{ID: "t2", Name: "Two", ArtistName: "B", Popularity: 60},
			{ID: "t3", Name: "Three", ArtistName: "A", Popularity: 40},
		},
	}
}

func TestHandleRawObjectCreated(t *testing.T) {
	store := objectstore.NewMemory()
	stats := newFakeStatsWriter()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	h := NewHandler(store, stats, testLogger(), WithClock(func() time.Time { return now }))

	rawKey := "raw/user_spotify_data_20250310_090405.json"
	putRaw(t, store, rawKey, sampleRaw())

	processedKey, err := h.HandleRawObjectCreated(context.Background(), NewEvent("bucket", rawKey))
	if err != nil {
		t.Fatalf("HandleRawObjectCreated: %v", err)
	}

	wantKey := "processed/user_spotify_data_20250310_090405.processed.json"
	if processedKey != wantKey {
		t.Errorf("processed key = %q, want %q", processedKey, wantKey)
	}

	// Processed object must exist and decode.
	data, err := store.Get(context.Background(), processedKey)
	if err != nil {
		t.Fatalf("getting processed object: %v", err)
	}
	processed, err := snapshot.DecodeProcessed(data)
	if err != nil {
		t.Fatalf("decoding processed object: %v", err)
	}
	if processed.MainstreamScore != 60.0 {
		t.Errorf("mainstream score = %v, want 60.0", processed.MainstreamScore)
	}

	// Relational rows must match the aggregates.
	got := stats.byUser["user-1"]
	if got == nil {
		t.Fatal("no stats upserted for user-1")
	}
	if got.User.DisplayName != "User One" {
		t.Errorf("display name = %q", got.User.DisplayName)
	}
	if len(got.Genres) != 2 || got.Genres[0].Genre != "pop" || got.Genres[0].PlayCount != 2 {
		t.Errorf("genre rows = %+v", got.Genres)
	}
	if len(got.Daily) != 7 {
		t.Errorf("daily rows = %d, want 7", len(got.Daily))
	}
	if len(got.TopTracks) != 3 || got.TopTracks[2].Rank != 3 {
		t.Errorf("top track rows = %+v", got.TopTracks)
	}
	if !got.RecordDate.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("record date = %v", got.RecordDate)
	}
}

// Reprocessing the same raw object must yield identical rows and an
// identical processed object, never duplicates.
func TestHandleIdempotent(t *testing.T) {
	store := objectstore.NewMemory()
	stats := newFakeStatsWriter()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	h := NewHandler(store, stats, testLogger(), WithClock(func() time.Time { return now }))

	rawKey := "raw/user_spotify_data_20250310_090405.json"
	putRaw(t, store, rawKey, sampleRaw())

	key1, err := h.HandleRawObjectCreated(context.Background(), NewEvent("bucket", rawKey))
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	first := *stats.byUser["user-1"]
	obj1, _ := store.Get(context.Background(), key1)

	key2, err := h.HandleRawObjectCreated(context.Background(), NewEvent("bucket", rawKey))
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	second := *stats.byUser["user-1"]
	obj2, _ := store.Get(context.Background(), key2)

	if key1 != key2 {
		t.Errorf("processed keys differ: %q vs %q", key1, key2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("row contents drifted between deliveries")
	}
	if string(obj1) != string(obj2) {
		t.Error("processed object content drifted between deliveries")
	}
	if len(second.Genres) != 2 {
		t.Errorf("genre row count = %d after redelivery, want 2", len(second.Genres))
	}
}

func TestHandleMalformedInput(t *testing.T) {
	store := objectstore.NewMemory()
	stats := newFakeStatsWriter()
	h := NewHandler(store, stats, testLogger())

	rawKey := "raw/user_spotify_data_20250310_090405.json"
	if err := store.Put(context.Background(), rawKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	_, err := h.HandleRawObjectCreated(context.Background(), NewEvent("bucket", rawKey))

	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedInputError", err)
	}
	if malformed.Key != rawKey {
		t.Errorf("error key = %q, want %q", malformed.Key, rawKey)
	}
	if stats.writes != 0 {
		t.Error("stats were written for malformed input")
	}
	if store.Len() != 1 {
		t.Error("a processed object was written for malformed input")
	}
}

func TestHandleMissingRawObject(t *testing.T) {
	h := NewHandler(objectstore.NewMemory(), newFakeStatsWriter(), testLogger())

	_, err := h.HandleRawObjectCreated(context.Background(),
		NewEvent("bucket", "raw/missing.json"))
	if !errors.Is(err, objectstore.ErrNotFound) {
		t.Errorf("err = %v, want wrapped ErrNotFound", err)
	}
}

// A relational failure must abort before the processed object is written, so
// the object store never gets ahead of the system of record.
func TestHandleDBFailureBlocksObjectWrite(t *testing.T) {
	store := objectstore.NewMemory()
	stats := newFakeStatsWriter()
	stats.err = errors.New("connection reset")
	h := NewHandler(store, stats, testLogger())

	rawKey := "raw/user_spotify_data_20250310_090405.json"
	putRaw(t, store, rawKey, sampleRaw())

	_, err := h.HandleRawObjectCreated(context.Background(), NewEvent("bucket", rawKey))
	if !errors.Is(err, stats.err) {
		t.Fatalf("err = %v, want wrapped db error", err)
	}
	if store.Len() != 1 {
		t.Error("processed object written despite relational failure")
	}
}

// Raw payloads without identity still process, with sentinel values keying
// the relational rows.
func TestHandleMissingIdentity(t *testing.T) {
	store := objectstore.NewMemory()
	stats := newFakeStatsWriter()
	h := NewHandler(store, stats, testLogger())

	rawKey := "raw/user_spotify_data_20250310_090405.json"
	if err := store.Put(context.Background(), rawKey, []byte(`{"top_artists":[]}`)); err != nil {
		t.Fatal(err)
	}

	if _, err := h.HandleRawObjectCreated(context.Background(), NewEvent("bucket", rawKey)); err != nil {
		t.Fatalf("HandleRawObjectCreated: %v", err)
	}

	got := stats.byUser[snapshot.UnknownUserID]
	if got == nil {
		t.Fatalf("stats keyed by %v, want sentinel %q", stats.byUser, snapshot.UnknownUserID)
	}
	if got.User.DisplayName != snapshot.UnknownDisplayName {
		t.Errorf("display name = %q, want sentinel", got.User.DisplayName)
	}
}
