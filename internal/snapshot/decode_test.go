package snapshot

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeRaw(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, raw *Raw)
	}{
		{
			name:    "malformed JSON fails",
			payload: `{"user_id": `,
			wantErr: true,
		},
		{
			name:    "missing identity falls back to sentinels",
			payload: `{"top_artists":[{"name":"A"}]}`,
			check: func(t *testing.T, raw *Raw) {
				if raw.UserID != UnknownUserID {
					t.Errorf("user id = %q, want %q", raw.UserID, UnknownUserID)
				}
				if raw.DisplayName != UnknownDisplayName {
					t.Errorf("display name = %q, want %q", raw.DisplayName, UnknownDisplayName)
				}
				if raw.TopArtists[0].Genres == nil {
					t.Error("artist genres left nil")
				}
			},
		},
		{
			name: "full payload round-trips",
			payload: `{
				"user_id": "user-1",
				"display_name": "User One",
				"top_artists": [{"name":"A","genres":["pop"],"image_url":"u","popularity":90}],
				"top_tracks": [{"track_id":"t1","name":"Song","artist_name":"A","album_image_url":"v","popularity":55}],
				"recent_plays": [{"track_id":"t1","track_name":"Song","duration_ms":180000,"played_at":"2025-03-09T21:00:00Z"}]
			}`,
			check: func(t *testing.T, raw *Raw) {
				if raw.UserID != "user-1" {
					t.Errorf("user id = %q", raw.UserID)
				}
				if raw.TopArtists[0].Popularity != 90 {
					t.Errorf("artist popularity = %d", raw.TopArtists[0].Popularity)
				}
				if raw.TopTracks[0].ID != "t1" {
					t.Errorf("track id = %q", raw.TopTracks[0].ID)
				}
				want := time.Date(2025, 3, 9, 21, 0, 0, 0, time.UTC)
				if !raw.RecentPlays[0].PlayedAt.Equal(want) {
					t.Errorf("played at = %v, want %v", raw.RecentPlays[0].PlayedAt, want)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := DecodeRaw([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeRaw: %v", err)
			}
			tt.check(t, raw)
		})
	}
}

// The processed wire shape is a contract with the dashboard; field names
// must stay as the consumers expect them.
func TestProcessedWireShape(t *testing.T) {
	p := &Processed{
		UserID:          "user-1",
		DisplayName:     "User One",
		Genres:          GenreDistribution{Labels: []string{"pop"}, Sizes: []int{2}},
		MainstreamScore: 57.5,
		DayVsNight:      DayVsNight{DayPercent: 60, NightPercent: 40},
		ListeningTime: ListeningTime{
			DailyListeningLabels: []string{"2025-03-10"},
			DailyListeningValues: []int{12},
		},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		"user_id", "display_name", "genres", "top_artists", "top_tracks",
		"mainstream_score", "day_vs_night", "listening_time",
	} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing top-level field %q", key)
		}
	}

	var nested struct {
		DayVsNight    map[string]float64         `json:"day_vs_night"`
		ListeningTime map[string]json.RawMessage `json:"listening_time"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		t.Fatal(err)
	}
	if _, ok := nested.DayVsNight["day_percent"]; !ok {
		t.Error("missing day_percent")
	}
	if _, ok := nested.ListeningTime["daily_listening_labels"]; !ok {
		t.Error("missing daily_listening_labels")
	}
}
