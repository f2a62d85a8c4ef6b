package objectstore

import (
	"testing"
	"time"
)

func TestRawKey(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 4, 5, 0, time.UTC)
	got := RawKey(at)
	want := "raw/user_spotify_data_20250310_090405.json"
	if got != want {
		t.Errorf("RawKey = %q, want %q", got, want)
	}
}

func TestProcessedKeyFor(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "typical raw key",
			raw:  "raw/user_spotify_data_20250310_090405.json",
			want: "processed/user_spotify_data_20250310_090405.processed.json",
		},
		{
			name: "round trip from RawKey",
			raw:  RawKey(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
			want: "processed/user_spotify_data_20250102_030405.processed.json",
		},
		{
			name: "already processed key is unchanged",
			raw:  "processed/user_spotify_data_20250310_090405.processed.json",
			want: "processed/user_spotify_data_20250310_090405.processed.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProcessedKeyFor(tt.raw); got != tt.want {
				t.Errorf("ProcessedKeyFor(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsRawKey(t *testing.T) {
	if !IsRawKey("raw/x.json") {
		t.Error("raw/x.json should be a raw key")
	}
	if IsRawKey("processed/x.processed.json") {
		t.Error("processed key should not be a raw key")
	}
}
