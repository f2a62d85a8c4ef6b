// Package snapshot defines the raw and processed snapshot structures that
// flow through the pipeline, and the tolerant decoding step applied at the
// ingestion boundary.
package snapshot

import "time"

// Sentinel identity values substituted when a raw payload carries no user
// information. Downstream storage requires a non-null key, so decoding never
// fails on a missing identity.
const (
	UnknownUserID      = "unknown_user"
	UnknownDisplayName = "Unknown"
)

// Artist is one entry of a user's long-term top artists.
type Artist struct {
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	ImageURL   string   `json:"image_url"`
	Popularity int      `json:"popularity"`
}

// Track is one entry of a user's long-term top tracks.
type Track struct {
	ID            string `json:"track_id"`
	Name          string `json:"name"`
	ArtistName    string `json:"artist_name"`
	AlbumImageURL string `json:"album_image_url"`
	Popularity    int    `json:"popularity"`
}

// PlayEvent is a single recently-played record.
type PlayEvent struct {
	TrackID    string    `json:"track_id"`
	TrackName  string    `json:"track_name"`
	DurationMs int       `json:"duration_ms"`
	PlayedAt   time.Time `json:"played_at"`
}

// Raw is one full capture of a user's listening data. It is written once by
// the capture stage, read once by the transform stage, and never mutated.
type Raw struct {
	UserID      string      `json:"user_id"`
	DisplayName string      `json:"display_name"`
	TopArtists  []Artist    `json:"top_artists"`
	TopTracks   []Track     `json:"top_tracks"`
	RecentPlays []PlayEvent `json:"recent_plays"`
}

// GenreDistribution holds parallel label/count slices for the genre pie.
// Labels appear in first-seen order across the input artists.
type GenreDistribution struct {
	Labels []string `json:"labels"`
	Sizes  []int    `json:"sizes"`
}

// RankedArtist is a display entry of the top-artist grid.
type RankedArtist struct {
	Rank        int    `json:"rank"`
	ArtistName  string `json:"artist_name"`
	ArtistImage string `json:"artist_image"`
}

// RankedTrack is a display entry of the top-track grid. TrackID and
// Popularity ride along for the relational sink.
type RankedTrack struct {
	Rank       int    `json:"rank"`
	TrackID    string `json:"track_id"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	AlbumImage string `json:"album_image"`
	Popularity int    `json:"popularity"`
}

// DayVsNight is the day/night listening split in one-decimal percentages.
// The two values sum to 100, or are both 0 when there were no plays.
type DayVsNight struct {
	DayPercent   float64 `json:"day_percent"`
	NightPercent float64 `json:"night_percent"`
}

// ListeningTime holds minutes listened per calendar day (UTC) for the last
// seven days, oldest first. Labels and Values are parallel and always have
// exactly seven entries; days without plays are zero-filled.
type ListeningTime struct {
	DailyListeningLabels []string `json:"daily_listening_labels"`
	DailyListeningValues []int    `json:"daily_listening_values"`
}

// Processed is the derived view of exactly one Raw snapshot. It is written
// once by the transform stage and read repeatedly by the dashboard.
type Processed struct {
	UserID          string            `json:"user_id"`
	DisplayName     string            `json:"display_name"`
	Genres          GenreDistribution `json:"genres"`
	TopArtists      []RankedArtist    `json:"top_artists"`
	TopTracks       []RankedTrack     `json:"top_tracks"`
	MainstreamScore float64           `json:"mainstream_score"`
	DayVsNight      DayVsNight        `json:"day_vs_night"`
	ListeningTime   ListeningTime     `json:"listening_time"`
}
