package db

import "time"

// User represents a Spotify user profile row.
type User struct {
	ID          string
	DisplayName string
}

// DailyListening is one (user, day, minutes) row.
type DailyListening struct {
	ListenDate      time.Time
	MinutesListened int
}

// GenreCount is one (user, genre, count) row stamped with the processing
// date.
type GenreCount struct {
	Genre     string
	PlayCount int
}

// TopTrack is one ranked top-track row stamped with the processing date.
type TopTrack struct {
	TrackID    string
	TrackName  string
	ArtistName string
	Popularity int
	Rank       int
}

// SnapshotStats is the full relational row-set derived from one processed
// snapshot. It is written in a single transaction; the natural keys make the
// write idempotent under reprocessing.
type SnapshotStats struct {
	User       User
	RecordDate time.Time // processing date (UTC) stamping genre and track rows
	Daily      []DailyListening
	Genres     []GenreCount
	TopTracks  []TopTrack
}
