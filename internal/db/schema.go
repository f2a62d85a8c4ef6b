package db

import (
	"context"
	"fmt"
)

// schema holds the DDL for the four stats tables. Primary keys are the
// natural keys the upserts conflict on.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id      TEXT PRIMARY KEY,
		display_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_daily_listening (
		user_id          TEXT NOT NULL REFERENCES users(user_id),
		listen_date      DATE NOT NULL,
		minutes_listened INT  NOT NULL,
		PRIMARY KEY (user_id, listen_date)
	)`,
	`CREATE TABLE IF NOT EXISTS user_genres (
		user_id     TEXT NOT NULL REFERENCES users(user_id),
		genre       TEXT NOT NULL,
		play_count  INT  NOT NULL,
		record_date DATE NOT NULL,
		PRIMARY KEY (user_id, genre, record_date)
	)`,
	`CREATE TABLE IF NOT EXISTS user_top_tracks (
		user_id     TEXT NOT NULL REFERENCES users(user_id),
		track_id    TEXT NOT NULL,
		track_name  TEXT NOT NULL,
		artist_name TEXT NOT NULL,
		popularity  INT  NOT NULL,
		track_rank  INT  NOT NULL,
		record_date DATE NOT NULL,
		PRIMARY KEY (user_id, track_id, record_date)
	)`,
}

// EnsureSchema creates the stats tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
