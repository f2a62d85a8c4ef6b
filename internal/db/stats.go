package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository persists the derived listening statistics.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// UpsertSnapshotStats writes the whole row-set in one transaction. Every
// statement is an upsert on its natural key, so replaying the same snapshot
// overwrites values instead of duplicating rows, and any failure rolls the
// entire write back.
func (r *StatsRepository) UpsertSnapshotStats(ctx context.Context, stats *SnapshotStats) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	userQuery := `
		INSERT INTO users (user_id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name
	`
	if _, err := tx.Exec(ctx, userQuery, stats.User.ID, stats.User.DisplayName); err != nil {
		return fmt.Errorf("upserting user %s: %w", stats.User.ID, err)
	}

	dailyQuery := `
		INSERT INTO user_daily_listening (user_id, listen_date, minutes_listened)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, listen_date) DO UPDATE SET
			minutes_listened = EXCLUDED.minutes_listened
	`
	for _, d := range stats.Daily {
		if _, err := tx.Exec(ctx, dailyQuery, stats.User.ID, d.ListenDate, d.MinutesListened); err != nil {
			return fmt.Errorf("upserting daily listening for %s: %w",
				d.ListenDate.Format("2006-01-02"), err)
		}
	}

	genreQuery := `
		INSERT INTO user_genres (user_id, genre, play_count, record_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, genre, record_date) DO UPDATE SET
			play_count = EXCLUDED.play_count
	`
	for _, g := range stats.Genres {
		if _, err := tx.Exec(ctx, genreQuery, stats.User.ID, g.Genre, g.PlayCount, stats.RecordDate); err != nil {
			return fmt.Errorf("upserting genre %q: %w", g.Genre, err)
		}
	}

	trackQuery := `
		INSERT INTO user_top_tracks
			(user_id, track_id, track_name, artist_name, popularity, track_rank, record_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, track_id, record_date) DO UPDATE SET
			track_name = EXCLUDED.track_name,
			artist_name = EXCLUDED.artist_name,
			popularity = EXCLUDED.popularity,
			track_rank = EXCLUDED.track_rank
	`
	for _, t := range stats.TopTracks {
		_, err := tx.Exec(ctx, trackQuery,
			stats.User.ID,
			t.TrackID,
			t.TrackName,
			t.ArtistName,
			t.Popularity,
			t.Rank,
			stats.RecordDate,
		)
		if err != nil {
			return fmt.Errorf("upserting top track %q: %w", t.TrackID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot stats: %w", err)
	}
	return nil
}

// GetDailyListening returns a user's daily listening rows since the given
// date, oldest first. Backs the history page, which spans every processed
// snapshot rather than the single one a processed object carries.
func (r *StatsRepository) GetDailyListening(ctx context.Context, userID string, since time.Time) ([]DailyListening, error) {
	query := `
		SELECT listen_date, minutes_listened
		FROM user_daily_listening
		WHERE user_id = $1 AND listen_date >= $2
		ORDER BY listen_date
	`
	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("querying daily listening: %w", err)
	}
	defer rows.Close()

	var daily []DailyListening
	for rows.Next() {
		var d DailyListening
		if err := rows.Scan(&d.ListenDate, &d.MinutesListened); err != nil {
			return nil, fmt.Errorf("scanning daily listening row: %w", err)
		}
		daily = append(daily, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily listening rows: %w", err)
	}
	return daily, nil
}
