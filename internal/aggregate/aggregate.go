// Package aggregate derives a processed snapshot from a raw one. Everything
// in this package is pure and deterministic: no I/O, no clock reads (the
// reference time is an argument), so the same raw snapshot always produces
// the same processed snapshot.
package aggregate

import (
	"math"
	"time"

	"github.com/lwaltman/spotify-pulse/internal/snapshot"
)

// ScoreSource selects which popularity list feeds the mainstream score.
type ScoreSource int

const (
	// ScoreFromTracks averages top-track popularity (the default).
	ScoreFromTracks ScoreSource = iota
	// ScoreFromArtists averages top-artist popularity instead.
	ScoreFromArtists
)

const (
	// TopN is how many ranked artists/tracks the dashboard shows.
	TopN = 10

	// dayStartHour..dayEndHour is the half-open UTC "day" window; everything
	// else counts as night.
	dayStartHour = 6
	dayEndHour   = 18

	// listeningWindowDays is the trailing daily-listening window, today
	// inclusive.
	listeningWindowDays = 7
)

// Config tunes aggregation. The zero value is usable.
type Config struct {
	// ScoreSource picks the popularity list for the mainstream score.
	ScoreSource ScoreSource

	// FallbackPlayDuration is charged for a play event that carries no
	// duration, keeping the daily-minutes metric deterministic on partial
	// data.
	FallbackPlayDuration time.Duration
}

// DefaultConfig returns the configuration used by the pipeline.
func DefaultConfig() Config {
	return Config{
		ScoreSource:          ScoreFromTracks,
		FallbackPlayDuration: 3*time.Minute + 30*time.Second,
	}
}

// Build computes the full processed snapshot for raw as of now. It never
// fails: missing or empty inputs degrade to empty lists and zero scores.
func Build(raw *snapshot.Raw, now time.Time, cfg Config) *snapshot.Processed {
	if cfg.FallbackPlayDuration <= 0 {
		cfg.FallbackPlayDuration = DefaultConfig().FallbackPlayDuration
	}

	userID := raw.UserID
	if userID == "" {
		userID = snapshot.UnknownUserID
	}
	displayName := raw.DisplayName
	if displayName == "" {
		displayName = snapshot.UnknownDisplayName
	}

	return &snapshot.Processed{
		UserID:          userID,
		DisplayName:     displayName,
		Genres:          GenreDistribution(raw.TopArtists),
		TopArtists:      TopArtists(raw.TopArtists),
		TopTracks:       TopTracks(raw.TopTracks),
		MainstreamScore: MainstreamScore(raw, cfg.ScoreSource),
		DayVsNight:      SplitDayNight(raw.RecentPlays),
		ListeningTime:   DailyListening(raw.RecentPlays, now, cfg.FallbackPlayDuration),
	}
}

// GenreDistribution counts genre tag occurrences across all artists. Labels
// come out in first-seen order, so output order is fixed by input order.
// Empty input yields empty (non-nil) slices.
func GenreDistribution(artists []snapshot.Artist) snapshot.GenreDistribution {
	labels := []string{}
	sizes := []int{}
	index := make(map[string]int)

	for _, artist := range artists {
		for _, genre := range artist.Genres {
			if genre == "" {
				continue
			}
			i, seen := index[genre]
			if !seen {
				index[genre] = len(labels)
				labels = append(labels, genre)
				sizes = append(sizes, 1)
				continue
			}
			sizes[i]++
		}
	}

	return snapshot.GenreDistribution{Labels: labels, Sizes: sizes}
}

// MainstreamScore is the arithmetic mean popularity (0-100) of the selected
// source list, unrounded. Rounding happens at presentation time only. An
// empty source list scores 0.
func MainstreamScore(raw *snapshot.Raw, source ScoreSource) float64 {
	var sum, n int
	switch source {
	case ScoreFromArtists:
		for _, a := range raw.TopArtists {
			sum += a.Popularity
			n++
		}
	default:
		for _, t := range raw.TopTracks {
			sum += t.Popularity
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// SplitDayNight classifies each play by its UTC hour: [06:00, 18:00) is day,
// the rest is night. Percentages are rounded to one decimal and sum to
// exactly 100; with no plays both are 0.
func SplitDayNight(plays []snapshot.PlayEvent) snapshot.DayVsNight {
	if len(plays) == 0 {
		return snapshot.DayVsNight{}
	}

	var day int
	for _, p := range plays {
		hour := p.PlayedAt.UTC().Hour()
		if hour >= dayStartHour && hour < dayEndHour {
			day++
		}
	}

	dayPercent := roundOneDecimal(float64(day) / float64(len(plays)) * 100)
	return snapshot.DayVsNight{
		DayPercent:   dayPercent,
		NightPercent: roundOneDecimal(100 - dayPercent),
	}
}

// DailyListening buckets plays by UTC calendar date over the trailing seven
// days ending at now's date, oldest day first. Minutes per day are summed
// from actual track durations; a play without a duration is charged
// fallback. Days without plays are zero-filled, never omitted.
func DailyListening(plays []snapshot.PlayEvent, now time.Time, fallback time.Duration) snapshot.ListeningTime {
	labels := make([]string, listeningWindowDays)
	millis := make([]int64, listeningWindowDays)

	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(listeningWindowDays - 1))
	for i := range labels {
		labels[i] = start.AddDate(0, 0, i).Format("2006-01-02")
	}

	for _, p := range plays {
		day := p.PlayedAt.UTC().Truncate(24 * time.Hour)
		offset := int(day.Sub(start).Hours() / 24)
		if offset < 0 || offset >= listeningWindowDays {
			continue
		}
		ms := int64(p.DurationMs)
		if ms <= 0 {
			ms = fallback.Milliseconds()
		}
		millis[offset] += ms
	}

	values := make([]int, listeningWindowDays)
	for i, ms := range millis {
		values[i] = int(math.Round(float64(ms) / 60000))
	}

	return snapshot.ListeningTime{
		DailyListeningLabels: labels,
		DailyListeningValues: values,
	}
}

// TopArtists takes the first TopN artists, which arrive already ordered by
// the upstream API, and attaches 1-based ranks. No re-sorting occurs.
func TopArtists(artists []snapshot.Artist) []snapshot.RankedArtist {
	n := min(len(artists), TopN)
	ranked := make([]snapshot.RankedArtist, n)
	for i := 0; i < n; i++ {
		ranked[i] = snapshot.RankedArtist{
			Rank:        i + 1,
			ArtistName:  artists[i].Name,
			ArtistImage: artists[i].ImageURL,
		}
	}
	return ranked
}

// TopTracks is the track counterpart of TopArtists.
func TopTracks(tracks []snapshot.Track) []snapshot.RankedTrack {
	n := min(len(tracks), TopN)
	ranked := make([]snapshot.RankedTrack, n)
	for i := 0; i < n; i++ {
		ranked[i] = snapshot.RankedTrack{
			Rank:       i + 1,
			TrackID:    tracks[i].ID,
			TrackName:  tracks[i].Name,
			ArtistName: tracks[i].ArtistName,
			AlbumImage: tracks[i].AlbumImageURL,
			Popularity: tracks[i].Popularity,
		}
	}
	return ranked
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
