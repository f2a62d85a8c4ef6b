// Package spotify provides a narrow wrapper around the Spotify Web API
// exposing exactly the reads the capture stage needs.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"github.com/lwaltman/spotify-pulse/internal/snapshot"
)

// FetchLimit is the maximum number of items requested per dataset, matching
// the Spotify API's per-request ceiling.
const FetchLimit = 50

// Client wraps the Spotify API client with convenience methods. Calls are
// rate limited so a capture burst stays well inside the API quota.
type Client struct {
	api     *spotify.Client
	limiter *rate.Limiter
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// Identity returns the current user's stable ID and display name.
func (c *Client) Identity(ctx context.Context) (userID, displayName string, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", "", err
	}
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", "", fmt.Errorf("getting current user: %w", err)
	}
	return user.ID, user.DisplayName, nil
}

// TopArtists fetches the user's long-term top artists, most played first.
func (c *Client) TopArtists(ctx context.Context, limit int) ([]snapshot.Artist, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.CurrentUsersTopArtists(ctx,
		spotify.Limit(limit),
		spotify.Timerange(spotify.LongTermRange),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching top artists: %w", err)
	}

	artists := make([]snapshot.Artist, len(page.Artists))
	for i, a := range page.Artists {
		artists[i] = snapshot.Artist{
			Name:       a.Name,
			Genres:     a.Genres,
			ImageURL:   firstImageURL(a.Images),
			Popularity: int(a.Popularity),
		}
	}
	return artists, nil
}

// TopTracks fetches the user's long-term top tracks, most played first.
func (c *Client) TopTracks(ctx context.Context, limit int) ([]snapshot.Track, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.CurrentUsersTopTracks(ctx,
		spotify.Limit(limit),
		spotify.Timerange(spotify.LongTermRange),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}

	tracks := make([]snapshot.Track, len(page.Tracks))
	for i, t := range page.Tracks {
		tracks[i] = snapshot.Track{
			ID:            t.ID.String(),
			Name:          t.Name,
			ArtistName:    joinArtists(t.Artists),
			AlbumImageURL: firstImageURL(t.Album.Images),
			Popularity:    int(t.Popularity),
		}
	}
	return tracks, nil
}

// RecentlyPlayed fetches play events after the given time, newest first.
func (c *Client) RecentlyPlayed(ctx context.Context, after time.Time, limit int) ([]snapshot.PlayEvent, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{
		Limit:        spotify.Numeric(limit),
		AfterEpochMs: after.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	plays := make([]snapshot.PlayEvent, len(items))
	for i, item := range items {
		plays[i] = snapshot.PlayEvent{
			TrackID:    item.Track.ID.String(),
			TrackName:  item.Track.Name,
			DurationMs: int(item.Track.Duration),
			PlayedAt:   item.PlayedAt,
		}
	}
	return plays, nil
}

// firstImageURL returns the URL of the first (largest) image, or "".
func firstImageURL(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// joinArtists joins artist names with ", ".
func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
