package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	zspotify "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/lwaltman/spotify-pulse/internal/db"
	"github.com/lwaltman/spotify-pulse/internal/pipeline"
	"github.com/lwaltman/spotify-pulse/internal/present"
	"github.com/lwaltman/spotify-pulse/internal/snapshot"
	apiclient "github.com/lwaltman/spotify-pulse/internal/spotify"
)

// historyWindowDays is how far back the listening-history page reaches.
// Snapshots accumulate in the relational store, so this view outgrows the
// seven days any single processed object carries.
const historyWindowDays = 30

// DailyReader reads accumulated daily listening rows. *db.StatsRepository
// satisfies it; tests substitute fakes.
type DailyReader interface {
	GetDailyListening(ctx context.Context, userID string, since time.Time) ([]db.DailyListening, error)
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth      *spotifyauth.Authenticator
	sessions  *SessionStore
	templates *Templates
	pipeline  *pipeline.Service
	presenter *present.Adapter
	daily     DailyReader
	log       *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(auth *spotifyauth.Authenticator, sessions *SessionStore, templates *Templates,
	pipe *pipeline.Service, presenter *present.Adapter, daily DailyReader, logger *log.Logger) *Handlers {
	return &Handlers{
		auth:      auth,
		sessions:  sessions,
		templates: templates,
		pipeline:  pipe,
		presenter: presenter,
		daily:     daily,
		log:       logger,
	}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	data := HomePageData{
		PageData: PageData{
			Title:       "Spotify Pulse",
			CurrentPath: r.URL.Path,
		},
		Authenticated: session != nil,
		Error:         r.URL.Query().Get("error"),
	}

	if session != nil {
		data.User = &UserData{
			ID:   session.UserID,
			Name: session.UserName,
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "home", data); err != nil {
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	// Redirect to Spotify auth
	url := h.auth.AuthURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	// Verify state
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	// Check for error from Spotify
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	// Exchange code for token
	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	// Get user info from Spotify
	client := zspotify.New(h.auth.Client(r.Context(), token))
	user, err := client.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	// Create session
	session, err := h.sessions.Create(token, string(user.ID), user.DisplayName)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	// Set session cookie
	h.sessions.SetCookie(w, session)

	// Redirect to home
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session != nil {
		h.sessions.Delete(session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Capture runs the capture-and-process pipeline for the logged-in user
// (POST /capture). The run blocks on the three upstream fetches plus
// processing, typically a few seconds; the home page shows a spinner.
func (h *Handlers) Capture(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/auth/login", http.StatusTemporaryRedirect)
		return
	}

	api := zspotify.New(h.auth.Client(r.Context(), session.Token), zspotify.WithRetry(true))

	result, err := h.pipeline.Run(r.Context(), apiclient.New(api))

	// oauth2 may have refreshed the token during the run; keep the session
	// current so the next capture does not refresh again.
	if tok, tokErr := api.Token(); tokErr == nil && tok.AccessToken != session.Token.AccessToken {
		h.sessions.UpdateToken(session.ID, tok)
	}

	if err != nil {
		h.log.Error("pipeline run failed", "user", session.UserID, "err", err)
		http.Redirect(w, r, "/?error="+url.QueryEscape("Capture failed: "+err.Error()),
			http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/dashboard?key="+url.QueryEscape(result.ProcessedKey),
		http.StatusSeeOther)
}

// Dashboard renders the processed snapshot behind a key (GET /dashboard).
// While the transform is still catching up it renders a refreshing
// "still processing" page rather than an error.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/auth/login", http.StatusTemporaryRedirect)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}

	processed, err := h.presenter.WaitForProcessed(r.Context(), key)
	if errors.Is(err, present.ErrStillProcessing) {
		data := ProcessingPageData{
			PageData: PageData{
				Title:       "Processing",
				User:        &UserData{ID: session.UserID, Name: session.UserName},
				CurrentPath: r.URL.Path,
			},
			ProcessedKey: key,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.templates.Render(w, "processing", data); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
		}
		return
	}
	if err != nil {
		h.log.Error("loading processed snapshot failed", "key", key, "err", err)
		http.Error(w, "Failed to load processed data", http.StatusInternalServerError)
		return
	}

	data := dashboardData(processed, key, r.URL.Path)
	data.User = &UserData{ID: session.UserID, Name: session.UserName}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "dashboard", data); err != nil {
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// History renders the accumulated daily listening trend (GET /history).
// Unlike the dashboard, which reads one processed object, this reads the
// relational store, so it spans every snapshot ever processed for the user.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/auth/login", http.StatusTemporaryRedirect)
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -historyWindowDays)
	rows, err := h.daily.GetDailyListening(r.Context(), session.UserID, since)
	if err != nil {
		h.log.Error("loading listening history failed", "user", session.UserID, "err", err)
		http.Error(w, "Failed to load listening history", http.StatusInternalServerError)
		return
	}

	data := historyData(rows, r.URL.Path)
	data.User = &UserData{ID: session.UserID, Name: session.UserName}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "history", data); err != nil {
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// historyData builds the history view model from relational daily rows.
func historyData(rows []db.DailyListening, path string) HistoryPageData {
	data := HistoryPageData{
		PageData: PageData{
			Title:       "Listening History",
			CurrentPath: path,
		},
		WindowDays: historyWindowDays,
	}
	for _, row := range rows {
		data.Days = append(data.Days, DailyBar{
			Date:    row.ListenDate.Format("2006-01-02"),
			Minutes: row.MinutesListened,
		})
		data.TotalMinutes += row.MinutesListened
	}
	return data
}

// dashboardData builds the dashboard view model from a processed snapshot.
func dashboardData(p *snapshot.Processed, key, path string) DashboardPageData {
	data := DashboardPageData{
		PageData: PageData{
			Title:       "Your Listening Stats",
			CurrentPath: path,
		},
		ProcessedKey:      key,
		Score:             present.RoundScore(p.MainstreamScore),
		ScoreNarrative:    present.ScoreNarrative(p.MainstreamScore),
		DayPercent:        p.DayVsNight.DayPercent,
		NightPercent:      p.DayVsNight.NightPercent,
		DayNightNarrative: present.DayNightNarrative(p.DayVsNight),
	}

	total := 0
	for _, size := range p.Genres.Sizes {
		total += size
	}
	for i, label := range p.Genres.Labels {
		slice := GenreSlice{Label: label, Count: p.Genres.Sizes[i]}
		if total > 0 {
			slice.Percent = present.RoundScore(float64(slice.Count) / float64(total) * 100)
		}
		data.Genres = append(data.Genres, slice)
	}

	for _, a := range p.TopArtists {
		data.TopArtists = append(data.TopArtists, ArtistCard{
			Rank:  a.Rank,
			Name:  a.ArtistName,
			Image: a.ArtistImage,
		})
	}
	for _, t := range p.TopTracks {
		data.TopTracks = append(data.TopTracks, TrackCard{
			Rank:   t.Rank,
			Name:   t.TrackName,
			Artist: t.ArtistName,
			Image:  t.AlbumImage,
		})
	}

	labels := p.ListeningTime.DailyListeningLabels
	values := p.ListeningTime.DailyListeningValues
	for i := 0; i < len(labels) && i < len(values); i++ {
		data.Daily = append(data.Daily, DailyBar{Date: labels[i], Minutes: values[i]})
	}

	return data
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
