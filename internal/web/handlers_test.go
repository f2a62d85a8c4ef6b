package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/lwaltman/spotify-pulse/internal/db"
)

type fakeDailyReader struct {
	rows  []db.DailyListening
	since time.Time
	err   error
}

func (f *fakeDailyReader) GetDailyListening(_ context.Context, _ string, since time.Time) ([]db.DailyListening, error) {
	f.since = since
	return f.rows, f.err
}

// testTemplates builds a minimal template set so handlers can render without
// the embedded assets.
func testTemplates(t *testing.T) *Templates {
	t.Helper()
	fsys := fstest.MapFS{
		"layouts/base.html": &fstest.MapFile{
			Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`),
		},
		"pages/history.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}total={{.TotalMinutes}};days={{len .Days}}{{end}}`),
		},
	}
	templates, err := NewTemplates(fsys)
	if err != nil {
		t.Fatalf("NewTemplates: %v", err)
	}
	return templates
}

func historyHandlers(t *testing.T, daily DailyReader) (*Handlers, *Session) {
	t.Helper()
	sessions := NewSessionStore()
	session, err := sessions.Create(&oauth2.Token{AccessToken: "a"}, "user-1", "User One")
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	h := NewHandlers(nil, sessions, testTemplates(t), nil, nil, daily, log.New(io.Discard))
	return h, session
}

func historyRequest(session *Session) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/history", nil)
	if session != nil {
		r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.ID})
	}
	return r
}

func TestHistoryRendersRows(t *testing.T) {
	daily := &fakeDailyReader{
		rows: []db.DailyListening{
			{ListenDate: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), MinutesListened: 40},
			{ListenDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), MinutesListened: 25},
		},
	}
	h, session := historyHandlers(t, daily)

	w := httptest.NewRecorder()
	h.History(w, historyRequest(session))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "total=65") || !strings.Contains(body, "days=2") {
		t.Errorf("body = %q", body)
	}

	// The query window must trail now by the history window.
	wantSince := time.Now().UTC().AddDate(0, 0, -historyWindowDays)
	if daily.since.Before(wantSince.Add(-time.Minute)) || daily.since.After(wantSince.Add(time.Minute)) {
		t.Errorf("since = %v, want about %v", daily.since, wantSince)
	}
}

func TestHistoryRequiresSession(t *testing.T) {
	h, _ := historyHandlers(t, &fakeDailyReader{})

	w := httptest.NewRecorder()
	h.History(w, historyRequest(nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want redirect to login", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("location = %q", loc)
	}
}

func TestHistoryReadFailure(t *testing.T) {
	h, session := historyHandlers(t, &fakeDailyReader{err: errors.New("connection reset")})

	w := httptest.NewRecorder()
	h.History(w, historyRequest(session))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestHistoryData(t *testing.T) {
	rows := []db.DailyListening{
		{ListenDate: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), MinutesListened: 40},
		{ListenDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), MinutesListened: 25},
	}

	data := historyData(rows, "/history")

	if data.TotalMinutes != 65 {
		t.Errorf("total = %d, want 65", data.TotalMinutes)
	}
	if len(data.Days) != 2 || data.Days[0].Date != "2025-03-09" || data.Days[1].Minutes != 25 {
		t.Errorf("days = %+v", data.Days)
	}
	if data.WindowDays != historyWindowDays {
		t.Errorf("window = %d", data.WindowDays)
	}
}
