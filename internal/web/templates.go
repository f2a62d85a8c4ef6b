package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	// Execute the "base" template which includes the page content
	return tmpl.ExecuteTemplate(w, "base", data)
}

// load parses all page templates together with the layouts.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	for _, page := range pages {
		name := filepath.Base(page)
		name = name[:len(name)-len(".html")]

		files := append([]string{page}, layouts...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.templates[name] = tmpl
	}

	return nil
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// printf-style one-decimal formatting for scores and percentages
		"pct": func(v float64) string {
			return fmt.Sprintf("%.1f", v)
		},

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	User        *UserData
	CurrentPath string
}

// UserData contains authenticated user information.
type UserData struct {
	ID   string
	Name string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Authenticated bool
	Error         string
}

// GenreSlice is one genre wedge of the distribution view.
type GenreSlice struct {
	Label   string
	Count   int
	Percent float64
}

// DailyBar is one day of the listening chart.
type DailyBar struct {
	Date    string
	Minutes int
}

// ArtistCard is one entry of the top-artist grid.
type ArtistCard struct {
	Rank  int
	Name  string
	Image string
}

// TrackCard is one entry of the top-track grid.
type TrackCard struct {
	Rank   int
	Name   string
	Artist string
	Image  string
}

// DashboardPageData contains data for the dashboard page template.
type DashboardPageData struct {
	PageData
	ProcessedKey      string
	Score             float64
	ScoreNarrative    string
	DayPercent        float64
	NightPercent      float64
	DayNightNarrative string
	Genres            []GenreSlice
	TopArtists        []ArtistCard
	TopTracks         []TrackCard
	Daily             []DailyBar
}

// HistoryPageData contains data for the listening-history page template.
type HistoryPageData struct {
	PageData
	WindowDays   int
	Days         []DailyBar
	TotalMinutes int
}

// ProcessingPageData contains data for the still-processing page template.
type ProcessingPageData struct {
	PageData
	ProcessedKey string
}
