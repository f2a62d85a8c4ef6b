package present

import (
	"math"

	"github.com/lwaltman/spotify-pulse/internal/snapshot"
)

// Score bands for the mainstream narrative. The thresholds are a display
// contract: >=70 mainstream, 40-69 moderate, below that indie.
const (
	mainstreamThreshold = 70
	moderateThreshold   = 40
)

// RoundScore rounds the stored (unrounded) mainstream score to one decimal
// for display.
func RoundScore(score float64) float64 {
	return math.Round(score*10) / 10
}

// ScoreNarrative returns the one-line verdict for a mainstream score. Bands
// are evaluated on the rounded value, matching what the user sees.
func ScoreNarrative(score float64) string {
	rounded := RoundScore(score)
	switch {
	case rounded >= mainstreamThreshold:
		return "Wow, you're very mainstream — your playlist could dominate the radio!"
	case rounded >= moderateThreshold:
		return "You're moderately mainstream — a balanced blend of hits and hidden gems."
	default:
		return "You're quite indie — you dig deep cuts and obscure tracks!"
	}
}

// DayNightNarrative returns the one-line verdict for the day/night split.
func DayNightNarrative(split snapshot.DayVsNight) string {
	if split.NightPercent > split.DayPercent {
		return "You're a midnight music muncher!"
	}
	return "You're more of a daytime music star!"
}
