package editor

import (
	"github.com/desertthunder/plx/internal/models"
)

// Default values applied when a command or a track omits data.
//
// Missing audio attributes are treated as present at these neutral values, so absence of
// analysis is never by itself a reason to drop or reorder a track.
const (
	DefaultMinDurationSeconds = 150
	DefaultMinEnergy          = 0.4
	DefaultEnergy             = 0.5
	DefaultTempo              = 120.0
	DefaultValence            = 0.5
	DefaultExpansionType      = "similar_artists"
	DefaultExpandBy           = 10
	DefaultSearchLimit        = 20
)

// Energy bands used by the energy curve.
const (
	ChillBelow     = 0.4 // energy < ChillBelow is chill
	EnergeticAbove = 0.7 // energy > EnergeticAbove is energetic
)

func energyOf(t models.Track) float64  { return models.ValueOr(t.Energy, DefaultEnergy) }
func tempoOf(t models.Track) float64   { return models.ValueOr(t.Tempo, DefaultTempo) }
func valenceOf(t models.Track) float64 { return models.ValueOr(t.Valence, DefaultValence) }

// copyTracks returns a fresh slice of cloned tracks, so strategies never alias caller data.
func copyTracks(tracks []models.Track) []models.Track {
	out := make([]models.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}

// keep returns the tracks satisfying pred, in order, and how many were dropped.
func keep(tracks []models.Track, pred func(models.Track) bool) ([]models.Track, int) {
	kept := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if pred(t) {
			kept = append(kept, t.Clone())
		}
	}
	return kept, len(tracks) - len(kept)
}

// newResult builds an [models.EditResult] whose change log is never nil.
func newResult(tracks []models.Track, explanation string, changes ...string) *models.EditResult {
	if changes == nil {
		changes = []string{}
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	return &models.EditResult{Tracks: tracks, Explanation: explanation, Changes: changes}
}
