package models

import (
	"strconv"
	"strings"
)

// Track is one song instance inside one playlist.
//
// Audio attributes are optional: a nil pointer means the catalog had no analysis for the track,
// which is distinct from a zero reading.
type Track struct {
	ID         string `json:"id"`
	CatalogID  string `json:"catalogId"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMS int    `json:"durationMs"`
	Position   int    `json:"position"`
	ISRC       string `json:"isrc,omitempty"`

	Energy           *float64 `json:"energy,omitempty"`
	Danceability     *float64 `json:"danceability,omitempty"`
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty"`
	Speechiness      *float64 `json:"speechiness,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
	Tempo            *float64 `json:"tempo,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty"`
	Popularity       *int     `json:"popularity,omitempty"`

	ReleaseDate string   `json:"releaseDate,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// Year returns the release year parsed from the leading digits of ReleaseDate, or 0 when absent.
//
// Catalog dates come as YYYY, YYYY-MM or YYYY-MM-DD.
func (t Track) Year() int {
	date := strings.TrimSpace(t.ReleaseDate)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 0 {
		return 0
	}
	return year
}

// Clone returns a copy of the track sharing no pointers or slices with the original.
func (t Track) Clone() Track {
	if t.Genres != nil {
		t.Genres = append([]string(nil), t.Genres...)
	}
	for _, p := range []**float64{
		&t.Energy, &t.Danceability, &t.Acousticness, &t.Instrumentalness,
		&t.Liveness, &t.Speechiness, &t.Valence, &t.Tempo, &t.Loudness,
	} {
		if *p != nil {
			*p = Float(**p)
		}
	}
	if t.Popularity != nil {
		t.Popularity = Int(*t.Popularity)
	}
	return t
}

// Float returns a pointer to v, for populating optional audio attributes.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// ValueOr dereferences p, returning def when p is nil.
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
