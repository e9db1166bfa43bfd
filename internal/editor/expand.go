package editor

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// Expansion types with dedicated seeding. Any other value is sent to the catalog as free text.
const (
	ExpandSimilarArtists = "similar_artists"
	ExpandSameGenre      = "same_genre"
	ExpandSameEra        = "same_era"
)

const maxSeeds = 3

// CatalogSearch finds tracks in the music catalog.
type CatalogSearch interface {
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)
}

// Expander grows a playlist with catalog tracks related to what it already holds.
type Expander struct {
	catalog     CatalogSearch
	searchLimit int
	expandBy    int
	logger      *log.Logger
}

// NewExpander creates an [Expander]. A nil catalog makes every expansion a no-op.
func NewExpander(catalog CatalogSearch, searchLimit, expandBy int, logger *log.Logger) *Expander {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	if expandBy <= 0 {
		expandBy = DefaultExpandBy
	}
	if logger == nil {
		logger = log.New(nil)
	}
	return &Expander{catalog: catalog, searchLimit: searchLimit, expandBy: expandBy, logger: logger}
}

// Expand appends up to TargetSize-len(tracks) new tracks after the existing ones.
//
// The existing tracks keep their order. Candidates already in the playlist (by catalog ID, ISRC or
// normalized title and artist), banned or by avoided artists, or outside the preferred tempo range are skipped.
func (e *Expander) Expand(ctx context.Context, tracks []models.Track, cmd ExpandCommand, prefs *models.UserPreferences) (*models.EditResult, error) {
	if cmd.Op != ActionExpandPlaylist {
		return nil, fmt.Errorf("%w: %q is not an expand action", ErrUnknownAction, cmd.Op)
	}

	kind := cmd.ExpansionType
	if kind == "" {
		kind = DefaultExpansionType
	}
	target := cmd.TargetSize
	if target <= 0 {
		target = len(tracks) + e.expandBy
	}

	out := copyTracks(tracks)
	need := target - len(tracks)
	if need <= 0 {
		return newResult(out, fmt.Sprintf("Playlist already has %d tracks; target of %d reached", len(tracks), target)), nil
	}
	if e.catalog == nil {
		return newResult(out, "No tracks added; catalog search is not configured"), nil
	}

	queries := expansionQueries(tracks, kind, prefs)
	if len(queries) == 0 {
		return newResult(out, fmt.Sprintf("No tracks added; nothing in the playlist to seed a %s search", kind)), nil
	}

	results := make([][]models.Track, 0, len(queries))
	var failed int
	for _, q := range queries {
		found, err := e.catalog.Search(ctx, q, e.searchLimit)
		if err != nil {
			failed++
			e.logger.Warn("catalog search failed", "query", q, "err", fmt.Errorf("%w: %w", ErrExternalService, err))
			continue
		}
		results = append(results, found)
	}
	if failed == len(queries) {
		return newResult(out, "No tracks added; catalog search is unavailable right now"), nil
	}

	seen := newTrackSet(tracks)
	var added int
	for _, c := range interleave(results) {
		if added == need {
			break
		}
		if !seen.add(c) || excludedByPreferences(c, prefs) || !inPreferredTempo(c, prefs) {
			continue
		}
		c.ID = ""
		c.Position = len(out)
		out = append(out, c)
		added++
	}

	if added == 0 {
		return newResult(out, fmt.Sprintf("No tracks added; the catalog had no new %s matches", kind)), nil
	}

	changes := []string{fmt.Sprintf("Added %d %s tracks", added, strings.ReplaceAll(kind, "_", " "))}
	if added < need {
		changes = append(changes, fmt.Sprintf("Only found %d of %d requested tracks", added, need))
	}
	return newResult(out, fmt.Sprintf("Expanded playlist from %d to %d tracks using %s", len(tracks), len(out), kind), changes...), nil
}

// expansionQueries builds catalog queries for kind, most relevant first.
func expansionQueries(tracks []models.Track, kind string, prefs *models.UserPreferences) []string {
	switch kind {
	case ExpandSimilarArtists:
		var seeds []string
		if prefs != nil {
			seeds = append(seeds, prefs.FavoriteArtists...)
		}
		seeds = append(seeds, ranked(tracks, func(t models.Track) []string { return []string{t.Artist} })...)
		return quoted("artist", seeds, prefs)
	case ExpandSameGenre:
		var seeds []string
		if prefs != nil {
			seeds = append(seeds, prefs.PreferredGenres...)
		}
		seeds = append(seeds, ranked(tracks, func(t models.Track) []string { return t.Genres })...)
		return quoted("genre", seeds, nil)
	case ExpandSameEra:
		decades := ranked(tracks, func(t models.Track) []string {
			if y := t.Year(); y > 0 {
				return []string{fmt.Sprintf("%d-%d", y/10*10, y/10*10+9)}
			}
			return nil
		})
		if len(decades) == 0 {
			return nil
		}
		return []string{"year:" + decades[0]}
	default:
		if q := strings.TrimSpace(strings.ReplaceAll(kind, "_", " ")); q != "" {
			return []string{q}
		}
		return nil
	}
}

// ranked returns the distinct keys across tracks, most frequent first, ties in first-seen order.
func ranked(tracks []models.Track, keys func(models.Track) []string) []string {
	counts := map[string]int{}
	var order []string
	for _, t := range tracks {
		for _, k := range keys(t) {
			if k = strings.TrimSpace(k); k == "" {
				continue
			}
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	slices.SortStableFunc(order, func(a, b string) int { return cmp.Compare(counts[b], counts[a]) })
	return order
}

// quoted renders up to maxSeeds distinct field:"value" queries, skipping avoided artists.
func quoted(field string, seeds []string, prefs *models.UserPreferences) []string {
	var (
		out  []string
		used = map[string]bool{}
	)
	for _, s := range seeds {
		key := shared.Fold(s)
		if key == "" || used[key] {
			continue
		}
		if prefs != nil && byAvoidedArtist(models.Track{Artist: s}, prefs.AvoidedArtists) {
			continue
		}
		used[key] = true
		out = append(out, fmt.Sprintf("%s:%q", field, s))
		if len(out) == maxSeeds {
			break
		}
	}
	return out
}

// interleave round-robins over result lists so every seed contributes.
func interleave(lists [][]models.Track) []models.Track {
	var out []models.Track
	for i := 0; ; i++ {
		progressed := false
		for _, l := range lists {
			if i < len(l) {
				out = append(out, l[i].Clone())
				progressed = true
			}
		}
		if !progressed {
			return out
		}
	}
}

func inPreferredTempo(t models.Track, prefs *models.UserPreferences) bool {
	if prefs == nil || prefs.PreferredBPM == nil || t.Tempo == nil {
		return true
	}
	return prefs.PreferredBPM.Contains(*t.Tempo)
}

// trackSet tracks identity by catalog ID, ISRC and normalized title/artist.
type trackSet map[string]bool

func newTrackSet(tracks []models.Track) trackSet {
	s := trackSet{}
	for _, t := range tracks {
		s.add(t)
	}
	return s
}

// add records t and reports whether it was new.
func (s trackSet) add(t models.Track) bool {
	keys := []string{"key:" + shared.NormalizeTrackKey(t.Name, t.Artist)}
	if t.CatalogID != "" {
		keys = append(keys, "id:"+t.CatalogID)
	}
	if t.ISRC != "" {
		keys = append(keys, "isrc:"+strings.ToUpper(t.ISRC))
	}

	for _, k := range keys {
		if s[k] {
			return false
		}
	}
	for _, k := range keys {
		s[k] = true
	}
	return true
}
