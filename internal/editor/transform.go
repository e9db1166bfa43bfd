package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// span is an inclusive attribute range.
type span struct{ lo, hi float64 }

func (s *span) admits(v *float64) bool {
	if s == nil || v == nil {
		return true
	}
	return *v >= s.lo && *v <= s.hi
}

// MoodProfile is the audio-attribute envelope a track must sit inside to fit a mood.
// Nil ranges are unconstrained.
type MoodProfile struct {
	Name         string
	energy       *span
	valence      *span
	danceability *span
	acousticness *span
	tempo        *span
}

// Fits reports whether t sits inside the profile. Missing attributes never count against a track.
func (m MoodProfile) Fits(t models.Track) bool {
	return m.energy.admits(t.Energy) &&
		m.valence.admits(t.Valence) &&
		m.danceability.admits(t.Danceability) &&
		m.acousticness.admits(t.Acousticness) &&
		m.tempo.admits(t.Tempo)
}

var moodProfiles = map[string]MoodProfile{
	"energetic": {Name: "energetic", energy: &span{0.6, 1}, tempo: &span{110, 250}},
	"chill":     {Name: "chill", energy: &span{0, 0.5}, tempo: &span{0, 115}},
	"happy":     {Name: "happy", valence: &span{0.55, 1}},
	"sad":       {Name: "sad", valence: &span{0, 0.45}, energy: &span{0, 0.6}},
	"danceable": {Name: "danceable", danceability: &span{0.6, 1}},
	"acoustic":  {Name: "acoustic", acousticness: &span{0.5, 1}},
}

var moodAliases = map[string]string{
	"upbeat": "energetic", "hype": "energetic", "pumped": "energetic", "intense": "energetic", "workout": "energetic",
	"calm": "chill", "relaxed": "chill", "mellow": "chill", "relaxing": "chill", "laid back": "chill",
	"cheerful": "happy", "uplifting": "happy", "joyful": "happy",
	"melancholy": "sad", "melancholic": "sad", "moody": "sad",
	"party": "danceable", "dance": "danceable", "groovy": "danceable",
	"unplugged": "acoustic", "organic": "acoustic",
}

// LookupMood resolves a mood name or alias to its profile.
func LookupMood(mood string) (MoodProfile, bool) {
	key := strings.ToLower(strings.TrimSpace(mood))
	if alias, ok := moodAliases[key]; ok {
		key = alias
	}
	p, ok := moodProfiles[key]
	return p, ok
}

// Suggester proposes replacement tracks for tracks that do not fit a mood.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestionRequest) ([]models.Suggestion, error)
}

// SuggestionRequest carries everything a [Suggester] needs to propose replacements.
type SuggestionRequest struct {
	Mood        string
	Mismatched  []models.Track
	Preferences *models.UserPreferences
	Limit       int
}

// MoodTransformer identifies tracks that do not fit a target mood and collects replacement suggestions.
//
// It never substitutes tracks: the returned list is the input, unchanged, and the suggestions are
// reported alongside for the caller to review.
type MoodTransformer struct {
	suggester Suggester
	logger    *log.Logger
}

// NewMoodTransformer creates a [MoodTransformer]. A nil suggester only reports mismatches.
func NewMoodTransformer(suggester Suggester, logger *log.Logger) *MoodTransformer {
	if logger == nil {
		logger = log.New(nil)
	}
	return &MoodTransformer{suggester: suggester, logger: logger}
}

// Transform implements the transform strategy.
func (m *MoodTransformer) Transform(ctx context.Context, tracks []models.Track, cmd TransformCommand, prefs *models.UserPreferences) (*models.EditResult, error) {
	if cmd.Op != ActionChangeMood {
		return nil, fmt.Errorf("%w: %q is not a transform action", ErrUnknownAction, cmd.Op)
	}

	unchanged := copyTracks(tracks)
	profile, known := LookupMood(cmd.Mood)

	// Without a profile the oracle judges every track.
	mismatched := unchanged
	if known {
		mismatched, _ = keep(tracks, func(t models.Track) bool { return !profile.Fits(t) })
	}

	var changes []string
	if known {
		changes = append(changes, fmt.Sprintf("Found %d of %d tracks that do not fit a %s mood", len(mismatched), len(tracks), cmd.Mood))
	}

	if len(mismatched) == 0 {
		return newResult(unchanged, noReplacement(0, cmd.Mood), changes...), nil
	}

	if m.suggester == nil {
		changes = append(changes, "Replacement suggestions are not configured")
		return newResult(unchanged, noReplacement(0, cmd.Mood), changes...), nil
	}

	suggestions, err := m.suggester.Suggest(ctx, SuggestionRequest{
		Mood:        cmd.Mood,
		Mismatched:  mismatched,
		Preferences: prefs,
		Limit:       len(mismatched),
	})
	if err != nil {
		m.logger.Warn("mood suggestions unavailable", "mood", cmd.Mood, "err", fmt.Errorf("%w: %w", ErrExternalService, err))
		explanation := fmt.Sprintf("No automatic replacement performed; suggestions for mood %q are unavailable right now", cmd.Mood)
		return newResult(unchanged, explanation, changes...), nil
	}

	suggestions = dropUnwanted(suggestions, prefs)
	changes = append(changes, fmt.Sprintf("Received %d replacement suggestions", len(suggestions)))

	result := newResult(unchanged, noReplacement(len(suggestions), cmd.Mood), changes...)
	result.Suggestions = suggestions
	return result, nil
}

func noReplacement(n int, mood string) string {
	return fmt.Sprintf("No automatic replacement performed; %d candidates identified for mood %q", n, mood)
}

// dropUnwanted removes suggestions by avoided artists or matching banned songs.
func dropUnwanted(suggestions []models.Suggestion, prefs *models.UserPreferences) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		if excludedByPreferences(models.Track{Name: s.Name, Artist: s.Artist}, prefs) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// excludedByPreferences reports whether prefs ban the track or avoid its artist.
func excludedByPreferences(t models.Track, prefs *models.UserPreferences) bool {
	if prefs == nil {
		return false
	}
	return isBanned(t, prefs.BannedSongs) || byAvoidedArtist(t, prefs.AvoidedArtists)
}

func isBanned(t models.Track, banned []string) bool {
	for _, b := range banned {
		if shared.ContainsFold(t.Name, b) || shared.ContainsFold(t.Artist, b) {
			return true
		}
	}
	return false
}

// byAvoidedArtist matches each credited artist ("A, B & C") exactly against the avoided list.
func byAvoidedArtist(t models.Track, avoided []string) bool {
	if len(avoided) == 0 {
		return false
	}
	credits := strings.FieldsFunc(t.Artist, func(r rune) bool { return r == ',' || r == '&' })
	for _, credit := range credits {
		for _, a := range avoided {
			if strings.TrimSpace(a) != "" && shared.EqualFold(credit, a) {
				return true
			}
		}
	}
	return false
}
