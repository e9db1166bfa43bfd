package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/plx/internal/models"
)

const suggestPrompt = `You suggest replacement songs so a playlist better fits a target mood.
Respond with exactly one JSON object and nothing else, shaped as:
{"suggestions": [{"replaceTrackId": "<id of the track to replace>", "name": "<song title>", "artist": "<artist>", "reason": "<one short sentence>"}]}
Only suggest real, released songs. Suggest at most one replacement per listed track.`

// CompleterSuggester asks a [Completer] for mood replacements.
type CompleterSuggester struct {
	completer Completer
}

// NewCompleterSuggester creates a [Suggester] backed by completer.
func NewCompleterSuggester(completer Completer) *CompleterSuggester {
	return &CompleterSuggester{completer: completer}
}

// Suggest implements [Suggester].
func (s *CompleterSuggester) Suggest(ctx context.Context, req SuggestionRequest) ([]models.Suggestion, error) {
	if s.completer == nil {
		return nil, fmt.Errorf("no completion service configured")
	}

	resp, err := s.completer.Complete(ctx, suggestPrompt, suggestionInput(req))
	if err != nil {
		return nil, err
	}

	type wire struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	w, err := firstJSONObject[wire](resp)
	if err != nil {
		return nil, err
	}

	out := w.Suggestions
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func suggestionInput(req SuggestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target mood: %s\n", req.Mood)
	if req.Limit > 0 {
		fmt.Fprintf(&b, "Suggest at most %d songs.\n", req.Limit)
	}

	b.WriteString("Tracks that do not fit:\n")
	for _, t := range req.Mismatched {
		fmt.Fprintf(&b, "- %s: %q by %s", t.ID, t.Name, t.Artist)
		var attrs []string
		if t.Energy != nil {
			attrs = append(attrs, fmt.Sprintf("energy %.2f", *t.Energy))
		}
		if t.Valence != nil {
			attrs = append(attrs, fmt.Sprintf("valence %.2f", *t.Valence))
		}
		if t.Tempo != nil {
			attrs = append(attrs, fmt.Sprintf("tempo %.0f", *t.Tempo))
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(attrs, ", "))
		}
		b.WriteByte('\n')
	}

	if p := req.Preferences; p != nil {
		if len(p.FavoriteArtists) > 0 {
			fmt.Fprintf(&b, "Favorite artists: %s\n", strings.Join(p.FavoriteArtists, ", "))
		}
		if len(p.AvoidedArtists) > 0 {
			fmt.Fprintf(&b, "Never suggest these artists: %s\n", strings.Join(p.AvoidedArtists, ", "))
		}
		if len(p.PreferredGenres) > 0 {
			fmt.Fprintf(&b, "Preferred genres: %s\n", strings.Join(p.PreferredGenres, ", "))
		}
	}
	return b.String()
}
