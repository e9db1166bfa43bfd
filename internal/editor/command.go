package editor

import (
	"fmt"
	"slices"
	"strings"
)

// CommandType is the top-level category of an edit.
type CommandType string

const (
	TypeFilter    CommandType = "filter"
	TypeTransform CommandType = "transform"
	TypeSort      CommandType = "sort"
	TypeExpand    CommandType = "expand"
	TypeRefine    CommandType = "refine"
	TypeTheme     CommandType = "theme"
)

// Action names one operation within a [CommandType].
type Action string

const (
	ActionRemoveShortTracks Action = "remove_short_tracks"
	ActionRemoveByYear      Action = "remove_by_year"
	ActionRemoveByGenre     Action = "remove_by_genre"
	ActionRemoveLowEnergy   Action = "remove_low_energy"

	ActionSortByBPM    Action = "sort_by_bpm"
	ActionSortByEnergy Action = "sort_by_energy"
	ActionSortByYear   Action = "sort_by_year"
	ActionEnergyCurve  Action = "energy_curve"
	ActionMoodJourney  Action = "mood_journey"

	ActionChangeMood       Action = "change_mood"
	ActionExpandPlaylist   Action = "expand_playlist"
	ActionApplyPreferences Action = "apply_preferences"
	ActionApplyTheme       Action = "apply_theme"
)

// ActionSpec documents one action: its parameter shape and what it does.
type ActionSpec struct {
	Action      Action
	Parameters  string
	Description string
}

var commandTypes = []CommandType{TypeFilter, TypeTransform, TypeSort, TypeExpand, TypeRefine, TypeTheme}

var vocabulary = map[CommandType][]ActionSpec{
	TypeFilter: {
		{ActionRemoveShortTracks, `{"min_duration": seconds (default 150)}`, "remove tracks shorter than the minimum duration"},
		{ActionRemoveByYear, `{"after_year": year, "before_year": year}`, "keep only tracks released inside the inclusive year window"},
		{ActionRemoveByGenre, `{"exclude_genres": [genre, ...]}`, "remove tracks tagged with any of the genres"},
		{ActionRemoveLowEnergy, `{"min_energy": 0-1 (default 0.4)}`, "remove tracks below the energy threshold"},
	},
	TypeTransform: {
		{ActionChangeMood, `{"mood": "energetic|chill|happy|sad|danceable|acoustic|..."}`, "shift the playlist toward a mood"},
	},
	TypeSort: {
		{ActionSortByBPM, `{"ascending": bool (default true)}`, "order by tempo"},
		{ActionSortByEnergy, `{}`, "order from most to least energetic"},
		{ActionSortByYear, `{}`, "order from newest to oldest"},
		{ActionEnergyCurve, `{}`, "chill intro, energetic peak, mid plateau, chill outro"},
		{ActionMoodJourney, `{}`, "order from darkest to brightest mood"},
	},
	TypeExpand: {
		{ActionExpandPlaylist, `{"target_size": number, "expansion_type": "similar_artists|same_genre|same_era|<free text>"}`, "add new tracks up to the target size"},
	},
	TypeRefine: {
		{ActionApplyPreferences, `{}`, "remove banned songs and avoided artists using the user's preferences"},
	},
	TypeTheme: {
		{ActionApplyTheme, `{"theme": "description"}`, "record a theme for the playlist"},
	},
}

// CommandTypes returns the closed set of command types.
func CommandTypes() []CommandType {
	return slices.Clone(commandTypes)
}

// Actions returns the action vocabulary for t, or nil for an unknown type.
func Actions(t CommandType) []ActionSpec {
	return slices.Clone(vocabulary[t])
}

// KnownType reports whether t is one of the six command types.
func KnownType(t CommandType) bool {
	return slices.Contains(commandTypes, t)
}

// ValidAction reports whether a belongs to t's vocabulary.
func ValidAction(t CommandType, a Action) bool {
	return slices.ContainsFunc(vocabulary[t], func(s ActionSpec) bool { return s.Action == a })
}

// EditCommand is a classified edit. The set of implementations is closed:
// [FilterCommand], [SortCommand], [TransformCommand], [ExpandCommand], [RefineCommand] and [ThemeCommand].
type EditCommand interface {
	Type() CommandType
	Action() Action
	isEditCommand()
}

// FilterCommand removes tracks failing a predicate. Only the fields for Op are meaningful.
type FilterCommand struct {
	Op            Action
	MinDurationMS int      // remove_short_tracks: keep duration >= MinDurationMS
	AfterYear     int      // remove_by_year: inclusive lower bound, 0 when unset
	BeforeYear    int      // remove_by_year: inclusive upper bound, 0 when unset
	ExcludeGenres []string // remove_by_genre
	MinEnergy     float64  // remove_low_energy: keep energy >= MinEnergy
}

// SortCommand permutes the track order.
type SortCommand struct {
	Op        Action
	Ascending bool
}

// TransformCommand asks for the playlist to move toward Mood.
type TransformCommand struct {
	Op   Action
	Mood string
}

// ExpandCommand grows the playlist toward TargetSize.
type ExpandCommand struct {
	Op            Action
	TargetSize    int // 0 means grow by the editor's default amount
	ExpansionType string
}

// RefineCommand applies the caller's preferences.
type RefineCommand struct {
	Op Action
}

// ThemeCommand records a theme for the playlist.
type ThemeCommand struct {
	Op    Action
	Theme string
}

func (c FilterCommand) Type() CommandType    { return TypeFilter }
func (c SortCommand) Type() CommandType      { return TypeSort }
func (c TransformCommand) Type() CommandType { return TypeTransform }
func (c ExpandCommand) Type() CommandType    { return TypeExpand }
func (c RefineCommand) Type() CommandType    { return TypeRefine }
func (c ThemeCommand) Type() CommandType     { return TypeTheme }

func (c FilterCommand) Action() Action    { return c.Op }
func (c SortCommand) Action() Action      { return c.Op }
func (c TransformCommand) Action() Action { return c.Op }
func (c ExpandCommand) Action() Action    { return c.Op }
func (c RefineCommand) Action() Action    { return c.Op }
func (c ThemeCommand) Action() Action     { return c.Op }

func (FilterCommand) isEditCommand()    {}
func (SortCommand) isEditCommand()      {}
func (TransformCommand) isEditCommand() {}
func (ExpandCommand) isEditCommand()    {}
func (RefineCommand) isEditCommand()    {}
func (ThemeCommand) isEditCommand()     {}

// RawCommand is the untyped command shape returned by the classifier's completion call.
type RawCommand struct {
	Type       string         `json:"type"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// ParseCommand validates raw against the command taxonomy and builds the typed command.
//
// Absent parameters take their documented defaults; present but malformed ones fail with [ErrInvalidParameter].
func ParseCommand(raw RawCommand) (EditCommand, error) {
	t := CommandType(strings.ToLower(strings.TrimSpace(raw.Type)))
	if !KnownType(t) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommandType, raw.Type)
	}

	a := Action(strings.ToLower(strings.TrimSpace(raw.Action)))
	if !ValidAction(t, a) {
		return nil, fmt.Errorf("%w: %q is not a %s action", ErrUnknownAction, raw.Action, t)
	}

	p := params{action: a, values: raw.Parameters}
	switch t {
	case TypeFilter:
		return parseFilter(a, p)
	case TypeSort:
		return parseSort(a, p)
	case TypeTransform:
		return parseTransform(a, p)
	case TypeExpand:
		return parseExpand(a, p)
	case TypeRefine:
		return RefineCommand{Op: a}, nil
	case TypeTheme:
		return parseTheme(a, p)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommandType, raw.Type)
}

// Validate checks a command built outside [ParseCommand] against the taxonomy.
func Validate(cmd EditCommand) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrUnknownCommandType)
	}
	if !KnownType(cmd.Type()) {
		return fmt.Errorf("%w: %q", ErrUnknownCommandType, cmd.Type())
	}
	if !ValidAction(cmd.Type(), cmd.Action()) {
		return fmt.Errorf("%w: %q is not a %s action", ErrUnknownAction, cmd.Action(), cmd.Type())
	}
	return nil
}

func parseFilter(a Action, p params) (EditCommand, error) {
	cmd := FilterCommand{Op: a}

	switch a {
	case ActionRemoveShortTracks:
		ms, ok, err := p.durationMS("min_duration", "min_duration_seconds")
		if err != nil {
			return nil, err
		}
		if !ok {
			ms = DefaultMinDurationSeconds * 1000
		}
		cmd.MinDurationMS = ms
	case ActionRemoveByYear:
		after, hasAfter, err := p.year("after_year")
		if err != nil {
			return nil, err
		}
		before, hasBefore, err := p.year("before_year")
		if err != nil {
			return nil, err
		}
		if !hasAfter && !hasBefore {
			return nil, p.invalid("after_year", nil, "after_year or before_year is required")
		}
		if hasAfter && hasBefore && after > before {
			return nil, p.invalid("after_year", after, fmt.Sprintf("must not be later than before_year %d", before))
		}
		cmd.AfterYear, cmd.BeforeYear = after, before
	case ActionRemoveByGenre:
		genres, _, err := p.list("exclude_genres", "genres")
		if err != nil {
			return nil, err
		}
		if len(genres) == 0 {
			return nil, p.invalid("exclude_genres", nil, "at least one genre is required")
		}
		cmd.ExcludeGenres = genres
	case ActionRemoveLowEnergy:
		threshold, ok, err := p.unit("min_energy")
		if err != nil {
			return nil, err
		}
		if !ok {
			threshold = DefaultMinEnergy
		}
		cmd.MinEnergy = threshold
	}
	return cmd, nil
}

func parseSort(a Action, p params) (EditCommand, error) {
	// bpm and mood journeys climb; energy and year lead with the highest value.
	asc := a == ActionSortByBPM || a == ActionMoodJourney
	if v, ok, err := p.flag("ascending"); err != nil {
		return nil, err
	} else if ok {
		asc = v
	}
	return SortCommand{Op: a, Ascending: asc}, nil
}

func parseTransform(a Action, p params) (EditCommand, error) {
	mood, _, err := p.text("mood", "target_mood")
	if err != nil {
		return nil, err
	}
	if mood == "" {
		return nil, p.invalid("mood", nil, "a target mood is required")
	}
	return TransformCommand{Op: a, Mood: strings.ToLower(mood)}, nil
}

func parseExpand(a Action, p params) (EditCommand, error) {
	size, ok, err := p.whole("target_size", "count")
	if err != nil {
		return nil, err
	}
	if ok && size <= 0 {
		return nil, p.invalid("target_size", size, "must be positive")
	}

	kind, _, err := p.text("expansion_type", "type")
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = DefaultExpansionType
	}
	return ExpandCommand{Op: a, TargetSize: size, ExpansionType: kind}, nil
}

func parseTheme(a Action, p params) (EditCommand, error) {
	theme, _, err := p.text("theme", "description")
	if err != nil {
		return nil, err
	}
	if theme == "" {
		return nil, p.invalid("theme", nil, "a theme description is required")
	}
	return ThemeCommand{Op: a, Theme: theme}, nil
}
