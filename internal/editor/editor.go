package editor

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// EditRequest is one natural-language edit of a track list.
type EditRequest struct {
	Tracks      []models.Track
	Command     string
	Preferences *models.UserPreferences
}

// Editor applies edit commands to track lists.
type Editor interface {
	// ProcessCommand classifies free text and applies the resulting command.
	ProcessCommand(ctx context.Context, req EditRequest) (*models.EditResult, EditCommand, error)

	// Apply runs an already-classified command.
	Apply(ctx context.Context, cmd EditCommand, tracks []models.Track, prefs *models.UserPreferences) (*models.EditResult, error)
}

// PlaylistEditor is the stateless [Editor]. It holds only its collaborators and is safe for concurrent use.
type PlaylistEditor struct {
	classifier  Classifier
	transformer *MoodTransformer
	expander    *Expander
	logger      *log.Logger
}

// EditorOpts configures a [PlaylistEditor]. Every field is optional.
type EditorOpts struct {
	Classifier  Classifier
	Catalog     CatalogSearch
	Suggester   Suggester
	Logger      *log.Logger
	SearchLimit int
	ExpandBy    int
}

// NewPlaylistEditor creates a [PlaylistEditor] from opts.
func NewPlaylistEditor(opts EditorOpts) *PlaylistEditor {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &PlaylistEditor{
		classifier:  opts.Classifier,
		transformer: NewMoodTransformer(opts.Suggester, opts.Logger),
		expander:    NewExpander(opts.Catalog, opts.SearchLimit, opts.ExpandBy, opts.Logger),
		logger:      opts.Logger,
	}
}

// ProcessCommand classifies req.Command and dispatches to the matching strategy.
//
// The classified command is returned alongside the result so callers can record it.
func (e *PlaylistEditor) ProcessCommand(ctx context.Context, req EditRequest) (*models.EditResult, EditCommand, error) {
	if e.classifier == nil {
		return nil, nil, fmt.Errorf("%w: no classifier configured", ErrClassification)
	}

	cmd, err := e.classifier.Classify(ctx, req.Command)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("classified command", "text", req.Command, "type", cmd.Type(), "action", cmd.Action())

	result, err := e.Apply(ctx, cmd, req.Tracks, req.Preferences)
	if err != nil {
		return nil, cmd, err
	}
	return result, cmd, nil
}

// Apply validates cmd and runs its strategy over a copy of tracks.
func (e *PlaylistEditor) Apply(ctx context.Context, cmd EditCommand, tracks []models.Track, prefs *models.UserPreferences) (*models.EditResult, error) {
	if err := Validate(cmd); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case FilterCommand:
		return Filter(tracks, c)
	case SortCommand:
		return Sort(tracks, c)
	case TransformCommand:
		return e.transformer.Transform(ctx, tracks, c, prefs)
	case ExpandCommand:
		return e.expander.Expand(ctx, tracks, c, prefs)
	case RefineCommand:
		return Refine(tracks, c, prefs)
	case ThemeCommand:
		return Theme(tracks, c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommandType, cmd)
	}
}

// Describe renders a command as "type/action" for logs and history.
func Describe(cmd EditCommand) string {
	if cmd == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s", cmd.Type(), cmd.Action())
}
