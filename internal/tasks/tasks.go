package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/editor"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
)

// PlaylistStore is the playlist half of the track store.
type PlaylistStore interface {
	Create(playlist *models.PersistedPlaylist) error
	Get(id string) (*models.PersistedPlaylist, error)
	GetByCatalogID(catalogID string) (*models.PersistedPlaylist, error)
	SetTheme(id, theme string) error
	List(criteria map[string]any) ([]*models.PersistedPlaylist, error)
	Delete(id string) error
}

// TrackStore holds the ordered tracks of each playlist.
type TrackStore interface {
	ListForPlaylist(playlistID string) ([]models.Track, error)
	ReplaceTracks(playlistID string, tracks []models.Track) ([]models.Track, error)
}

// EditHistory records applied edits.
type EditHistory interface {
	Create(record *models.EditRecord) error
	ListForPlaylist(playlistID string, limit int) ([]*models.EditRecord, error)
}

// EditOutcome is the persisted result of one edit.
type EditOutcome struct {
	Playlist *models.PersistedPlaylist
	Command  editor.EditCommand
	Result   *models.EditResult
	Record   *models.EditRecord // nil when the history write failed
}

// EditEngine loads a playlist's tracks, runs an edit over them and persists the result.
//
// At most one edit runs per playlist at a time; a second concurrent edit of the same playlist
// fails with [shared.ErrEditInProgress] instead of racing on a stale track list.
type EditEngine struct {
	editor    editor.Editor
	playlists PlaylistStore
	tracks    TrackStore
	edits     EditHistory
	catalog   services.Catalog
	logger    *log.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// EngineOpts configures an [EditEngine]. Catalog may be nil, which disables imports.
type EngineOpts struct {
	Editor    editor.Editor
	Playlists PlaylistStore
	Tracks    TrackStore
	Edits     EditHistory
	Catalog   services.Catalog
	Logger    *log.Logger
}

// NewEditEngine creates an [EditEngine] from opts.
func NewEditEngine(opts EngineOpts) *EditEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &EditEngine{
		editor:    opts.Editor,
		playlists: opts.Playlists,
		tracks:    opts.Tracks,
		edits:     opts.Edits,
		catalog:   opts.Catalog,
		logger:    opts.Logger,
		inFlight:  make(map[string]struct{}),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *EditEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// acquire marks playlistID as being edited. The returned func releases it.
func (e *EditEngine) acquire(playlistID string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.inFlight[playlistID]; busy {
		return nil, fmt.Errorf("%w: %s", shared.ErrEditInProgress, playlistID)
	}
	e.inFlight[playlistID] = struct{}{}

	return func() {
		e.mu.Lock()
		delete(e.inFlight, playlistID)
		e.mu.Unlock()
	}, nil
}

// editFunc runs one edit over the loaded tracks.
type editFunc func(ctx context.Context, tracks []models.Track) (*models.EditResult, editor.EditCommand, error)

// Edit classifies a free-text command, applies it to the playlist's stored tracks and persists the result.
func (e *EditEngine) Edit(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	playlistID, command string,
	prefs *models.UserPreferences,
) (*EditOutcome, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("%w: command is required", shared.ErrInvalidInput)
	}

	return e.run(ctx, progress, playlistID, command, "Interpreting command",
		func(ctx context.Context, tracks []models.Track) (*models.EditResult, editor.EditCommand, error) {
			return e.editor.ProcessCommand(ctx, editor.EditRequest{Tracks: tracks, Command: command, Preferences: prefs})
		})
}

// ApplyCommand applies an already-structured command, bypassing classification.
func (e *EditEngine) ApplyCommand(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	playlistID string,
	cmd editor.EditCommand,
	prefs *models.UserPreferences,
) (*EditOutcome, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: command is required", shared.ErrInvalidInput)
	}

	what := editor.Describe(cmd)
	return e.run(ctx, progress, playlistID, what, "Applying "+what,
		func(ctx context.Context, tracks []models.Track) (*models.EditResult, editor.EditCommand, error) {
			result, err := e.editor.Apply(ctx, cmd, tracks, prefs)
			return result, cmd, err
		})
}

func (e *EditEngine) run(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	playlistID, commandText, label string,
	edit editFunc,
) (*EditOutcome, error) {
	if e.editor == nil {
		return nil, fmt.Errorf("%w: editor not initialized", shared.ErrServiceUnavailable)
	}

	release, err := e.acquire(playlistID)
	if err != nil {
		return nil, err
	}
	defer release()

	logger := shared.WithLogger(e.logger, "playlist", playlistID)

	e.sendProgress(progress, loadPlaylistUpdate(playlistID))
	playlist, err := e.playlists.Get(playlistID)
	if err != nil {
		return nil, err
	}
	before, err := e.tracks.ListForPlaylist(playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	e.sendProgress(progress, editTracksUpdate(playlist, len(before), label))
	result, cmd, err := edit(ctx, before)
	if err != nil {
		logger.Warn("edit failed", "command", commandText, "err", err)
		return nil, err
	}

	e.sendProgress(progress, persistTracksUpdate(result))
	stored, err := e.tracks.ReplaceTracks(playlistID, result.Tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to save edited tracks: %w", err)
	}
	result.Tracks = stored
	playlist.SetTrackCount(len(stored))

	if result.Theme != "" {
		if err := e.playlists.SetTheme(playlistID, result.Theme); err != nil {
			return nil, fmt.Errorf("failed to save theme: %w", err)
		}
		playlist.SetTheme(result.Theme)
	}

	what := editor.Describe(cmd)
	e.sendProgress(progress, recordEditUpdate(what))

	outcome := &EditOutcome{Playlist: playlist, Command: cmd, Result: result}
	if e.edits != nil {
		record := models.NewEditRecord(playlistID, commandText, string(cmd.Type()), string(cmd.Action()), len(before), result)
		if err := e.edits.Create(record); err != nil {
			logger.Warn("failed to record edit", "command", what, "err", err)
		} else {
			outcome.Record = record
		}
	}

	logger.Info("edit applied", "command", what, "before", len(before), "after", len(stored), "changes", len(result.Changes))
	return outcome, nil
}

// Playlist returns stored playlist metadata.
func (e *EditEngine) Playlist(ctx context.Context, playlistID string) (*models.PersistedPlaylist, error) {
	return e.playlists.Get(playlistID)
}

// Playlists lists stored playlists, optionally filtered by a name substring.
func (e *EditEngine) Playlists(ctx context.Context, name string) ([]*models.PersistedPlaylist, error) {
	return e.playlists.List(map[string]any{"name": name})
}

// Tracks returns a stored playlist's tracks in order.
func (e *EditEngine) Tracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if _, err := e.playlists.Get(playlistID); err != nil {
		return nil, err
	}
	return e.tracks.ListForPlaylist(playlistID)
}

// Export returns a stored playlist with its tracks.
func (e *EditEngine) Export(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := e.playlists.Get(playlistID)
	if err != nil {
		return nil, err
	}
	tracks, err := e.tracks.ListForPlaylist(playlistID)
	if err != nil {
		return nil, err
	}
	return &models.PlaylistExport{Playlist: playlist.DTO(), Tracks: tracks}, nil
}

// History returns a playlist's edits, newest first. A limit of zero or less returns all of them.
func (e *EditEngine) History(ctx context.Context, playlistID string, limit int) ([]*models.EditRecord, error) {
	if _, err := e.playlists.Get(playlistID); err != nil {
		return nil, err
	}
	if e.edits == nil {
		return []*models.EditRecord{}, nil
	}
	return e.edits.ListForPlaylist(playlistID, limit)
}

// Import copies a catalog playlist and its tracks into the store as a new local playlist.
func (e *EditEngine) Import(ctx context.Context, catalogID string) (*models.PersistedPlaylist, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}

	export, err := e.catalog.ExportPlaylist(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	dto := export.Playlist
	if dto.CatalogID == "" {
		dto.CatalogID = catalogID
	}
	dto.TrackCount = len(export.Tracks)

	playlist := models.NewPersistedPlaylist(0, dto)
	if err := e.playlists.Create(playlist); err != nil {
		return nil, fmt.Errorf("failed to save playlist: %w", err)
	}

	tracks := make([]models.Track, len(export.Tracks))
	for i, t := range export.Tracks {
		t.ID = ""
		tracks[i] = t
	}
	if _, err := e.tracks.ReplaceTracks(playlist.ID(), tracks); err != nil {
		if derr := e.playlists.Delete(playlist.ID()); derr != nil {
			e.logger.Warn("failed to remove partially imported playlist", "id", playlist.ID(), "error", derr)
		}
		return nil, fmt.Errorf("failed to save tracks: %w", err)
	}

	e.logger.Info("imported playlist", "catalog_id", catalogID, "id", playlist.ID(), "tracks", len(tracks))
	return playlist, nil
}
