package tasks

import (
	"fmt"

	"github.com/desertthunder/plx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadPlaylist Phase = iota
	EditTracks
	PersistTracks
	RecordEdit
	ImportPlaylist
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case LoadPlaylist:
		return "load_playlist"
	case EditTracks:
		return "edit_tracks"
	case PersistTracks:
		return "persist_tracks"
	case RecordEdit:
		return "record_edit"
	case ImportPlaylist:
		return "import_playlist"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

// The edit pipeline has a fixed number of steps.
const editSteps = 4

func loadPlaylistUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadPlaylist,
		Step:    1,
		Total:   editSteps,
		Message: fmt.Sprintf("Loading playlist %s...", playlistID),
	}
}

func editTracksUpdate(pl *models.PersistedPlaylist, tracks int, what string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EditTracks,
		Step:    2,
		Total:   editSteps,
		Message: fmt.Sprintf("%s (%s, %d tracks)...", what, pl.Name(), tracks),
		Data:    pl.DTO(),
	}
}

func persistTracksUpdate(result *models.EditResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistTracks,
		Step:    3,
		Total:   editSteps,
		Message: fmt.Sprintf("Saving %d tracks...", len(result.Tracks)),
		Data:    result,
	}
}

func recordEditUpdate(what string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordEdit,
		Step:    4,
		Total:   editSteps,
		Message: fmt.Sprintf("Recording %s in history...", what),
	}
}

func importStartedUpdate(step, total int, catalogID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Importing %s...", step, total, catalogID),
	}
}

func importCompletedUpdate(step, total int, res ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, res.Name, res.Tracks),
		Data:    res,
	}
}

func importFailedUpdate(step, total int, res ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.CatalogID, res.Error),
		Data:    res,
	}
}

func exportingPlaylistUpdate(step, total int, playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting %s...", step, total, playlistID),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
