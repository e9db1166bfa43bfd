package ui

import (
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/tasks"
)

type playlistsFetchedMsg struct {
	playlists []*models.PersistedPlaylist
	err       error
}

type tracksFetchedMsg struct {
	playlist *models.PersistedPlaylist
	tracks   []models.Track
	err      error
}

type progressUpdateMsg tasks.ProgressUpdate

type editCompleteMsg struct {
	outcome *tasks.EditOutcome
	err     error
}
