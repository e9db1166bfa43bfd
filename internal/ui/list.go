package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d %s", i.playlist.TrackCount, shared.Pluralize(i.playlist.TrackCount, "track", "tracks"))
	if i.playlist.Theme != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Theme)
	} else if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name + " " + i.track.Artist }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.track.Artist, shared.FormatDuration(i.track.DurationMS))
	if i.track.Tempo != nil {
		desc += fmt.Sprintf(" • %.0f bpm", *i.track.Tempo)
	}
	if i.track.Energy != nil {
		desc += fmt.Sprintf(" • energy %.2f", *i.track.Energy)
	}
	return desc
}

func trackItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}
