package editor

import (
	"fmt"

	"github.com/desertthunder/plx/internal/models"
)

// Refine applies the caller's preferences. Tracks whose name or artist contains a banned entry
// are removed first, then tracks credited to an avoided artist. Survivors keep their order.
func Refine(tracks []models.Track, cmd RefineCommand, prefs *models.UserPreferences) (*models.EditResult, error) {
	if cmd.Op != ActionApplyPreferences {
		return nil, fmt.Errorf("%w: %q is not a refine action", ErrUnknownAction, cmd.Op)
	}
	if prefs == nil {
		return newResult(copyTracks(tracks), "No preferences supplied; playlist unchanged"), nil
	}
	if len(prefs.BannedSongs) == 0 && len(prefs.AvoidedArtists) == 0 {
		return newResult(copyTracks(tracks), "No banned songs or avoided artists to apply; playlist unchanged"), nil
	}

	out := copyTracks(tracks)
	var changes []string

	if len(prefs.BannedSongs) > 0 {
		var removed int
		out, removed = keep(out, func(t models.Track) bool { return !isBanned(t, prefs.BannedSongs) })
		changes = append(changes, fmt.Sprintf("Removed %d banned tracks", removed))
	}
	if len(prefs.AvoidedArtists) > 0 {
		var removed int
		out, removed = keep(out, func(t models.Track) bool { return !byAvoidedArtist(t, prefs.AvoidedArtists) })
		changes = append(changes, fmt.Sprintf("Removed %d tracks by avoided artists", removed))
	}

	return newResult(out, "Applied your preferences to the playlist", changes...), nil
}
