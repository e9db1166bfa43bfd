package editor

import (
	"fmt"
	"strings"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// Filter removes tracks failing the command's predicate. It never reorders or adds tracks.
func Filter(tracks []models.Track, cmd FilterCommand) (*models.EditResult, error) {
	var (
		kept    []models.Track
		removed int
		change  string
	)

	switch cmd.Op {
	case ActionRemoveShortTracks:
		kept, removed = keep(tracks, func(t models.Track) bool { return t.DurationMS >= cmd.MinDurationMS })
		change = fmt.Sprintf("Removed %d tracks shorter than %s", removed, shared.FormatDuration(cmd.MinDurationMS))
	case ActionRemoveByYear:
		kept, removed = keep(tracks, func(t models.Track) bool { return inYearWindow(t, cmd.AfterYear, cmd.BeforeYear) })
		change = fmt.Sprintf("Removed %d tracks released %s", removed, describeYearWindow(cmd.AfterYear, cmd.BeforeYear))
	case ActionRemoveByGenre:
		kept, removed = keep(tracks, func(t models.Track) bool { return !matchesAnyGenre(t, cmd.ExcludeGenres) })
		change = fmt.Sprintf("Removed %d tracks tagged %s", removed, strings.Join(cmd.ExcludeGenres, ", "))
	case ActionRemoveLowEnergy:
		kept, removed = keep(tracks, func(t models.Track) bool { return energyOf(t) >= cmd.MinEnergy })
		change = fmt.Sprintf("Removed %d tracks with energy below %.2f", removed, cmd.MinEnergy)
	default:
		return nil, fmt.Errorf("%w: %q is not a filter action", ErrUnknownAction, cmd.Op)
	}

	return newResult(kept, fmt.Sprintf("Applied %s filter to your playlist", cmd.Op), change), nil
}

// inYearWindow keeps tracks inside the inclusive [after, before] window; a zero bound is open.
// Tracks without a parsable release date are kept.
func inYearWindow(t models.Track, after, before int) bool {
	year := t.Year()
	if year == 0 {
		return true
	}
	if after > 0 && year < after {
		return false
	}
	if before > 0 && year > before {
		return false
	}
	return true
}

func describeYearWindow(after, before int) string {
	switch {
	case after > 0 && before > 0:
		return fmt.Sprintf("outside %d-%d", after, before)
	case after > 0:
		return fmt.Sprintf("before %d", after)
	default:
		return fmt.Sprintf("after %d", before)
	}
}

// matchesAnyGenre reports whether any of the track's genres contains any excluded entry, ignoring case.
func matchesAnyGenre(t models.Track, excluded []string) bool {
	for _, g := range t.Genres {
		for _, ex := range excluded {
			if shared.ContainsFold(g, ex) {
				return true
			}
		}
	}
	return false
}
