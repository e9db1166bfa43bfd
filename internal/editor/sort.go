package editor

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/desertthunder/plx/internal/models"
)

// Sort permutes the track order. The output always holds exactly the input tracks.
//
// Sorts are stable, so tracks with equal keys keep their relative order and sorting
// already-sorted input is a no-op.
func Sort(tracks []models.Track, cmd SortCommand) (*models.EditResult, error) {
	var (
		out    []models.Track
		change string
	)

	switch cmd.Op {
	case ActionSortByBPM:
		out = sortBy(tracks, tempoOf, cmd.Ascending)
		change = fmt.Sprintf("Sorted %d tracks by tempo, %s", len(out), direction(cmd.Ascending, "slowest", "fastest"))
	case ActionSortByEnergy:
		out = sortBy(tracks, energyOf, cmd.Ascending)
		change = fmt.Sprintf("Sorted %d tracks by energy, %s", len(out), direction(cmd.Ascending, "calmest", "most energetic"))
	case ActionSortByYear:
		out = sortBy(tracks, func(t models.Track) float64 { return float64(t.Year()) }, cmd.Ascending)
		change = fmt.Sprintf("Sorted %d tracks by release year, %s", len(out), direction(cmd.Ascending, "oldest", "newest"))
	case ActionEnergyCurve:
		var chill, energetic, mid int
		out, chill, energetic, mid = energyCurve(tracks)
		change = fmt.Sprintf("Arranged %d chill, %d energetic and %d mid-energy tracks into an energy curve", chill, energetic, mid)
	case ActionMoodJourney:
		out = sortBy(tracks, valenceOf, cmd.Ascending)
		change = fmt.Sprintf("Ordered %d tracks into a mood journey, %s", len(out), direction(cmd.Ascending, "darkest", "brightest"))
	default:
		return nil, fmt.Errorf("%w: %q is not a sort action", ErrUnknownAction, cmd.Op)
	}

	return newResult(out, fmt.Sprintf("Reordered playlist using %s", cmd.Op), change), nil
}

func sortBy(tracks []models.Track, key func(models.Track) float64, ascending bool) []models.Track {
	out := copyTracks(tracks)
	slices.SortStableFunc(out, func(a, b models.Track) int {
		if ascending {
			return cmp.Compare(key(a), key(b))
		}
		return cmp.Compare(key(b), key(a))
	})
	return out
}

// energyCurve partitions tracks into chill, energetic and mid bands (each keeping input order)
// and returns chill[:n/3] + energetic + mid + chill[n/3:], where n is the number of chill tracks.
func energyCurve(tracks []models.Track) (out []models.Track, chill, energetic, mid int) {
	var lows, highs, mids []models.Track
	for _, t := range tracks {
		switch e := energyOf(t); {
		case e < ChillBelow:
			lows = append(lows, t.Clone())
		case e > EnergeticAbove:
			highs = append(highs, t.Clone())
		default:
			mids = append(mids, t.Clone())
		}
	}

	split := len(lows) / 3
	out = make([]models.Track, 0, len(tracks))
	out = append(out, lows[:split]...)
	out = append(out, highs...)
	out = append(out, mids...)
	out = append(out, lows[split:]...)
	return out, len(lows), len(highs), len(mids)
}

func direction(ascending bool, low, high string) string {
	if ascending {
		return low + " first"
	}
	return high + " first"
}
