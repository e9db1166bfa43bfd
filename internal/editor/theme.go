package editor

import (
	"fmt"

	"github.com/desertthunder/plx/internal/models"
)

// Theme records the requested theme on the result. The tracks are returned unchanged.
func Theme(tracks []models.Track, cmd ThemeCommand) (*models.EditResult, error) {
	if cmd.Op != ActionApplyTheme {
		return nil, fmt.Errorf("%w: %q is not a theme action", ErrUnknownAction, cmd.Op)
	}

	result := newResult(copyTracks(tracks),
		fmt.Sprintf("Theme %q recorded; no tracks were changed", cmd.Theme),
		fmt.Sprintf("Recorded theme %q", cmd.Theme),
	)
	result.Theme = cmd.Theme
	return result, nil
}
