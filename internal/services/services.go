// package services implements the external collaborators of the editor: the music catalog
// and the text-completion oracle.
package services

import (
	"context"

	"github.com/desertthunder/plx/internal/models"
)

// Catalog is a music catalog that can be searched and that playlists can be imported from.
type Catalog interface {
	// Search finds tracks matching a free-text or field-filtered query.
	// Returned tracks carry catalog IDs but no store IDs.
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)

	// GetPlaylist retrieves playlist metadata by catalog ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist retrieves a playlist with all of its tracks, in order.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// Name returns the name of the catalog (e.g., "Spotify")
	Name() string
}

// Completer is a single-shot text completion oracle.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

var (
	_ Catalog   = (*SpotifyService)(nil)
	_ Completer = (*OpenAIService)(nil)
)
