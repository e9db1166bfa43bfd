package models

import "fmt"

// Playlist is basic playlist metadata, either from the catalog or from local storage.
type Playlist struct {
	ID          string `json:"id"`
	CatalogID   string `json:"catalogId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Theme       string `json:"theme,omitempty"`
	TrackCount  int    `json:"trackCount"`
	Public      bool   `json:"public"`
}

// PlaylistExport is a playlist with its complete, ordered track listing.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// PersistedPlaylist is a locally stored playlist that edits are applied to.
type PersistedPlaylist struct {
	base
	sequence    int
	catalogID   string
	name        string
	description string
	theme       string
	trackCount  int
	public      bool
}

// NewPersistedPlaylist creates a [PersistedPlaylist] from a [Playlist] DTO.
func NewPersistedPlaylist(sequence int, p Playlist) *PersistedPlaylist {
	return &PersistedPlaylist{
		base:        newBase(),
		sequence:    sequence,
		catalogID:   p.CatalogID,
		name:        p.Name,
		description: p.Description,
		theme:       p.Theme,
		trackCount:  p.TrackCount,
		public:      p.Public,
	}
}

func (p *PersistedPlaylist) Sequence() int           { return p.sequence }
func (p *PersistedPlaylist) CatalogID() string       { return p.catalogID }
func (p *PersistedPlaylist) Name() string            { return p.name }
func (p *PersistedPlaylist) Description() string     { return p.description }
func (p *PersistedPlaylist) Theme() string           { return p.theme }
func (p *PersistedPlaylist) TrackCount() int         { return p.trackCount }
func (p *PersistedPlaylist) Public() bool            { return p.public }
func (p *PersistedPlaylist) SetName(name string)     { p.name = name }
func (p *PersistedPlaylist) SetTheme(theme string)   { p.theme = theme }
func (p *PersistedPlaylist) SetTrackCount(n int)     { p.trackCount = n }
func (p *PersistedPlaylist) SetSequence(n int)       { p.sequence = n }
func (p *PersistedPlaylist) SetDescription(d string) { p.description = d }

// Validate checks that the playlist has a name and a non-negative track count.
func (p *PersistedPlaylist) Validate() error {
	if p.name == "" {
		return fmt.Errorf("playlist name is required")
	}
	if p.trackCount < 0 {
		return fmt.Errorf("track count cannot be negative")
	}
	return nil
}

// DTO converts the persisted playlist back into a [Playlist].
func (p *PersistedPlaylist) DTO() Playlist {
	return Playlist{
		ID:          p.id,
		CatalogID:   p.catalogID,
		Name:        p.name,
		Description: p.description,
		Theme:       p.theme,
		TrackCount:  p.trackCount,
		Public:      p.public,
	}
}

// BPMRange is an inclusive tempo window in beats per minute.
type BPMRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether tempo falls inside the range. A zero bound is open.
func (r BPMRange) Contains(tempo float64) bool {
	if r.Min > 0 && tempo < r.Min {
		return false
	}
	if r.Max > 0 && tempo > r.Max {
		return false
	}
	return true
}

// UserPreferences are caller-supplied listening preferences, read-only to the editor.
type UserPreferences struct {
	FavoriteArtists []string  `json:"favoriteArtists,omitempty"`
	AvoidedArtists  []string  `json:"avoidedArtists,omitempty"`
	BannedSongs     []string  `json:"bannedSongs,omitempty"`
	PreferredBPM    *BPMRange `json:"preferredBpmRange,omitempty"`
	PreferredGenres []string  `json:"preferredGenres,omitempty"`
}

// Suggestion is a proposed replacement for a track that does not fit a requested mood.
type Suggestion struct {
	ReplaceTrackID string `json:"replaceTrackId,omitempty"`
	Name           string `json:"name"`
	Artist         string `json:"artist"`
	Reason         string `json:"reason,omitempty"`
}

// EditResult is the outcome of applying one edit command to a track list.
type EditResult struct {
	Tracks      []Track      `json:"tracks"`
	Explanation string       `json:"explanation"`
	Changes     []string     `json:"changes"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Theme       string       `json:"theme,omitempty"`
}
