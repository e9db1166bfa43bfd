package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

const playlistColumns = `id, sequence, catalog_id, name, description, theme, track_count, public, created_at, updated_at, deleted_at`

// PlaylistRepository implements models.Repository[*models.PersistedPlaylist].
//
// Handles playlist CRUD operations with soft delete support and catalog ID lookups.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	playlist.SetID(id)
	playlist.SetSequence(sequence)

	query := `
		INSERT INTO playlists (id, sequence, catalog_id, name, description, theme, track_count, public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		playlist.CatalogID(),
		playlist.Name(),
		playlist.Description(),
		playlist.Theme(),
		playlist.TrackCount(),
		playlist.Public(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`

	playlist, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return playlist, err
}

// GetByCatalogID retrieves the most recently imported playlist for a catalog playlist ID
func (r *PlaylistRepository) GetByCatalogID(catalogID string) (*models.PersistedPlaylist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE catalog_id = ? AND catalog_id != '' AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	playlist, err := r.scan(r.db.QueryRow(query, catalogID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: catalog ID %s", shared.ErrPlaylistNotFound, catalogID)
	}
	return playlist, err
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE playlists
		SET name = ?, description = ?, theme = ?, track_count = ?, public = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.Name(),
		playlist.Description(),
		playlist.Theme(),
		playlist.TrackCount(),
		playlist.Public(),
		now,
		playlist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return requireRow(result, shared.ErrPlaylistNotFound, playlist.ID())
}

// SetTheme records the theme of a playlist without touching its other fields
func (r *PlaylistRepository) SetTheme(id, theme string) error {
	result, err := r.db.Exec(
		`UPDATE playlists SET theme = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		theme, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist theme: %w", err)
	}
	return requireRow(result, shared.ErrPlaylistNotFound, id)
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	return requireRow(result, shared.ErrPlaylistNotFound, id)
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists.
//
// Supported criteria: "catalog_id" (string) and "name" (string, case-insensitive substring).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	args := []any{}

	if catalogID, ok := criteria["catalog_id"].(string); ok && catalogID != "" {
		query += " AND catalog_id = ?"
		args = append(args, catalogID)
	}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name LIKE ? COLLATE NOCASE"
		args = append(args, "%"+name+"%")
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.PersistedPlaylist
	for rows.Next() {
		playlist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// scan reads one row into a [models.PersistedPlaylist]. [sql.ErrNoRows] is returned unwrapped.
func (r *PlaylistRepository) scan(row scanner) (*models.PersistedPlaylist, error) {
	var (
		id        string
		sequence  int
		dto       models.Playlist
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &dto.CatalogID, &dto.Name, &dto.Description, &dto.Theme,
		&dto.TrackCount, &dto.Public, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist := models.NewPersistedPlaylist(sequence, dto)
	playlist.SetID(id)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		playlist.SetDeletedAt(&deletedAt.Time)
	}

	return playlist, nil
}

// requireRow turns an update that touched nothing into a not-found error.
func requireRow(result sql.Result, notFound error, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
