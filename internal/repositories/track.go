package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

const trackColumns = `id, playlist_id, position, catalog_id, name, artist, album, duration_ms, isrc,
	energy, danceability, acousticness, instrumentalness, liveness, speechiness, valence, tempo, loudness,
	popularity, release_date, genres`

// TrackRepository stores the ordered track listing of each playlist.
//
// Live positions within a playlist are always 0..n-1; removals and [TrackRepository.ReplaceTracks]
// renumber the remaining rows.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// execer is satisfied by both [sql.DB] and [sql.Tx].
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// ListForPlaylist returns the live tracks of a playlist ordered by position.
func (r *TrackRepository) ListForPlaylist(playlistID string) ([]models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM playlist_tracks
		WHERE playlist_id = ? AND deleted_at IS NULL
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		track, _, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Get retrieves a live track by ID along with the playlist it belongs to.
func (r *TrackRepository) Get(id string) (models.Track, string, error) {
	query := `SELECT ` + trackColumns + ` FROM playlist_tracks WHERE id = ? AND deleted_at IS NULL`

	track, playlistID, err := scanTrack(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Track{}, "", fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return track, playlistID, err
}

// Append adds a track at the end of a playlist, assigning its ID and position.
func (r *TrackRepository) Append(playlistID string, track *models.Track) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := playlistExists(tx, playlistID); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ? AND deleted_at IS NULL`, playlistID,
	).Scan(&count); err != nil {
		return fmt.Errorf("failed to count tracks: %w", err)
	}

	track.ID = shared.GenerateID()
	track.Position = count
	if err := insertTrack(tx, playlistID, *track, time.Now()); err != nil {
		return err
	}
	if err := setTrackCount(tx, playlistID, count+1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update overwrites a track's metadata and audio attributes. Position is not changed.
func (r *TrackRepository) Update(track models.Track) error {
	if track.Name == "" {
		return fmt.Errorf("validation failed: track name is required")
	}

	genres, err := encodeGenres(track.Genres)
	if err != nil {
		return err
	}

	query := `
		UPDATE playlist_tracks
		SET catalog_id = ?, name = ?, artist = ?, album = ?, duration_ms = ?, isrc = ?,
			energy = ?, danceability = ?, acousticness = ?, instrumentalness = ?, liveness = ?,
			speechiness = ?, valence = ?, tempo = ?, loudness = ?, popularity = ?,
			release_date = ?, genres = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.CatalogID, track.Name, track.Artist, track.Album, track.DurationMS, track.ISRC,
		nullFloat(track.Energy), nullFloat(track.Danceability), nullFloat(track.Acousticness),
		nullFloat(track.Instrumentalness), nullFloat(track.Liveness), nullFloat(track.Speechiness),
		nullFloat(track.Valence), nullFloat(track.Tempo), nullFloat(track.Loudness), nullInt(track.Popularity),
		track.ReleaseDate, genres, time.Now(),
		track.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	return requireRow(result, shared.ErrTrackNotFound, track.ID)
}

// Remove soft-deletes a track and closes the gap it leaves in the playlist's positions.
func (r *TrackRepository) Remove(playlistID, trackID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRow(
		`SELECT position FROM playlist_tracks WHERE id = ? AND playlist_id = ? AND deleted_at IS NULL`,
		trackID, playlistID,
	).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	if err != nil {
		return fmt.Errorf("failed to find track: %w", err)
	}

	now := time.Now()
	if _, err := tx.Exec(`UPDATE playlist_tracks SET deleted_at = ? WHERE id = ?`, now, trackID); err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE playlist_tracks
		SET position = position - 1, updated_at = ?
		WHERE playlist_id = ? AND position > ? AND deleted_at IS NULL
	`, now, playlistID, position); err != nil {
		return fmt.Errorf("failed to renumber tracks: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE playlists SET track_count = MAX(track_count - 1, 0), updated_at = ? WHERE id = ?
	`, now, playlistID); err != nil {
		return fmt.Errorf("failed to update track count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceTracks persists an edited listing as the playlist's new track order.
//
// Tracks whose ID matches a live row keep that row and take their new position; tracks without a
// known ID are inserted; live rows absent from tracks are soft-deleted. The playlist's track count is
// updated in the same transaction. The returned slice carries the stored IDs and positions.
func (r *TrackRepository) ReplaceTracks(playlistID string, tracks []models.Track) ([]models.Track, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := playlistExists(tx, playlistID); err != nil {
		return nil, err
	}

	live, err := liveTrackIDs(tx, playlistID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stored := make([]models.Track, len(tracks))
	kept := make(map[string]bool, len(tracks))

	for i, track := range tracks {
		track = track.Clone()
		track.Position = i

		if live[track.ID] && !kept[track.ID] {
			kept[track.ID] = true
			if _, err := tx.Exec(
				`UPDATE playlist_tracks SET position = ?, updated_at = ? WHERE id = ?`, i, now, track.ID,
			); err != nil {
				return nil, fmt.Errorf("failed to reposition track %s: %w", track.ID, err)
			}
		} else {
			track.ID = shared.GenerateID()
			if err := insertTrack(tx, playlistID, track, now); err != nil {
				return nil, err
			}
		}
		stored[i] = track
	}

	for id := range live {
		if kept[id] {
			continue
		}
		if _, err := tx.Exec(`UPDATE playlist_tracks SET deleted_at = ? WHERE id = ?`, now, id); err != nil {
			return nil, fmt.Errorf("failed to delete track %s: %w", id, err)
		}
	}

	if err := setTrackCount(tx, playlistID, len(stored)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stored, nil
}

func playlistExists(q execer, playlistID string) error {
	var exists int
	err := q.QueryRow(`SELECT 1 FROM playlists WHERE id = ? AND deleted_at IS NULL`, playlistID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up playlist: %w", err)
	}
	return nil
}

func liveTrackIDs(tx *sql.Tx, playlistID string) (map[string]bool, error) {
	rows, err := tx.Query(`SELECT id FROM playlist_tracks WHERE playlist_id = ? AND deleted_at IS NULL`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func setTrackCount(q execer, playlistID string, count int) error {
	if _, err := q.Exec(
		`UPDATE playlists SET track_count = ?, updated_at = ? WHERE id = ?`, count, time.Now(), playlistID,
	); err != nil {
		return fmt.Errorf("failed to update track count: %w", err)
	}
	return nil
}

func insertTrack(q execer, playlistID string, track models.Track, now time.Time) error {
	if track.Name == "" {
		return fmt.Errorf("validation failed: track name is required")
	}

	genres, err := encodeGenres(track.Genres)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO playlist_tracks (
			id, playlist_id, position, catalog_id, name, artist, album, duration_ms, isrc,
			energy, danceability, acousticness, instrumentalness, liveness, speechiness, valence, tempo, loudness,
			popularity, release_date, genres, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.Exec(query,
		track.ID, playlistID, track.Position, track.CatalogID, track.Name, track.Artist, track.Album,
		track.DurationMS, track.ISRC,
		nullFloat(track.Energy), nullFloat(track.Danceability), nullFloat(track.Acousticness),
		nullFloat(track.Instrumentalness), nullFloat(track.Liveness), nullFloat(track.Speechiness),
		nullFloat(track.Valence), nullFloat(track.Tempo), nullFloat(track.Loudness), nullInt(track.Popularity),
		track.ReleaseDate, genres, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}
	return nil
}

// scanTrack reads one row into a [models.Track] and returns the owning playlist ID.
// [sql.ErrNoRows] is returned unwrapped.
func scanTrack(row scanner) (models.Track, string, error) {
	var (
		t          models.Track
		playlistID string
		energy     sql.NullFloat64
		dance      sql.NullFloat64
		acoustic   sql.NullFloat64
		instrument sql.NullFloat64
		live       sql.NullFloat64
		speech     sql.NullFloat64
		valence    sql.NullFloat64
		tempo      sql.NullFloat64
		loudness   sql.NullFloat64
		popularity sql.NullInt64
		genres     string
	)

	err := row.Scan(&t.ID, &playlistID, &t.Position, &t.CatalogID, &t.Name, &t.Artist, &t.Album,
		&t.DurationMS, &t.ISRC,
		&energy, &dance, &acoustic, &instrument, &live, &speech, &valence, &tempo, &loudness,
		&popularity, &t.ReleaseDate, &genres)
	if errors.Is(err, sql.ErrNoRows) {
		return t, "", err
	}
	if err != nil {
		return t, "", fmt.Errorf("failed to scan track: %w", err)
	}

	t.Energy = floatPtr(energy)
	t.Danceability = floatPtr(dance)
	t.Acousticness = floatPtr(acoustic)
	t.Instrumentalness = floatPtr(instrument)
	t.Liveness = floatPtr(live)
	t.Speechiness = floatPtr(speech)
	t.Valence = floatPtr(valence)
	t.Tempo = floatPtr(tempo)
	t.Loudness = floatPtr(loudness)
	if popularity.Valid {
		t.Popularity = models.Int(int(popularity.Int64))
	}

	if genres != "" && genres != "[]" {
		if err := json.Unmarshal([]byte(genres), &t.Genres); err != nil {
			return t, "", fmt.Errorf("failed to decode genres for track %s: %w", t.ID, err)
		}
	}

	return t, playlistID, nil
}

func encodeGenres(genres []string) (string, error) {
	if len(genres) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(genres)
	if err != nil {
		return "", fmt.Errorf("failed to encode genres: %w", err)
	}
	return string(b), nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return models.Float(n.Float64)
}
