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

var ErrEditNotFound = errors.New("edit not found")

const editColumns = `id, sequence, playlist_id, command, command_type, action, explanation, changes,
	tracks_before, tracks_after, created_at`

// EditRepository persists the history of applied edit commands.
//
// History is append-only; there is no Update.
type EditRepository struct {
	db *sql.DB
}

// NewEditRepository creates a new EditRepository with the given database connection
func NewEditRepository(db *sql.DB) *EditRepository {
	return &EditRepository{db: db}
}

// Create inserts a new edit record with generated ID and sequence
func (r *EditRepository) Create(record *models.EditRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "edits")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	changes, err := json.Marshal(nonNil(record.Changes()))
	if err != nil {
		return fmt.Errorf("failed to encode changes: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)
	record.SetSequence(sequence)

	query := `
		INSERT INTO edits (
			id, sequence, playlist_id, command, command_type, action, explanation, changes,
			tracks_before, tracks_after, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		record.PlaylistID(),
		record.Command(),
		record.CommandType(),
		record.Action(),
		record.Explanation(),
		string(changes),
		record.TracksBefore(),
		record.TracksAfter(),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert edit: %w", err)
	}

	return nil
}

// Get retrieves an edit record by ID
func (r *EditRepository) Get(id string) (*models.EditRecord, error) {
	query := `SELECT ` + editColumns + ` FROM edits WHERE id = ? AND deleted_at IS NULL`

	record, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEditNotFound, id)
	}
	return record, err
}

// ListForPlaylist returns a playlist's edits, newest first. A limit of zero or less returns all.
func (r *EditRepository) ListForPlaylist(playlistID string, limit int) ([]*models.EditRecord, error) {
	criteria := map[string]any{"playlist_id": playlistID}
	if limit > 0 {
		criteria["limit"] = limit
	}
	return r.List(criteria)
}

// List retrieves edits matching the given criteria, newest first.
//
// Supported criteria: "playlist_id" (string), "command_type" (string) and "limit" (int).
func (r *EditRepository) List(criteria map[string]any) ([]*models.EditRecord, error) {
	query := `SELECT ` + editColumns + ` FROM edits WHERE deleted_at IS NULL`
	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if commandType, ok := criteria["command_type"].(string); ok && commandType != "" {
		query += " AND command_type = ?"
		args = append(args, commandType)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edits: %w", err)
	}
	defer rows.Close()

	records := []*models.EditRecord{}
	for rows.Next() {
		record, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Delete soft-deletes an edit record by ID
func (r *EditRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE edits SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete edit: %w", err)
	}
	return requireRow(result, ErrEditNotFound, id)
}

func (r *EditRepository) scan(row scanner) (*models.EditRecord, error) {
	var (
		id, playlistID, command     string
		commandType, action         string
		explanation, encodedChanges string
		sequence, before, after     int
		createdAt                   time.Time
	)

	err := row.Scan(&id, &sequence, &playlistID, &command, &commandType, &action, &explanation,
		&encodedChanges, &before, &after, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan edit: %w", err)
	}

	var changes []string
	if err := json.Unmarshal([]byte(encodedChanges), &changes); err != nil {
		return nil, fmt.Errorf("failed to decode changes for edit %s: %w", id, err)
	}

	record := models.RestoreEditRecord(sequence, playlistID, command, commandType, action, explanation, changes, before, after)
	record.SetID(id)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(createdAt)
	return record, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
