package models

import (
	"fmt"
	"time"
)

// EditRecord is one applied edit in a playlist's history.
type EditRecord struct {
	base
	sequence     int
	playlistID   string
	command      string
	commandType  string
	action       string
	explanation  string
	changes      []string
	tracksBefore int
	tracksAfter  int
}

// NewEditRecord creates an [EditRecord] describing the result of applying command to a playlist.
func NewEditRecord(playlistID, command, commandType, action string, before int, result *EditResult) *EditRecord {
	r := &EditRecord{
		base:         newBase(),
		playlistID:   playlistID,
		command:      command,
		commandType:  commandType,
		action:       action,
		tracksBefore: before,
	}
	if result != nil {
		r.explanation = result.Explanation
		r.changes = append([]string{}, result.Changes...)
		r.tracksAfter = len(result.Tracks)
	}
	return r
}

// RestoreEditRecord rebuilds an [EditRecord] from stored columns.
func RestoreEditRecord(sequence int, playlistID, command, commandType, action, explanation string, changes []string, before, after int) *EditRecord {
	return &EditRecord{
		base:         newBase(),
		sequence:     sequence,
		playlistID:   playlistID,
		command:      command,
		commandType:  commandType,
		action:       action,
		explanation:  explanation,
		changes:      changes,
		tracksBefore: before,
		tracksAfter:  after,
	}
}

func (r *EditRecord) Sequence() int       { return r.sequence }
func (r *EditRecord) PlaylistID() string  { return r.playlistID }
func (r *EditRecord) Command() string     { return r.command }
func (r *EditRecord) CommandType() string { return r.commandType }
func (r *EditRecord) Action() string      { return r.action }
func (r *EditRecord) Explanation() string { return r.explanation }
func (r *EditRecord) Changes() []string   { return r.changes }
func (r *EditRecord) TracksBefore() int   { return r.tracksBefore }
func (r *EditRecord) TracksAfter() int    { return r.tracksAfter }
func (r *EditRecord) SetSequence(n int)   { r.sequence = n }

// Validate checks that the record references a playlist and carries an explanation.
func (r *EditRecord) Validate() error {
	if r.playlistID == "" {
		return fmt.Errorf("playlist ID is required")
	}
	if r.commandType == "" {
		return fmt.Errorf("command type is required")
	}
	if r.explanation == "" {
		return fmt.Errorf("explanation is required")
	}
	return nil
}

// EditSummary is the JSON view of an [EditRecord].
type EditSummary struct {
	ID           string    `json:"id"`
	PlaylistID   string    `json:"playlistId"`
	Command      string    `json:"command"`
	Type         string    `json:"type"`
	Action       string    `json:"action"`
	Explanation  string    `json:"explanation"`
	Changes      []string  `json:"changes"`
	TracksBefore int       `json:"tracksBefore"`
	TracksAfter  int       `json:"tracksAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary converts the record into its JSON view.
func (r *EditRecord) Summary() EditSummary {
	changes := r.changes
	if changes == nil {
		changes = []string{}
	}
	return EditSummary{
		ID:           r.id,
		PlaylistID:   r.playlistID,
		Command:      r.command,
		Type:         r.commandType,
		Action:       r.action,
		Explanation:  r.explanation,
		Changes:      changes,
		TracksBefore: r.tracksBefore,
		TracksAfter:  r.tracksAfter,
		CreatedAt:    r.createdAt,
	}
}
