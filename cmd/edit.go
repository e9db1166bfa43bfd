package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/plx/internal/editor"
	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

// editOutput is the JSON shape printed by `plx edit --json`.
type editOutput struct {
	*models.EditResult
	PlaylistID string `json:"playlistId"`
	Command    string `json:"command"`
}

// loadPreferences reads user preferences from a JSON file. An empty path means none.
func loadPreferences(path string) (*models.UserPreferences, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	var prefs models.UserPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("%w: preferences file %s: %v", shared.ErrInvalidInput, path, err)
	}
	return &prefs, nil
}

// parseParams turns repeated key=value flags into a parameter map.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: --param %q must be key=value", shared.ErrInvalidFlag, pair)
		}
		params[key] = strings.TrimSpace(value)
	}
	return params, nil
}

// Edit applies a free-text command, or a structured one given with --type and --action.
func (r *Runner) Edit(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("playlist")
	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	structured := cmd.String("type") != "" || cmd.String("action") != ""

	switch {
	case structured && text != "":
		return fmt.Errorf("%w: give either command text or --type/--action, not both", shared.ErrInvalidArgument)
	case !structured && text == "":
		return fmt.Errorf("%w: command text or --type/--action", shared.ErrMissingArgument)
	}

	prefs, err := loadPreferences(cmd.String("prefs"))
	if err != nil {
		return err
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	var outcome *tasks.EditOutcome
	if structured {
		params, err := parseParams(cmd.StringSlice("param"))
		if err != nil {
			return err
		}
		command, err := editor.ParseCommand(editor.RawCommand{
			Type:       cmd.String("type"),
			Action:     cmd.String("action"),
			Parameters: params,
		})
		if err != nil {
			return err
		}
		err = r.withSpinner(ctx, "Applying "+editor.Describe(command)+"...", func(ctx context.Context) error {
			var err error
			outcome, err = engine.ApplyCommand(ctx, nil, playlistID, command, prefs)
			return err
		})
		if err != nil {
			return err
		}
	} else {
		err = r.withSpinner(ctx, "Editing playlist...", func(ctx context.Context) error {
			var err error
			outcome, err = engine.Edit(ctx, nil, playlistID, text, prefs)
			return err
		})
		if err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(editOutput{
			EditResult: outcome.Result,
			PlaylistID: playlistID,
			Command:    editor.Describe(outcome.Command),
		}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s: %s", outcome.Playlist.Name(), editor.Describe(outcome.Command)))
	r.writePlain("%s", formatter.FormatEditResult(outcome.Result))
	return nil
}

// History prints a playlist's edits, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	records, err := engine.History(ctx, cmd.String("playlist"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		summaries := make([]models.EditSummary, len(records))
		for i, rec := range records {
			summaries[i] = rec.Summary()
		}
		return r.writeJSON(summaries, cmd.Bool("pretty"))
	}

	if len(records) == 0 {
		r.writePlain("No edits recorded\n")
		return nil
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"#", "When", "Command", "Action", "Tracks", "Explanation"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.Sequence(),
			rec.CreatedAt().Local().Format("2006-01-02 15:04"),
			rec.Command(),
			rec.CommandType() + "/" + rec.Action(),
			fmt.Sprintf("%d → %d", rec.TracksBefore(), rec.TracksAfter()),
			rec.Explanation(),
		})
	}
	t.Render()
	return nil
}
