package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// interactive reports whether output goes to a terminal, where spinners and prompts can render.
func (r *Runner) interactive() bool {
	f, ok := r.output.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// withSpinner runs action behind a spinner when attached to a terminal, and directly otherwise.
func (r *Runner) withSpinner(ctx context.Context, title string, action func(context.Context) error) error {
	if !r.interactive() {
		return action(ctx)
	}
	return spinner.New().Title(title).Context(ctx).ActionWithErr(action).Run()
}

func (r *Runner) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.output)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func (r *Runner) renderTracks(tracks []models.Track) {
	t := r.newTable()
	t.AppendHeader(table.Row{"#", "Title", "Artist", "Length", "BPM", "Energy", "Year"})
	for i, tr := range tracks {
		t.AppendRow(table.Row{
			i + 1,
			tr.Name,
			tr.Artist,
			shared.FormatDuration(tr.DurationMS),
			optional(tr.Tempo, "%.0f"),
			optional(tr.Energy, "%.2f"),
			orDash(tr.Year()),
		})
	}
	t.Render()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func orDash(year int) string {
	if year == 0 {
		return "-"
	}
	return fmt.Sprint(year)
}

// firstArg returns the first positional argument or a missing-argument error naming what.
func firstArg(cmd *cli.Command, what string) (string, error) {
	arg := strings.TrimSpace(cmd.Args().First())
	if arg == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, what)
	}
	return arg, nil
}

// PlaylistImport copies catalog playlists into the store.
func (r *Runner) PlaylistImport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one catalog playlist ID", shared.ErrMissingArgument)
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	if len(ids) == 1 {
		var playlist *models.PersistedPlaylist
		err := r.withSpinner(ctx, "Importing playlist...", func(ctx context.Context) error {
			var err error
			playlist, err = engine.Import(ctx, ids[0])
			return err
		})
		if err != nil {
			return err
		}
		r.writePlain("✓ Imported %q as %s (%d %s)\n",
			playlist.Name(), playlist.ID(), playlist.TrackCount(), shared.Pluralize(playlist.TrackCount(), "track", "tracks"))
		return nil
	}

	progress := make(chan tasks.ProgressUpdate, len(ids)*2+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	var result *tasks.BulkImportResult
	err = r.withSpinner(ctx, fmt.Sprintf("Importing %d playlists...", len(ids)), func(ctx context.Context) error {
		var err error
		result, err = engine.BulkImport(ctx, progress, ids, tasks.BulkImportOpts{
			NumWorkers: cmd.Int("workers"),
			RateLimit:  cmd.Float("rate"),
		})
		return err
	})
	close(progress)
	<-done
	if result == nil {
		return err
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"Catalog ID", "Status", "Playlist ID", "Name", "Tracks"})
	for _, res := range result.Results {
		if res.Error != nil {
			t.AppendRow(table.Row{res.CatalogID, "failed", "-", res.Error.Error(), "-"})
			continue
		}
		t.AppendRow(table.Row{res.CatalogID, "ok", res.ID, res.Name, res.Tracks})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d ok / %d failed", result.Succeeded, result.Failed)})
	t.Render()

	if err != nil {
		return err
	}
	if result.Failed > 0 && result.Succeeded == 0 {
		return fmt.Errorf("%w: all %d imports failed", shared.ErrAPIRequest, result.Failed)
	}
	return nil
}

// PlaylistList lists stored playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	playlists, err := engine.Playlists(ctx, cmd.String("name"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		dtos := make([]models.Playlist, len(playlists))
		for i, p := range playlists {
			dtos[i] = p.DTO()
		}
		return r.writeJSON(dtos, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		r.writePlain("No playlists stored. Import one with: plx playlist import <catalog-id>\n")
		return nil
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Tracks", "Theme", "Catalog ID"})
	for _, p := range playlists {
		theme := p.Theme()
		if theme == "" {
			theme = "-"
		}
		t.AppendRow(table.Row{p.ID(), p.Name(), p.TrackCount(), theme, p.CatalogID()})
	}
	t.Render()
	return nil
}

// PlaylistTracks prints a stored playlist's tracks.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	id, err := firstArg(cmd, "playlist ID")
	if err != nil {
		return err
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	export, err := engine.Export(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, cmd.Bool("pretty"))
	}

	r.writePlainHeader(export.Playlist.Name)
	if export.Playlist.Theme != "" {
		r.writePlain("Theme: %s\n", export.Playlist.Theme)
	}
	r.renderTracks(export.Tracks)
	return nil
}

// PlaylistExport writes stored playlists to disk.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one playlist ID", shared.ErrMissingArgument)
	}

	format := strings.ToLower(cmd.String("format"))
	switch format {
	case "json", "csv", "markdown", "md", "txt", "text":
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	result, err := engine.BulkExport(ctx, nil, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
	})
	if err != nil {
		return err
	}

	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("✗ %s: %v\n", res.PlaylistName, res.Error)
			continue
		}
		for _, f := range res.Files {
			r.writePlain("✓ %s\n", f)
		}
	}
	r.writePlain("Exported %d of %d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)

	if result.SuccessfulExports == 0 {
		return fmt.Errorf("%w: no playlists exported", shared.ErrPlaylistNotFound)
	}
	return nil
}

// Search queries the catalog and prints matching tracks.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if r.catalog == nil {
		return fmt.Errorf("%w: catalog not configured", shared.ErrServiceUnavailable)
	}

	var tracks []models.Track
	err := r.withSpinner(ctx, "Searching "+r.catalog.Name()+"...", func(ctx context.Context) error {
		var err error
		tracks, err = r.catalog.Search(ctx, query, cmd.Int("limit"))
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	if len(tracks) == 0 {
		r.writePlain("No tracks found for %q\n", query)
		return nil
	}
	r.renderTracks(tracks)
	return nil
}
