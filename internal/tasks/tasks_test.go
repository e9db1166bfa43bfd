package tasks

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plx/internal/editor"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/repositories"
	"github.com/desertthunder/plx/internal/shared"
	tu "github.com/desertthunder/plx/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const removeShort = `{"type":"filter","action":"remove_short_tracks","parameters":{"min_duration":180}}`

type fixture struct {
	db        *sql.DB
	engine    *EditEngine
	playlists *repositories.PlaylistRepository
	tracks    *repositories.TrackRepository
	edits     *repositories.EditRepository
	completer *tu.MockCompleter
	catalog   *tu.MockCatalog
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, shared.RunMigrations(db))
	return db
}

func newFixture(t *testing.T, classifier editor.Classifier) *fixture {
	t.Helper()

	f := &fixture{
		db:        setupTestDB(t),
		completer: &tu.MockCompleter{Response: removeShort},
		catalog:   &tu.MockCatalog{Playlists: map[string]*models.PlaylistExport{}},
	}
	f.playlists = repositories.NewPlaylistRepository(f.db)
	f.tracks = repositories.NewTrackRepository(f.db)
	f.edits = repositories.NewEditRepository(f.db)

	if classifier == nil {
		classifier = editor.NewLLMClassifier(f.completer)
	}
	ed := editor.NewPlaylistEditor(editor.EditorOpts{
		Classifier: classifier,
		Catalog:    f.catalog,
		Suggester:  editor.NewCompleterSuggester(f.completer),
	})

	f.engine = NewEditEngine(EngineOpts{
		Editor:    ed,
		Playlists: f.playlists,
		Tracks:    f.tracks,
		Edits:     f.edits,
		Catalog:   f.catalog,
	})
	return f
}

// seed stores a playlist whose tracks last the given number of seconds.
func (f *fixture) seed(t *testing.T, name string, seconds ...int) *models.PersistedPlaylist {
	t.Helper()

	playlist := models.NewPersistedPlaylist(0, models.Playlist{Name: name})
	require.NoError(t, f.playlists.Create(playlist))

	for i, s := range seconds {
		track := models.Track{
			Name:        name + " " + string(rune('A'+i)),
			Artist:      "Artist",
			DurationMS:  s * 1000,
			Energy:      models.Float(float64(i+1) / 10),
			ReleaseDate: "2001-01-01",
		}
		require.NoError(t, f.tracks.Append(playlist.ID(), &track))
	}
	return playlist
}

func names(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Name
	}
	return out
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case u := <-ch:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}

func TestEditEngineEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies applies and persists", func(t *testing.T) {
		f := newFixture(t, nil)
		playlist := f.seed(t, "Mix", 240, 120, 200)
		progress := make(chan ProgressUpdate, 10)

		outcome, err := f.engine.Edit(ctx, progress, playlist.ID(), "  drop the short songs  ", nil)
		require.NoError(t, err)

		assert.Equal(t, "drop the short songs", f.completer.LastUser())
		assert.Equal(t, editor.TypeFilter, outcome.Command.Type())
		assert.Equal(t, []string{"Mix A", "Mix C"}, names(outcome.Result.Tracks))
		assert.Equal(t, 2, outcome.Playlist.TrackCount())

		stored, err := f.tracks.ListForPlaylist(playlist.ID())
		require.NoError(t, err)
		assert.Equal(t, []string{"Mix A", "Mix C"}, names(stored))
		assert.Equal(t, stored[0].ID, outcome.Result.Tracks[0].ID)

		reloaded, err := f.playlists.Get(playlist.ID())
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.TrackCount())

		require.NotNil(t, outcome.Record)
		assert.Equal(t, "drop the short songs", outcome.Record.Command())
		assert.Equal(t, 3, outcome.Record.TracksBefore())
		assert.Equal(t, 2, outcome.Record.TracksAfter())

		phases := []Phase{}
		for _, u := range drain(progress) {
			phases = append(phases, u.Phase)
		}
		assert.Equal(t, []Phase{LoadPlaylist, EditTracks, PersistTracks, RecordEdit}, phases)
	})

	t.Run("theme is saved on the playlist", func(t *testing.T) {
		f := newFixture(t, nil)
		f.completer.Response = `{"type":"theme","action":"apply_theme","parameters":{"theme":"late night drive"}}`
		playlist := f.seed(t, "Night", 200, 210)

		outcome, err := f.engine.Edit(ctx, nil, playlist.ID(), "make it a late night drive", nil)
		require.NoError(t, err)
		assert.Equal(t, "late night drive", outcome.Playlist.Theme())
		assert.Len(t, outcome.Result.Tracks, 2)

		reloaded, err := f.playlists.Get(playlist.ID())
		require.NoError(t, err)
		assert.Equal(t, "late night drive", reloaded.Theme())
	})

	t.Run("empty command", func(t *testing.T) {
		f := newFixture(t, nil)
		playlist := f.seed(t, "Mix", 200)

		_, err := f.engine.Edit(ctx, nil, playlist.ID(), "   ", nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Zero(t, f.completer.Calls())
	})

	t.Run("unknown playlist", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.engine.Edit(ctx, nil, "missing", "sort by bpm", nil)
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
		assert.Zero(t, f.completer.Calls())
	})

	t.Run("classification failure leaves tracks untouched", func(t *testing.T) {
		f := newFixture(t, nil)
		f.completer.Response = "I am not sure what you mean"
		playlist := f.seed(t, "Mix", 100, 200)

		_, err := f.engine.Edit(ctx, nil, playlist.ID(), "do something", nil)
		assert.ErrorIs(t, err, editor.ErrClassification)

		stored, err := f.tracks.ListForPlaylist(playlist.ID())
		require.NoError(t, err)
		assert.Len(t, stored, 2)

		history, err := f.edits.ListForPlaylist(playlist.ID(), 0)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("unknown action", func(t *testing.T) {
		f := newFixture(t, nil)
		f.completer.Response = `{"type":"sort","action":"sort_by_color","parameters":{}}`
		playlist := f.seed(t, "Mix", 100)

		_, err := f.engine.Edit(ctx, nil, playlist.ID(), "sort by color", nil)
		assert.ErrorIs(t, err, editor.ErrUnknownAction)
	})

	t.Run("history failure does not fail the edit", func(t *testing.T) {
		f := newFixture(t, nil)
		playlist := f.seed(t, "Mix", 240, 120)
		f.engine.edits = failingHistory{}

		outcome, err := f.engine.Edit(ctx, nil, playlist.ID(), "drop the short songs", nil)
		require.NoError(t, err)
		assert.Nil(t, outcome.Record)
		assert.Len(t, outcome.Result.Tracks, 1)
	})
}

type failingHistory struct{}

func (failingHistory) Create(*models.EditRecord) error { return errors.New("disk full") }
func (failingHistory) ListForPlaylist(string, int) ([]*models.EditRecord, error) {
	return nil, errors.New("disk full")
}

type failingTracks struct {
	TrackStore
}

func (failingTracks) ReplaceTracks(string, []models.Track) ([]models.Track, error) {
	return nil, errors.New("disk full")
}

func TestEditEngineApplyCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("sorts without classifying", func(t *testing.T) {
		f := newFixture(t, nil)
		playlist := f.seed(t, "Mix", 200, 210, 220)

		outcome, err := f.engine.ApplyCommand(ctx, nil, playlist.ID(),
			editor.SortCommand{Op: editor.ActionSortByEnergy}, nil)
		require.NoError(t, err)
		assert.Zero(t, f.completer.Calls())
		assert.Equal(t, []string{"Mix C", "Mix B", "Mix A"}, names(outcome.Result.Tracks))

		stored, err := f.tracks.ListForPlaylist(playlist.ID())
		require.NoError(t, err)
		assert.Equal(t, []string{"Mix C", "Mix B", "Mix A"}, names(stored))
		for i, track := range stored {
			assert.Equal(t, i, track.Position)
		}

		require.NotNil(t, outcome.Record)
		assert.Equal(t, "sort/sort_by_energy", outcome.Record.Command())
	})

	t.Run("invalid command", func(t *testing.T) {
		f := newFixture(t, nil)
		playlist := f.seed(t, "Mix", 200)

		_, err := f.engine.ApplyCommand(ctx, nil, playlist.ID(), editor.SortCommand{Op: "shuffle"}, nil)
		assert.ErrorIs(t, err, editor.ErrUnknownAction)

		_, err = f.engine.ApplyCommand(ctx, nil, playlist.ID(), nil, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("refine uses preferences", func(t *testing.T) {
		f := newFixture(t, nil)
		playlist := f.seed(t, "Mix", 200, 210)

		prefs := &models.UserPreferences{BannedSongs: []string{"Mix A"}}
		outcome, err := f.engine.ApplyCommand(ctx, nil, playlist.ID(),
			editor.RefineCommand{Op: editor.ActionApplyPreferences}, prefs)
		require.NoError(t, err)
		assert.Equal(t, []string{"Mix B"}, names(outcome.Result.Tracks))
	})

	t.Run("expand appends catalog tracks", func(t *testing.T) {
		f := newFixture(t, nil)
		playlist := f.seed(t, "Mix", 200)
		f.catalog.SearchResults = map[string][]models.Track{
			`artist:"Artist"`: {
				{CatalogID: "sp-1", Name: "New One", Artist: "Artist", DurationMS: 200000},
				{CatalogID: "sp-2", Name: "New Two", Artist: "Artist", DurationMS: 210000},
			},
		}

		outcome, err := f.engine.ApplyCommand(ctx, nil, playlist.ID(),
			editor.ExpandCommand{Op: editor.ActionExpandPlaylist, TargetSize: 3, ExpansionType: "similar_artists"}, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, f.catalog.Searches())

		stored, err := f.tracks.ListForPlaylist(playlist.ID())
		require.NoError(t, err)
		assert.Equal(t, len(outcome.Result.Tracks), len(stored))
		assert.Equal(t, "Mix A", stored[0].Name)
		for _, track := range stored {
			assert.NotEmpty(t, track.ID)
		}
	})
}

func TestEditEngineConcurrency(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	blocking := editor.NewLLMClassifier(editor.CompleterFunc(func(ctx context.Context, system, user string) (string, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return removeShort, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}))

	f := newFixture(t, blocking)
	first := f.seed(t, "First", 240, 120)
	second := f.seed(t, "Second", 240, 120)

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Edit(context.Background(), nil, first.ID(), "drop short songs", nil)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first edit never reached the classifier")
	}

	_, err := f.engine.Edit(context.Background(), nil, first.ID(), "sort by bpm", nil)
	assert.ErrorIs(t, err, shared.ErrEditInProgress)

	// A different playlist is not blocked by the first edit's lock.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.engine.Edit(ctx, nil, second.ID(), "drop short songs", nil)
	assert.NotErrorIs(t, err, shared.ErrEditInProgress)

	close(release)
	require.NoError(t, <-done)

	outcome, err := f.engine.Edit(context.Background(), nil, first.ID(), "drop short songs", nil)
	require.NoError(t, err)
	assert.Len(t, outcome.Result.Tracks, 1)
}

func TestEditEngineReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	playlist := f.seed(t, "Mix", 240, 120, 200)

	_, err := f.engine.Edit(ctx, nil, playlist.ID(), "drop short songs", nil)
	require.NoError(t, err)
	_, err = f.engine.ApplyCommand(ctx, nil, playlist.ID(), editor.SortCommand{Op: editor.ActionSortByEnergy}, nil)
	require.NoError(t, err)

	t.Run("History", func(t *testing.T) {
		history, err := f.engine.History(ctx, playlist.ID(), 0)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "sort", history[0].CommandType())
		assert.Equal(t, "filter", history[1].CommandType())

		limited, err := f.engine.History(ctx, playlist.ID(), 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		_, err = f.engine.History(ctx, "missing", 0)
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
	})

	t.Run("Tracks", func(t *testing.T) {
		tracks, err := f.engine.Tracks(ctx, playlist.ID())
		require.NoError(t, err)
		assert.Equal(t, []string{"Mix C", "Mix A"}, names(tracks))

		_, err = f.engine.Tracks(ctx, "missing")
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
	})

	t.Run("Playlists", func(t *testing.T) {
		f.seed(t, "Other")
		all, err := f.engine.Playlists(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		matched, err := f.engine.Playlists(ctx, "oth")
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, "Other", matched[0].Name())
	})

	t.Run("Export", func(t *testing.T) {
		export, err := f.engine.Export(ctx, playlist.ID())
		require.NoError(t, err)
		assert.Equal(t, playlist.ID(), export.Playlist.ID)
		assert.Len(t, export.Tracks, 2)
	})
}

func catalogExport(id, name string, trackNames ...string) *models.PlaylistExport {
	export := &models.PlaylistExport{Playlist: models.Playlist{ID: id, CatalogID: id, Name: name}}
	for _, n := range trackNames {
		export.Tracks = append(export.Tracks, models.Track{
			ID: "remote-" + n, CatalogID: "sp-" + n, Name: n, Artist: "Artist", DurationMS: 180000,
		})
	}
	return export
}

func TestEditEngineImport(t *testing.T) {
	ctx := context.Background()

	t.Run("Import", func(t *testing.T) {
		f := newFixture(t, nil)
		f.catalog.Playlists["sp-mix"] = catalogExport("sp-mix", "Remote Mix", "One", "Two")

		playlist, err := f.engine.Import(ctx, "sp-mix")
		require.NoError(t, err)
		assert.Equal(t, "Remote Mix", playlist.Name())
		assert.Equal(t, "sp-mix", playlist.CatalogID())
		assert.NotEqual(t, "sp-mix", playlist.ID())

		tracks, err := f.tracks.ListForPlaylist(playlist.ID())
		require.NoError(t, err)
		assert.Equal(t, []string{"One", "Two"}, names(tracks))
		assert.NotEqual(t, "remote-One", tracks[0].ID)
		assert.Equal(t, "sp-One", tracks[0].CatalogID)

		byCatalog, err := f.playlists.GetByCatalogID("sp-mix")
		require.NoError(t, err)
		assert.Equal(t, playlist.ID(), byCatalog.ID())
	})

	t.Run("Import removes the playlist when tracks cannot be saved", func(t *testing.T) {
		f := newFixture(t, nil)
		f.catalog.Playlists["sp-mix"] = catalogExport("sp-mix", "Remote Mix", "One", "Two")
		f.engine.tracks = failingTracks{f.tracks}

		_, err := f.engine.Import(ctx, "sp-mix")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save tracks")

		_, err = f.playlists.GetByCatalogID("sp-mix")
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)

		stored, err := f.playlists.List(nil)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("Import Unknown", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.engine.Import(ctx, "nope")
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
	})

	t.Run("Import Without Catalog", func(t *testing.T) {
		f := newFixture(t, nil)
		f.engine.catalog = nil
		_, err := f.engine.Import(ctx, "sp-mix")
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)

		_, err = f.engine.BulkImport(ctx, nil, []string{"sp-mix"}, BulkImportOpts{})
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})

	t.Run("BulkImport", func(t *testing.T) {
		f := newFixture(t, nil)
		f.catalog.Playlists["a"] = catalogExport("a", "A", "One")
		f.catalog.Playlists["b"] = catalogExport("b", "B", "One", "Two")
		progress := make(chan ProgressUpdate, 20)

		result, err := f.engine.BulkImport(ctx, progress, []string{"a", "b", "missing"}, BulkImportOpts{NumWorkers: 2, RateLimit: 100})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
		assert.ElementsMatch(t, []string{"a", "b", "missing"}, f.catalog.Exports())

		for _, res := range result.Results {
			if res.CatalogID == "missing" {
				assert.ErrorIs(t, res.Error, shared.ErrPlaylistNotFound)
				continue
			}
			assert.NotEmpty(t, res.ID)
		}

		stored, err := f.playlists.List(nil)
		require.NoError(t, err)
		assert.Len(t, stored, 2)
		assert.NotEmpty(t, drain(progress))
	})

	t.Run("BulkImport Canceled", func(t *testing.T) {
		f := newFixture(t, nil)
		f.catalog.Playlists["a"] = catalogExport("a", "A", "One")
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		result, err := f.engine.BulkImport(canceled, nil, []string{"a"}, BulkImportOpts{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, result.Failed)
	})
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		format string
		files  int
	}{
		{"json", 1},
		{"csv", 2},
		{"markdown", 1},
		{"txt", 1},
	} {
		t.Run(tc.format, func(t *testing.T) {
			f := newFixture(t, nil)
			a := f.seed(t, "A", 200)
			b := f.seed(t, "B", 200, 210)
			dir := filepath.Join(t.TempDir(), "out")

			result, err := f.engine.BulkExport(ctx, nil, []string{a.ID(), b.ID(), "missing"}, BulkExportOpts{
				Format:    tc.format,
				OutputDir: dir,
			})
			require.NoError(t, err)
			assert.Equal(t, 3, result.TotalPlaylists)
			assert.Equal(t, 2, result.SuccessfulExports)
			assert.Equal(t, 1, result.FailedExports)
			tu.AssertFileExists(t, result.ManifestPath)

			for _, res := range result.Results {
				if !res.Success {
					assert.ErrorIs(t, res.Error, shared.ErrPlaylistNotFound)
					continue
				}
				assert.Len(t, res.Files, tc.files)
				for _, file := range res.Files {
					tu.AssertFileExists(t, file)
				}
			}
		})
	}

	t.Run("unwritable output directory", func(t *testing.T) {
		f := newFixture(t, nil)
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := f.engine.BulkExport(ctx, nil, []string{"x"}, BulkExportOpts{OutputDir: filepath.Join(file, "out")})
		assert.Error(t, err)
	})
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "load_playlist", LoadPlaylist.String())
	assert.Equal(t, "record_edit", RecordEdit.String())
	assert.Equal(t, "export_playlist", ExportPlaylist.String())
	assert.Equal(t, "", Phase(99).String())
}

func TestClampWorkers(t *testing.T) {
	assert.Equal(t, defaultWorkers, clampWorkers(0))
	assert.Equal(t, 3, clampWorkers(3))
	assert.Equal(t, maxWorkers, clampWorkers(50))
}
