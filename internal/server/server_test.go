package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plx/internal/editor"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/repositories"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	tu "github.com/desertthunder/plx/internal/testing"
)

type fakeService struct {
	playlists map[string]*models.PersistedPlaylist
	tracks    []models.Track
	records   []*models.EditRecord
	outcome   *tasks.EditOutcome
	editErr   error

	lastCommand string
	lastPrefs   *models.UserPreferences
	lastLimit   int
}

func (f *fakeService) Playlists(ctx context.Context, name string) ([]*models.PersistedPlaylist, error) {
	var out []*models.PersistedPlaylist
	for _, p := range f.playlists {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeService) Playlist(ctx context.Context, id string) (*models.PersistedPlaylist, error) {
	p, ok := f.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p, nil
}

func (f *fakeService) Tracks(ctx context.Context, id string) ([]models.Track, error) {
	if _, err := f.Playlist(ctx, id); err != nil {
		return nil, err
	}
	return f.tracks, nil
}

func (f *fakeService) History(ctx context.Context, id string, limit int) ([]*models.EditRecord, error) {
	if _, err := f.Playlist(ctx, id); err != nil {
		return nil, err
	}
	f.lastLimit = limit
	return f.records, nil
}

func (f *fakeService) Edit(ctx context.Context, _ chan<- tasks.ProgressUpdate, id, command string, prefs *models.UserPreferences) (*tasks.EditOutcome, error) {
	f.lastCommand, f.lastPrefs = command, prefs
	if f.editErr != nil {
		return nil, f.editErr
	}
	if _, err := f.Playlist(ctx, id); err != nil {
		return nil, err
	}
	return f.outcome, nil
}

func newFakeService() *fakeService {
	playlist := models.NewPersistedPlaylist(1, models.Playlist{ID: "p1", Name: "Mix"})
	playlist.SetID("p1")
	result := &models.EditResult{
		Tracks:      []models.Track{{ID: "t1", Name: "Song", Artist: "Artist", DurationMS: 200000}},
		Explanation: "Removed 1 tracks shorter than 3:00",
		Changes:     []string{"Removed 1 short tracks"},
	}
	return &fakeService{
		playlists: map[string]*models.PersistedPlaylist{"p1": playlist},
		tracks:    result.Tracks,
		records:   []*models.EditRecord{models.NewEditRecord("p1", "drop short songs", "filter", "remove_short_tracks", 2, result)},
		outcome: &tasks.EditOutcome{
			Playlist: playlist,
			Command:  editor.FilterCommand{Op: editor.ActionRemoveShortTracks, MinDurationMS: 180000},
			Result:   result,
		},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestEditEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := newFakeService()
		h := NewAPI(svc, APIOpts{})

		rec := do(t, h, http.MethodPost, "/playlists/p1/edit",
			`{"command":"drop short songs","userPreferences":{"bannedSongs":["Bad Song"]}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}

		resp := decode[map[string]any](t, rec)
		if resp["explanation"] != "Removed 1 tracks shorter than 3:00" {
			t.Errorf("unexpected explanation %v", resp["explanation"])
		}
		if resp["command"] != "filter/remove_short_tracks" || resp["playlistId"] != "p1" {
			t.Errorf("unexpected command fields %v", resp)
		}
		if tracks, ok := resp["tracks"].([]any); !ok || len(tracks) != 1 {
			t.Errorf("expected 1 track, got %v", resp["tracks"])
		}
		if _, ok := resp["suggestions"]; ok {
			t.Error("expected suggestions to be omitted when empty")
		}

		if svc.lastCommand != "drop short songs" {
			t.Errorf("command not forwarded, got %q", svc.lastCommand)
		}
		if svc.lastPrefs == nil || len(svc.lastPrefs.BannedSongs) != 1 {
			t.Errorf("preferences not forwarded, got %+v", svc.lastPrefs)
		}
	})

	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{"command":`, nil, http.StatusBadRequest},
		{"empty body", ``, nil, http.StatusBadRequest},
		{"empty command", `{"command":""}`, fmt.Errorf("%w: command is required", shared.ErrInvalidInput), http.StatusBadRequest},
		{"unknown playlist", `{"command":"x"}`, fmt.Errorf("%w: p9", shared.ErrPlaylistNotFound), http.StatusNotFound},
		{"edit in progress", `{"command":"x"}`, fmt.Errorf("%w: p1", shared.ErrEditInProgress), http.StatusConflict},
		{"classification", `{"command":"x"}`, fmt.Errorf("%w: no JSON", editor.ErrClassification), http.StatusUnprocessableEntity},
		{"unknown type", `{"command":"x"}`, editor.ErrUnknownCommandType, http.StatusUnprocessableEntity},
		{"unknown action", `{"command":"x"}`, editor.ErrUnknownAction, http.StatusUnprocessableEntity},
		{"invalid parameter", `{"command":"x"}`, editor.ErrInvalidParameter, http.StatusUnprocessableEntity},
		{"storage failure", `{"command":"x"}`, errors.New("database is locked"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.editErr = tt.err
			rec := do(t, NewAPI(svc, APIOpts{}), http.MethodPost, "/playlists/p1/edit", tt.body)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			resp := decode[errorResponse](t, rec)
			if resp.Error == "" {
				t.Error("expected an error message")
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(resp.Error, "database") {
				t.Errorf("internal error details leaked: %q", resp.Error)
			}
		})
	}

	t.Run("wrong method", func(t *testing.T) {
		rec := do(t, NewAPI(newFakeService(), APIOpts{}), http.MethodGet, "/playlists/p1/edit", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestReadEndpoints(t *testing.T) {
	svc := newFakeService()
	h := NewAPI(svc, APIOpts{})

	t.Run("health", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/health", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
			t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("expected common headers")
		}
	})

	t.Run("playlists", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/playlists", "")
		resp := decode[map[string][]models.Playlist](t, rec)
		if len(resp["playlists"]) != 1 || resp["playlists"][0].Name != "Mix" {
			t.Errorf("unexpected playlists %+v", resp)
		}
	})

	t.Run("playlist", func(t *testing.T) {
		if rec := do(t, h, http.MethodGet, "/playlists/p1", ""); rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if rec := do(t, h, http.MethodGet, "/playlists/nope", ""); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("tracks", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/playlists/p1/tracks", "")
		resp := decode[tracksResponse](t, rec)
		if resp.PlaylistID != "p1" || len(resp.Tracks) != 1 {
			t.Errorf("unexpected tracks response %+v", resp)
		}
	})

	t.Run("edits", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/playlists/p1/edits?limit=5", "")
		resp := decode[editsResponse](t, rec)
		if len(resp.Edits) != 1 || resp.Edits[0].Type != "filter" || resp.Edits[0].TracksAfter != 1 {
			t.Errorf("unexpected edits response %+v", resp)
		}
		if svc.lastLimit != 5 {
			t.Errorf("expected limit 5, got %d", svc.lastLimit)
		}

		if rec := do(t, h, http.MethodGet, "/playlists/p1/edits?limit=abc", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for bad limit, got %d", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("RateLimit", func(t *testing.T) {
		h := NewAPI(newFakeService(), APIOpts{RateLimit: 0.001, Burst: 2})

		codes := []int{}
		for range 3 {
			codes = append(codes, do(t, h, http.MethodGet, "/health", "").Code)
		}
		if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
			t.Errorf("expected two requests then 429, got %v", codes)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(shared.NewLogger(nil)))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		if rec := do(t, router, http.MethodGet, "/boom", ""); rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		do(t, router, http.MethodGet, "/x", "")

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})
}

func TestStatusFor(t *testing.T) {
	if StatusFor(nil) != http.StatusOK {
		t.Error("nil error should map to 200")
	}
	timeout := fmt.Errorf("%w: %w after 1s", editor.ErrClassification, shared.ErrTimeout)
	if StatusFor(timeout) != http.StatusUnprocessableEntity {
		t.Error("classification timeout should map to 422")
	}
	if StatusFor(shared.ErrServiceUnavailable) != http.StatusServiceUnavailable {
		t.Error("unavailable service should map to 503")
	}
}

// TestAPIWithEngine drives the API against the real engine and an in-memory store.
func TestAPIWithEngine(t *testing.T) {
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	playlists := repositories.NewPlaylistRepository(db)
	tracks := repositories.NewTrackRepository(db)
	playlist := models.NewPersistedPlaylist(0, models.Playlist{Name: "Road Trip"})
	if err := playlists.Create(playlist); err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	for i, secs := range []int{240, 90, 200} {
		track := models.Track{Name: fmt.Sprintf("Song %d", i), Artist: "Band", DurationMS: secs * 1000}
		if err := tracks.Append(playlist.ID(), &track); err != nil {
			t.Fatalf("failed to append track: %v", err)
		}
	}

	completer := &tu.MockCompleter{Response: `{"type":"filter","action":"remove_short_tracks","parameters":{"min_duration":120}}`}
	engine := tasks.NewEditEngine(tasks.EngineOpts{
		Editor: editor.NewPlaylistEditor(editor.EditorOpts{
			Classifier: editor.WithTimeout(editor.NewLLMClassifier(completer), time.Second),
		}),
		Playlists: playlists,
		Tracks:    tracks,
		Edits:     repositories.NewEditRepository(db),
	})
	srv := httptest.NewServer(NewAPI(engine, APIOpts{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/playlists/"+playlist.ID()+"/edit", "application/json",
		strings.NewReader(`{"command":"remove anything under two minutes"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body EditResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if body.EditResult == nil || len(body.Tracks) != 2 {
		t.Fatalf("expected 2 tracks after filtering, got %+v", body.EditResult)
	}

	history, err := http.Get(srv.URL + "/playlists/" + playlist.ID() + "/edits")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer history.Body.Close()

	var edits editsResponse
	if err := json.NewDecoder(history.Body).Decode(&edits); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(edits.Edits) != 1 || edits.Edits[0].Command != "remove anything under two minutes" {
		t.Errorf("unexpected history %+v", edits)
	}

	missing, err := http.Post(srv.URL+"/playlists/nope/edit", "application/json", strings.NewReader(`{"command":"x"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown playlist, got %d", missing.StatusCode)
	}
}
