package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/editor"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
)

const maxBodyBytes = 1 << 20

// PlaylistService is the slice of [tasks.EditEngine] the API serves.
type PlaylistService interface {
	Playlists(ctx context.Context, name string) ([]*models.PersistedPlaylist, error)
	Playlist(ctx context.Context, playlistID string) (*models.PersistedPlaylist, error)
	Tracks(ctx context.Context, playlistID string) ([]models.Track, error)
	History(ctx context.Context, playlistID string, limit int) ([]*models.EditRecord, error)
	Edit(ctx context.Context, progress chan<- tasks.ProgressUpdate, playlistID, command string, prefs *models.UserPreferences) (*tasks.EditOutcome, error)
}

// APIOpts configures [NewAPI].
type APIOpts struct {
	Logger    *log.Logger
	RateLimit float64 // requests per second across all clients; zero disables limiting
	Burst     int
}

// EditRequest is the body of POST /playlists/{id}/edit.
type EditRequest struct {
	Command         string                  `json:"command"`
	UserPreferences *models.UserPreferences `json:"userPreferences,omitempty"`
}

// EditResponse is the body returned by a successful edit.
type EditResponse struct {
	*models.EditResult
	PlaylistID string `json:"playlistId"`
	Command    string `json:"command"`
}

type tracksResponse struct {
	PlaylistID string         `json:"playlistId"`
	Tracks     []models.Track `json:"tracks"`
}

type editsResponse struct {
	PlaylistID string               `json:"playlistId"`
	Edits      []models.EditSummary `json:"edits"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type api struct {
	service PlaylistService
	logger  *log.Logger
}

// NewAPI builds the HTTP API over service.
func NewAPI(service PlaylistService, opts APIOpts) http.Handler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	a := &api{service: service, logger: opts.Logger}

	router := NewBasicRouter()
	router.Use(Recover(opts.Logger), LogRequests(opts.Logger), CommonHeaders, RateLimit(opts.RateLimit, opts.Burst))

	router.Handler(healthHandler{})
	router.Handle(http.MethodGet, "/playlists", http.HandlerFunc(a.listPlaylists))
	router.Handle(http.MethodGet, "/playlists/{id}", http.HandlerFunc(a.getPlaylist))
	router.Handle(http.MethodGet, "/playlists/{id}/tracks", http.HandlerFunc(a.listTracks))
	router.Handle(http.MethodGet, "/playlists/{id}/edits", http.HandlerFunc(a.listEdits))
	router.Handle(http.MethodPost, "/playlists/{id}/edit", http.HandlerFunc(a.edit))
	return router
}

type healthHandler struct{}

func (healthHandler) Routes() []string { return []string{"/health"} }

func (healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.service.Playlists(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	out := make([]models.Playlist, len(playlists))
	for i, p := range playlists {
		out[i] = p.DTO()
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": out})
}

func (a *api) getPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := a.service.Playlist(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist.DTO())
}

func (a *api) listTracks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tracks, err := a.service.Tracks(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracksResponse{PlaylistID: id, Tracks: tracks})
}

func (a *api) listEdits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.fail(w, r, fmt.Errorf("%w: limit must be a non-negative integer", shared.ErrInvalidInput))
			return
		}
		limit = n
	}

	records, err := a.service.History(r.Context(), id, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	edits := make([]models.EditSummary, len(records))
	for i, rec := range records {
		edits[i] = rec.Summary()
	}
	writeJSON(w, http.StatusOK, editsResponse{PlaylistID: id, Edits: edits})
}

func (a *api) edit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req EditRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		a.fail(w, r, fmt.Errorf("%w: malformed request body: %v", shared.ErrInvalidInput, err))
		return
	}

	outcome, err := a.service.Edit(r.Context(), nil, id, req.Command, req.UserPreferences)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EditResponse{
		EditResult: outcome.Result,
		PlaylistID: id,
		Command:    editor.Describe(outcome.Command),
	})
}

// fail writes err with the status [StatusFor] assigns it. Server errors are logged and hidden from the client.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = http.StatusText(status)
	}
	writeError(w, status, msg)
}

// StatusFor maps an error from the edit pipeline to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrPlaylistNotFound), errors.Is(err, shared.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrEditInProgress):
		return http.StatusConflict
	case errors.Is(err, editor.ErrClassification),
		errors.Is(err, editor.ErrUnknownCommandType),
		errors.Is(err, editor.ErrUnknownAction),
		errors.Is(err, editor.ErrInvalidParameter):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
