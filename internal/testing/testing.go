// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// MockCatalog is an in-memory catalog: playlists keyed by catalog ID and search results keyed by query.
//
// It satisfies services.Catalog and editor.CatalogSearch. Safe for concurrent use.
type MockCatalog struct {
	Playlists     map[string]*models.PlaylistExport
	SearchResults map[string][]models.Track
	Err           error // returned by every call when set

	mu       sync.Mutex
	searches []string
	exports  []string
}

func (m *MockCatalog) Name() string { return "mock" }

func (m *MockCatalog) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	m.mu.Lock()
	m.searches = append(m.searches, query)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	results := m.SearchResults[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return append([]models.Track(nil), results...), nil
}

func (m *MockCatalog) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	export, err := m.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return &export.Playlist, nil
}

func (m *MockCatalog) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	m.mu.Lock()
	m.exports = append(m.exports, playlistID)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	export, ok := m.Playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return export, nil
}

// Searches returns the queries received so far, in order.
func (m *MockCatalog) Searches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searches...)
}

// Exports returns the playlist IDs exported so far, in order.
func (m *MockCatalog) Exports() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.exports...)
}

// MockCompleter returns a fixed response or error and records the last prompt.
type MockCompleter struct {
	Response string
	Err      error

	mu    sync.Mutex
	calls int
	user  string
}

func (m *MockCompleter) Name() string { return "mock" }

func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.user = user
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Response, m.Err
}

// Calls returns how many completions were requested.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastUser returns the user text of the most recent completion.
func (m *MockCompleter) LastUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
