package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers = 5
	maxWorkers     = 10
	defaultRate    = 5.0
)

// ImportResult is the outcome of importing one catalog playlist.
type ImportResult struct {
	CatalogID string
	ID        string // local playlist ID on success
	Name      string
	Tracks    int
	Error     error
}

// BulkImportOpts configures [EditEngine.BulkImport].
type BulkImportOpts struct {
	NumWorkers int     // Concurrent workers (default: 5, max: 10)
	RateLimit  float64 // Catalog requests per second (default: 5)
}

// BulkImportResult summarizes a bulk import.
type BulkImportResult struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []ImportResult
}

// BulkImport imports several catalog playlists concurrently, rate limiting catalog requests.
//
// Individual failures are recorded in the result; only cancellation stops the run early.
func (e *EditEngine) BulkImport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	catalogIDs []string,
	opts BulkImportOpts,
) (*BulkImportResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}
	opts.NumWorkers = clampWorkers(opts.NumWorkers)
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRate
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan string, len(catalogIDs))
	results := make(chan ImportResult, len(catalogIDs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					results <- ImportResult{CatalogID: id, Error: err}
					continue
				}
				results <- e.importOne(ctx, id)
			}
		}()
	}

	for i, id := range catalogIDs {
		e.sendProgress(prog, importStartedUpdate(i+1, len(catalogIDs), id))
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &BulkImportResult{Total: len(catalogIDs), Results: make([]ImportResult, 0, len(catalogIDs))}
	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Error != nil {
			result.Failed++
			e.sendProgress(prog, importFailedUpdate(completed, len(catalogIDs), res))
		} else {
			result.Succeeded++
			e.sendProgress(prog, importCompletedUpdate(completed, len(catalogIDs), res))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (e *EditEngine) importOne(ctx context.Context, catalogID string) ImportResult {
	res := ImportResult{CatalogID: catalogID}
	playlist, err := e.Import(ctx, catalogID)
	if err != nil {
		res.Error = err
		return res
	}
	res.ID = playlist.ID()
	res.Name = playlist.Name()
	res.Tracks = playlist.TrackCount()
	return res
}

// BulkExportOpts configures [EditEngine.BulkExport].
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: plx_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 5, max: 10)
}

// BulkExport writes stored playlists to disk concurrently and records a manifest of the run.
func (e *EditEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	playlistIDs []string,
	opts BulkExportOpts,
) (*formatter.BulkExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("plx_export_%d", time.Now().Unix())
	}
	opts.NumWorkers = clampWorkers(opts.NumWorkers)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &formatter.BulkExportResult{
		TotalPlaylists:  len(playlistIDs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.PlaylistExportResult, 0, len(playlistIDs)),
	}

	jobs := make(chan string, len(playlistIDs))
	results := make(chan formatter.PlaylistExportResult, len(playlistIDs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				select {
				case <-ctx.Done():
					results <- formatter.PlaylistExportResult{PlaylistID: id, PlaylistName: id, Error: ctx.Err()}
					continue
				default:
				}
				results <- e.exportOne(ctx, id, opts)
			}
		}()
	}

	for i, id := range playlistIDs {
		e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(playlistIDs), id))
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(playlistIDs), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(playlistIDs), res.PlaylistName, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *EditEngine) exportOne(ctx context.Context, playlistID string, opts BulkExportOpts) formatter.PlaylistExportResult {
	result := formatter.PlaylistExportResult{
		PlaylistID:   playlistID,
		PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
		Files:        []string{},
	}

	export, err := e.Export(ctx, playlistID)
	if err != nil {
		result.Error = fmt.Errorf("failed to load playlist: %w", err)
		return result
	}
	result.PlaylistName = export.Playlist.Name

	files, err := WriteExport(export, opts.Format, opts.OutputDir)
	if err != nil {
		result.Error = err
		return result
	}
	result.Files = files
	result.Success = true
	return result
}

// WriteExport writes one playlist into dir in the given format and returns the files created.
// Unknown formats fall back to JSON.
func WriteExport(export *models.PlaylistExport, format, dir string) ([]string, error) {
	id := export.Playlist.ID
	switch format {
	case "csv":
		res, err := formatter.WriteCSVExport(export, filepath.Join(dir, id))
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case "markdown", "md":
		path, err := formatter.WriteMarkdownExport(export, filepath.Join(dir, id))
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return []string{path}, nil
	case "txt", "text":
		path, err := formatter.WriteTextExport(export, filepath.Join(dir, id+"_tracks.txt"))
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil
	default:
		path, err := formatter.WriteJSONExport(export, filepath.Join(dir, id+".json"))
		if err != nil {
			return nil, fmt.Errorf("JSON export failed: %w", err)
		}
		return []string{path}, nil
	}
}

func clampWorkers(n int) int {
	switch {
	case n <= 0:
		return defaultWorkers
	case n > maxWorkers:
		return maxWorkers
	default:
		return n
	}
}
