package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/plx/internal/shared"
)

// PlaylistExportResult is the outcome of exporting one playlist in a bulk export.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	Results           []PlaylistExportResult
	OutputDirectory   string
	ManifestPath      string
}

type manifestEntry struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type manifest struct {
	Format            string          `json:"format"`
	ExportedAt        time.Time       `json:"exported_at"`
	TotalPlaylists    int             `json:"total_playlists"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	OutputDirectory   string          `json:"output_directory,omitempty"`
	Playlists         []manifestEntry `json:"playlists"`
}

// WriteBulkExportManifest writes a JSON summary of a bulk export to path.
func WriteBulkExportManifest(result *BulkExportResult, format, path string) error {
	if result == nil {
		return fmt.Errorf("%w: nil export result", shared.ErrInvalidInput)
	}

	m := manifest{
		Format:            format,
		ExportedAt:        time.Now().UTC(),
		TotalPlaylists:    result.TotalPlaylists,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		OutputDirectory:   result.OutputDirectory,
		Playlists:         make([]manifestEntry, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		entry := manifestEntry{ID: r.PlaylistID, Name: r.PlaylistName, Status: "success", Files: r.Files}
		if !r.Success {
			entry.Status = "failed"
		}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
