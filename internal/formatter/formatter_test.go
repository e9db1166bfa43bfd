package formatter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/plx/internal/models"
	th "github.com/desertthunder/plx/internal/testing"
)

func testExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          "test123",
			Name:        "Test Playlist",
			Description: "A test playlist",
			Theme:       "rainy afternoon",
			TrackCount:  2,
			Public:      true,
		},
		Tracks: []models.Track{
			{
				ID:          "track1",
				Name:        "Song One",
				Artist:      "Artist One",
				Album:       "Album One",
				DurationMS:  180000,
				ISRC:        "USRC12345678",
				Tempo:       models.Float(120.4),
				Energy:      models.Float(0.734),
				ReleaseDate: "1998-04-01",
				Genres:      []string{"trip hop", "downtempo"},
			},
			{
				ID:         "track2",
				Name:       "Song | Two",
				Artist:     "Artist Two",
				DurationMS: 240000,
				ISRC:       "USRC87654321",
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "ID,Name,Artist,Album,Duration,ISRC,Tempo,Energy,Year,Genres" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if lines[1] != "track1,Song One,Artist One,Album One,3:00,USRC12345678,120.4,0.73,1998,trip hop; downtempo" {
			t.Errorf("unexpected first row: %s", lines[1])
		}
		if lines[2] != "track2,Song | Two,Artist Two,,4:00,USRC87654321,,,," {
			t.Errorf("expected empty cells for missing attributes, got: %s", lines[2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Test Playlist",
			"**Description**: A test playlist",
			"**Theme**: rainy afternoon",
			"**Tracks**: 2 (7:00)",
			"**Visibility**: Public",
			"| 1 | Song One | Artist One | Album One | 3:00 | 120 | 0.73 |",
			`| 2 | Song \| Two | Artist Two |  | 4:00 | - | - |`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"Playlist: Test Playlist",
			"Description: A test playlist",
			"Tracks: 2",
			"1. Artist One - Song One [3:00]",
			"2. Artist Two - Song | Two [4:00]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Text missing %q", want)
			}
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testExport().Playlist)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var decoded models.Playlist
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("metadata is not valid JSON: %v", err)
		}
		if decoded.Name != "Test Playlist" || decoded.TrackCount != 2 || !decoded.Public {
			t.Errorf("unexpected metadata %+v", decoded)
		}
		if strings.Contains(string(data), "Song One") {
			t.Error("metadata should not contain tracks")
		}
	})
}

func TestFormatEditResult(t *testing.T) {
	t.Run("Full Result", func(t *testing.T) {
		result := &models.EditResult{
			Tracks:      testExport().Tracks,
			Explanation: "No automatic replacement performed; 1 candidates identified for mood \"chill\"",
			Changes:     []string{"Found 1 of 2 tracks that do not fit a chill mood"},
			Suggestions: []models.Suggestion{
				{Name: "Teardrop", Artist: "Massive Attack", Reason: "slow and moody"},
				{Name: "Roads", Artist: "Portishead"},
			},
		}

		output := FormatEditResult(result)
		for _, want := range []string{
			"No automatic replacement performed",
			"Changes:\n  - Found 1 of 2 tracks that do not fit a chill mood\n",
			"  - Teardrop by Massive Attack (slow and moody)\n",
			"  - Roads by Portishead\n",
			"2 tracks, 7:00 total",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("Theme And Single Track", func(t *testing.T) {
		result := &models.EditResult{
			Tracks:      testExport().Tracks[:1],
			Explanation: `Theme "sunset drive" recorded; no tracks were changed`,
			Changes:     []string{`Recorded theme "sunset drive"`},
			Theme:       "sunset drive",
		}

		output := FormatEditResult(result)
		if !strings.Contains(output, "Theme: sunset drive") || !strings.Contains(output, "1 track, 3:00 total") {
			t.Errorf("unexpected output:\n%s", output)
		}
		if strings.Contains(output, "Suggestions:") {
			t.Error("expected no suggestions section")
		}
	})

	t.Run("Nil Result", func(t *testing.T) {
		if FormatEditResult(nil) != "" {
			t.Error("expected empty output for nil result")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "mix")

		res, err := WriteCSVExport(testExport(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		th.AssertFileExists(t, res.TracksFile)
		th.AssertFileExists(t, res.MetadataFile)
		if !strings.Contains(th.MustReadFile(t, res.TracksFile), "Song One") {
			t.Error("tracks file missing track")
		}
	})

	t.Run("WriteCSVExport Defaults To Playlist ID", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		res, err := WriteCSVExport(testExport(), "")
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if res.TracksFile != "test123_tracks.csv" {
			t.Errorf("expected default tracks file, got %s", res.TracksFile)
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "mix")

		path, err := WriteMarkdownExport(testExport(), dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		th.AssertDirExists(t, dir)
		if !strings.HasSuffix(path, "README.md") {
			t.Errorf("expected README.md, got %s", path)
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mix.txt")
		got, err := WriteTextExport(testExport(), path)
		if err != nil || got != path {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mix.json")
		if _, err := WriteJSONExport(testExport(), path); err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}

		var decoded models.PlaylistExport
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &decoded); err != nil {
			t.Fatalf("invalid JSON export: %v", err)
		}
		if len(decoded.Tracks) != 2 || decoded.Tracks[0].Energy == nil {
			t.Errorf("expected tracks with attributes, got %+v", decoded.Tracks)
		}
	})

	t.Run("Write Into Missing Directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "mix.txt")
		if _, err := WriteTextExport(testExport(), path); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}

func TestWriteBulkExportManifest(t *testing.T) {
	t.Run("SuccessfulExport", func(t *testing.T) {
		manifestPath := filepath.Join(t.TempDir(), "manifest.json")
		result := &BulkExportResult{
			TotalPlaylists:    2,
			SuccessfulExports: 2,
			Results: []PlaylistExportResult{
				{PlaylistID: "playlist1", PlaylistName: "My Playlist 1", Success: true, Files: []string{"playlist1_tracks.csv"}},
				{PlaylistID: "playlist2", PlaylistName: "My Playlist 2", Success: true, Files: []string{"playlist2/README.md"}},
			},
			OutputDirectory: "exports",
		}

		if err := WriteBulkExportManifest(result, "csv", manifestPath); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		content := th.MustReadFile(t, manifestPath)
		for _, want := range []string{`"format": "csv"`, `"total_playlists": 2`, `"successful_exports": 2`, `"My Playlist 1"`, `"status": "success"`} {
			if !strings.Contains(content, want) {
				t.Errorf("manifest missing %s", want)
			}
		}
	})

	t.Run("WithFailedExports", func(t *testing.T) {
		manifestPath := filepath.Join(t.TempDir(), "manifest.json")
		result := &BulkExportResult{
			TotalPlaylists:    2,
			SuccessfulExports: 1,
			FailedExports:     1,
			Results: []PlaylistExportResult{
				{PlaylistID: "playlist1", PlaylistName: "Success Playlist", Success: true, Files: []string{"playlist1.json"}},
				{PlaylistID: "playlist2", PlaylistName: "Failed Playlist", Error: errors.New("playlist not found")},
			},
		}

		if err := WriteBulkExportManifest(result, "markdown", manifestPath); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		content := th.MustReadFile(t, manifestPath)
		for _, want := range []string{`"failed_exports": 1`, `"status": "failed"`, `"error": "playlist not found"`} {
			if !strings.Contains(content, want) {
				t.Errorf("manifest missing %s", want)
			}
		}
	})

	t.Run("Nil Result", func(t *testing.T) {
		if err := WriteBulkExportManifest(nil, "json", filepath.Join(t.TempDir(), "m.json")); err == nil {
			t.Error("expected error for nil result")
		}
	})

	t.Run("Unwritable Path", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Chmod(dir, 0o500); err != nil {
			t.Skip("cannot change directory permissions")
		}
		defer os.Chmod(dir, 0o755)

		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		if err := WriteBulkExportManifest(&BulkExportResult{}, "json", filepath.Join(dir, "m.json")); err == nil {
			t.Error("expected error writing to a read-only directory")
		}
	})
}
