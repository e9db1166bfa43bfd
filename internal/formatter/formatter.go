// package formatter provides functions to export playlist data to various formats (CSV, Markdown, plain text)
// and to render edit results for terminal output.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

var csvHeaders = []string{"ID", "Name", "Artist", "Album", "Duration", "ISRC", "Tempo", "Energy", "Year", "Genres"}

// ExportToCSV converts a PlaylistExport to CSV format with one row per track.
//
// Missing audio attributes and release years are written as empty cells.
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Name,
			track.Artist,
			track.Album,
			shared.FormatDuration(track.DurationMS),
			track.ISRC,
			optionalFloat(track.Tempo, 1),
			optionalFloat(track.Energy, 2),
			optionalYear(track),
			strings.Join(track.Genres, "; "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to a Markdown document with a track table
func ExportToMarkdown(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)

	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Playlist.Description)
	}
	if export.Playlist.Theme != "" {
		fmt.Fprintf(&buf, "**Theme**: %s\n\n", export.Playlist.Theme)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d (%s)\n", len(export.Tracks), shared.FormatDuration(totalDuration(export.Tracks)))
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", shared.VisibilityString(export.Playlist.Public))

	buf.WriteString("## Tracks\n\n")
	buf.WriteString("| # | Track | Artist | Album | Length | BPM | Energy |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s | %s |\n",
			i+1,
			escapeCell(track.Name),
			escapeCell(track.Artist),
			escapeCell(track.Album),
			shared.FormatDuration(track.DurationMS),
			orDash(optionalFloat(track.Tempo, 0)),
			orDash(optionalFloat(track.Energy, 2)),
		)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artist, track.Name, shared.FormatDuration(track.DurationMS))
	}

	return buf.Bytes(), nil
}

// FormatEditResult renders an edit result as plain text: the explanation, the change log,
// any replacement suggestions and the resulting track count.
func FormatEditResult(result *models.EditResult) string {
	if result == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(result.Explanation)
	b.WriteString("\n")

	if len(result.Changes) > 0 {
		b.WriteString("\nChanges:\n")
		for _, change := range result.Changes {
			fmt.Fprintf(&b, "  - %s\n", change)
		}
	}

	if len(result.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range result.Suggestions {
			fmt.Fprintf(&b, "  - %s by %s", s.Name, s.Artist)
			if s.Reason != "" {
				fmt.Fprintf(&b, " (%s)", s.Reason)
			}
			b.WriteString("\n")
		}
	}

	if result.Theme != "" {
		fmt.Fprintf(&b, "\nTheme: %s\n", result.Theme)
	}

	n := len(result.Tracks)
	fmt.Fprintf(&b, "\n%d %s, %s total\n", n, shared.Pluralize(n, "track", "tracks"), shared.FormatDuration(totalDuration(result.Tracks)))
	return b.String()
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a playlist to {outputDir}/README.md, creating the directory.
//
// Directory name defaults to the playlist ID.
func WriteMarkdownExport(export *models.PlaylistExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.Playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(export *models.PlaylistExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", export.Playlist.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the full export, tracks included, as indented JSON.
func WriteJSONExport(export *models.PlaylistExport, path string) (string, error) {
	if path == "" {
		path = export.Playlist.ID + ".json"
	}

	data, err := shared.MarshalJSON(export, true)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

func optionalFloat(v *float64, precision int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

func optionalYear(t models.Track) string {
	if y := t.Year(); y > 0 {
		return strconv.Itoa(y)
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func totalDuration(tracks []models.Track) int {
	var total int
	for _, t := range tracks {
		total += t.DurationMS
	}
	return total
}
