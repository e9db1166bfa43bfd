// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for editing stored playlists:
//  1. [PlaylistListView] : Browse and filter stored playlists
//  2. [TrackListView] : Inspect tracks with duration, tempo and energy
//  3. [CommandView] : Type a natural-language edit command
//  4. [EditingView] : Monitor real-time progress updates from the edit engine
//  5. [ResultView] : Show the explanation, changes and suggestions
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the edit engine, providing non-blocking status reporting during edits.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, e, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
