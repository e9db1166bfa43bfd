// Package models defines domain entities and persistence interfaces for the plx playlist editor.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): plain structs exchanged with the editor, the catalog and HTTP clients
//   - [Track] : one song in a playlist, with optional audio attributes
//   - [Playlist] : playlist metadata
//   - [PlaylistExport] : playlist with its ordered track listing
//   - [UserPreferences] : favorite/avoided artists, banned songs, tempo and genre preferences
//   - [EditResult] : tracks, explanation and change log produced by an edit
//
// 2. Persistent Entities: database-backed models with lifecycle timestamps and soft delete support
//   - [PersistedPlaylist] : a locally stored playlist that edits are applied to
//   - [EditRecord] : history entry for one applied edit
//
// All persistent entities implement the Model interface.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
