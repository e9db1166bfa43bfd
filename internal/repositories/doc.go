// Package repositories implements the SQLite track store for playlists, their ordered tracks and edit history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [PlaylistRepository] : Playlist persistence with catalog ID lookups and theme storage
//   - [TrackRepository] : Ordered playlist tracks; positions stay contiguous across removals and edits
//   - [EditRepository] : Append-only history of applied edit commands
//
// [TrackRepository.ReplaceTracks] persists an edit result in one transaction: tracks missing from the
// new listing are soft-deleted, kept tracks are renumbered and new tracks are inserted.
package repositories
