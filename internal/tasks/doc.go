// Package tasks runs playlist edits end to end with real-time progress reporting.
//
// # Core Operations
//
// [EditEngine] ties the editor to the track store:
//
//  1. [EditEngine.Edit] : free-text edit
//     - Loads the playlist and its ordered tracks
//     - Classifies the command and runs the matching strategy
//     - Replaces the stored tracks with the result and saves any theme
//     - Records the edit in the playlist's history
//
//  2. [EditEngine.ApplyCommand] : the same pipeline for an already-structured command
//
//  3. [EditEngine.Import] and [EditEngine.BulkImport] : copy catalog playlists into the store
//
//  4. [EditEngine.BulkExport] : write stored playlists to json, csv, markdown or txt with a manifest
//
// Only one edit may run per playlist at a time. A second edit of a busy playlist fails
// with shared.ErrEditInProgress.
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate]. Sends never block;
// updates are dropped when the channel is full.
package tasks
