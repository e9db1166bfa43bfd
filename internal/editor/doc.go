// Package editor turns natural-language edit commands into deterministic track-list transformations.
//
// A [Classifier] maps free text onto a closed taxonomy of six command types, each with a fixed action
// vocabulary. [PlaylistEditor] dispatches the typed command to its strategy:
//   - [Filter] : remove tracks failing a predicate (duration, release year, genre, energy)
//   - [Sort] : stable reorderings by tempo, energy, year or valence, plus the energy curve
//   - [MoodTransformer] : report tracks that miss a target mood, with replacement suggestions
//   - [Expander] : append catalog tracks related to the playlist's artists, genres or era
//   - [Refine] : drop banned songs and avoided artists
//   - [Theme] : record a theme without touching the tracks
//
// Strategies never mutate their input. Missing audio attributes take neutral defaults
// (energy 0.5, tempo 120, valence 0.5), so incomplete analysis alone never drops or moves a track.
// Failures of the catalog or completion oracle inside a strategy degrade to an unchanged result
// with an explanation; they are logged, not returned.
package editor
