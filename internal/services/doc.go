// Package services talks to the systems the editor depends on but does not own.
//
// # Catalog
//
// [SpotifyService] implements [Catalog] with github.com/zmb3/spotify/v2 over a client-credentials
// token source. Search results and exported playlists are enriched with audio features
// (energy, tempo, valence, ...) and primary-artist genres. Enrichment is best effort: when the API
// refuses those endpoints the attributes stay unset and the editor falls back to neutral defaults.
// Identical searches are served from a short-lived in-memory cache.
//
// # Completion
//
// [OpenAIService] implements [Completer] against an OpenAI-compatible /chat/completions endpoint,
// requesting JSON-mode replies at temperature 0. It backs both command classification and mood
// replacement suggestions.
//
// # Error Handling
//
// Both services are rate limited with golang.org/x/time/rate and map HTTP failures onto shared sentinels:
//   - [shared.ErrInvalidCredentials] : 401/403
//   - [shared.ErrRateLimited] : 429
//   - [shared.ErrPlaylistNotFound] : catalog 404
//   - [shared.ErrAPIRequest] : anything else
//
// [APIService] is the raw JSON client underneath the completion service.
package services
