// Package server exposes the playlist editor over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [BasicRouter] uses [http.ServeMux] internally, so paths may contain wildcards such as {id},
// and chains [Middleware] with justinas/alice: the first middleware added runs first.
//
// # API
//
// [NewAPI] registers the routes below over a [PlaylistService] (normally a tasks.EditEngine):
//
//	GET  /health
//	GET  /playlists?name=
//	GET  /playlists/{id}
//	GET  /playlists/{id}/tracks
//	GET  /playlists/{id}/edits?limit=
//	POST /playlists/{id}/edit    {"command": "...", "userPreferences": {...}}
//
// Errors are returned as {"error": "..."} with the status chosen by [StatusFor]:
// 400 for malformed input, 404 for unknown playlists, 409 while another edit of the same
// playlist is running, 422 when the command cannot be classified or is invalid.
//
// # Middleware
//
// [Recover], [LogRequests], [CommonHeaders] and a token-bucket [RateLimit] wrap every route.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
