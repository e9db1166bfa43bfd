// Spotify catalog implementation backed by github.com/zmb3/spotify/v2
//
// Uses the client-credentials grant: catalog search and public playlists only, no user scopes.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	maxSearchLimit   = 50
	playlistPageSize = 100
	featuresBatch    = 100
	artistsBatch     = 50
	searchCacheTTL   = 15 * time.Minute
)

type searchEntry struct {
	tracks    []models.Track
	expiresAt time.Time
}

// SpotifyService implements [Catalog] against the Spotify Web API.
//
// Search results are enriched with audio features and artist genres when the API allows it;
// enrichment failures are logged and leave the attributes unset.
type SpotifyService struct {
	client  *spotify.Client
	limiter *rate.Limiter
	logger  *log.Logger

	cacheMu sync.Mutex
	cache   map[string]searchEntry
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	Config     shared.SpotifyConfig
	HTTPClient *http.Client // used as-is instead of the client-credentials client when set
	BaseURL    string
	Logger     *log.Logger
}

// NewSpotifyService creates a catalog client. Without an HTTPClient it authenticates with the
// client-credentials grant, which requires a client ID and secret.
func NewSpotifyService(ctx context.Context, opts SpotifyOpts) (*SpotifyService, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		cfg := opts.Config
		if cfg.ClientID == "" || cfg.ClientSecret == "" ||
			strings.HasPrefix(cfg.ClientID, "your_") || strings.HasPrefix(cfg.ClientSecret, "your_") {
			return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
		}
		creds := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
		httpClient = creds.Client(ctx)
	}

	var clientOpts []spotify.ClientOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}

	limit := rate.Inf
	if opts.Config.RateLimit > 0 {
		limit = rate.Limit(opts.Config.RateLimit)
	}

	return &SpotifyService{
		client:  spotify.New(httpClient, clientOpts...),
		limiter: rate.NewLimiter(limit, 1),
		logger:  opts.Logger,
		cache:   make(map[string]searchEntry),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

func (s *SpotifyService) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	return nil
}

// Search implements editor.CatalogSearch. Queries may use Spotify field filters such as
// artist:"Name", genre:"house" or year:1990-1999.
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}
	limit = min(max(limit, 1), maxSearchLimit)

	key := fmt.Sprintf("%s|%d", query, limit)
	if tracks, ok := s.cached(key); ok {
		s.logger.Debug("search cache hit", "query", query)
		return tracks, nil
	}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	result, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, s.wrap(err, "search %q", query)
	}

	var full []spotify.FullTrack
	if result.Tracks != nil {
		full = result.Tracks.Tracks
	}

	tracks := make([]models.Track, 0, len(full))
	artists := make([]string, 0, len(full))
	for i := range full {
		t, artistID := convertTrack(&full[i])
		t.Position = i
		tracks = append(tracks, t)
		artists = append(artists, artistID)
	}
	s.enrich(ctx, tracks, artists)

	s.store(key, tracks)
	return cloneTracks(tracks), nil
}

func (s *SpotifyService) cached(key string) ([]models.Track, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.cache, key)
		return nil, false
	}
	return cloneTracks(entry.tracks), true
}

// store caches tracks under key and drops every expired entry.
func (s *SpotifyService) store(key string, tracks []models.Track) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	now := time.Now()
	for k, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, k)
		}
	}
	s.cache[key] = searchEntry{tracks: tracks, expiresAt: now.Add(searchCacheTTL)}
}

// GetPlaylist retrieves playlist metadata by catalog ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	pl, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, s.wrap(err, "playlist %s", playlistID)
	}

	return &models.Playlist{
		CatalogID:   string(pl.ID),
		Name:        pl.Name,
		Description: pl.Description,
		TrackCount:  int(pl.Tracks.Total),
		Public:      pl.IsPublic,
	}, nil
}

// ExportPlaylist retrieves a playlist with every track, in order, enriched with audio features and genres.
// Podcast episodes and unavailable items are skipped.
func (s *SpotifyService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := s.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	var (
		tracks  []models.Track
		artists []string
	)
	for offset := 0; ; offset += playlistPageSize {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(playlistPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, s.wrap(err, "playlist %s items at offset %d", playlistID, offset)
		}

		for _, item := range page.Items {
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			t, artistID := convertTrack(item.Track.Track)
			t.Position = len(tracks)
			tracks = append(tracks, t)
			artists = append(artists, artistID)
		}

		if len(page.Items) < playlistPageSize {
			break
		}
	}

	s.enrich(ctx, tracks, artists)
	playlist.TrackCount = len(tracks)
	return &models.PlaylistExport{Playlist: *playlist, Tracks: tracks}, nil
}

// enrich fills audio features and artist genres in place. artists holds each track's primary artist ID.
func (s *SpotifyService) enrich(ctx context.Context, tracks []models.Track, artists []string) {
	if len(tracks) == 0 {
		return
	}
	if err := s.addAudioFeatures(ctx, tracks); err != nil {
		s.logger.Warn("audio features unavailable", "err", err)
	}
	if err := s.addGenres(ctx, tracks, artists); err != nil {
		s.logger.Warn("artist genres unavailable", "err", err)
	}
}

func (s *SpotifyService) addAudioFeatures(ctx context.Context, tracks []models.Track) error {
	for start := 0; start < len(tracks); start += featuresBatch {
		batch := tracks[start:min(start+featuresBatch, len(tracks))]
		ids := make([]spotify.ID, len(batch))
		for i, t := range batch {
			ids[i] = spotify.ID(t.CatalogID)
		}

		if err := s.wait(ctx); err != nil {
			return err
		}
		features, err := s.client.GetAudioFeatures(ctx, ids...)
		if err != nil {
			return s.wrap(err, "audio features")
		}

		for i, f := range features {
			if f == nil || i >= len(batch) {
				continue
			}
			applyFeatures(&batch[i], f)
		}
	}
	return nil
}

func (s *SpotifyService) addGenres(ctx context.Context, tracks []models.Track, artists []string) error {
	artistIDs := distinctIDs(artists)
	genres := make(map[string][]string, len(artistIDs))

	for start := 0; start < len(artistIDs); start += artistsBatch {
		batch := artistIDs[start:min(start+artistsBatch, len(artistIDs))]
		if err := s.wait(ctx); err != nil {
			return err
		}
		artists, err := s.client.GetArtists(ctx, batch...)
		if err != nil {
			return s.wrap(err, "artists")
		}
		for _, a := range artists {
			if a != nil {
				genres[string(a.ID)] = a.Genres
			}
		}
	}

	for i := range tracks {
		if i >= len(artists) {
			break
		}
		if g := genres[artists[i]]; len(g) > 0 {
			tracks[i].Genres = append([]string(nil), g...)
		}
	}
	return nil
}

// wrap maps API errors onto shared sentinels.
func (s *SpotifyService) wrap(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %s", shared.ErrPlaylistNotFound, what, apiErr.Message)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %s", shared.ErrInvalidCredentials, what, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s: %s", shared.ErrRateLimited, what, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrAPIRequest, what, err)
}

// convertTrack maps a catalog track and returns its primary artist ID alongside.
func convertTrack(t *spotify.FullTrack) (models.Track, string) {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}

	track := models.Track{
		CatalogID:   string(t.ID),
		Name:        t.Name,
		Artist:      strings.Join(names, ", "),
		Album:       t.Album.Name,
		DurationMS:  int(t.Duration),
		ISRC:        t.ExternalIDs["isrc"],
		ReleaseDate: t.Album.ReleaseDate,
	}
	if t.Popularity > 0 {
		track.Popularity = models.Int(int(t.Popularity))
	}

	var artistID string
	if len(t.Artists) > 0 {
		artistID = string(t.Artists[0].ID)
	}
	return track, artistID
}

func applyFeatures(t *models.Track, f *spotify.AudioFeatures) {
	t.Energy = models.Float(float64(f.Energy))
	t.Danceability = models.Float(float64(f.Danceability))
	t.Acousticness = models.Float(float64(f.Acousticness))
	t.Instrumentalness = models.Float(float64(f.Instrumentalness))
	t.Liveness = models.Float(float64(f.Liveness))
	t.Speechiness = models.Float(float64(f.Speechiness))
	t.Valence = models.Float(float64(f.Valence))
	t.Tempo = models.Float(float64(f.Tempo))
	t.Loudness = models.Float(float64(f.Loudness))
}

func distinctIDs(ids []string) []spotify.ID {
	var (
		out  []spotify.ID
		seen = map[string]bool{}
	)
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, spotify.ID(id))
	}
	return out
}

func cloneTracks(tracks []models.Track) []models.Track {
	out := make([]models.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}
