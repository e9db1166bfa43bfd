package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/plx/internal/shared"
)

const (
	trackOne = `{"id":"t1","type":"track","name":"Glue","duration_ms":269000,"popularity":61,
		"artists":[{"id":"a1","name":"Bicep"}],
		"album":{"name":"Bicep","release_date":"2017-09-01"},
		"external_ids":{"isrc":"GBCFB1700001"}}`
	trackTwo = `{"id":"t2","type":"track","name":"Atlas","duration_ms":287000,
		"artists":[{"id":"a1","name":"Bicep"},{"id":"a2","name":"Guest"}],
		"album":{"name":"Isles","release_date":"2021"}}`
	episode = `{"id":"e1","type":"episode","name":"A Podcast"}`
)

type fakeSpotify struct {
	requests       atomic.Int32
	featuresDenied bool
}

func (f *fakeSpotify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	w.Header().Set("Content-Type", "application/json")

	switch path := r.URL.Path; {
	case path == "/search":
		if !strings.Contains(r.URL.Query().Get("q"), "Bicep") {
			fmt.Fprint(w, `{"tracks":{"items":[],"total":0}}`)
			return
		}
		fmt.Fprintf(w, `{"tracks":{"items":[%s,%s],"total":2}}`, trackOne, trackTwo)
	case path == "/audio-features":
		if f.featuresDenied {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"status":403,"message":"Forbidden"}}`)
			return
		}
		fmt.Fprint(w, `{"audio_features":[
			{"id":"t1","energy":0.81,"tempo":122.0,"valence":0.4,"danceability":0.7},
			{"id":"t2","energy":0.65,"tempo":125.5,"valence":0.3,"danceability":0.6}]}`)
	case path == "/artists":
		fmt.Fprint(w, `{"artists":[{"id":"a1","name":"Bicep","genres":["electronica","uk house"]}]}`)
	case path == "/playlists/missing":
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"status":404,"message":"Not found."}}`)
	case path == "/playlists/p1":
		fmt.Fprint(w, `{"id":"p1","name":"Warehouse","description":"late","public":true,"tracks":{"total":3}}`)
	case path == "/playlists/p1/tracks":
		fmt.Fprintf(w, `{"items":[{"track":%s},{"track":%s},{"track":%s}],"total":3}`, trackOne, episode, trackTwo)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error":{"status":404,"message":"no route %s"}}`, path)
	}
}

func newTestSpotify(t *testing.T, fake *fakeSpotify) *SpotifyService {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(context.Background(), SpotifyOpts{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Logger:     shared.NewLogger(nil),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Missing Credentials", func(t *testing.T) {
			_, err := NewSpotifyService(context.Background(), SpotifyOpts{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Placeholder Credentials", func(t *testing.T) {
			_, err := NewSpotifyService(context.Background(), SpotifyOpts{
				Config: shared.SpotifyConfig{ClientID: "your_client_id", ClientSecret: "your_client_secret"},
			})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Client Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(context.Background(), SpotifyOpts{
				Config: shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret", RateLimit: 5},
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})
	})

	t.Run("Search", func(t *testing.T) {
		t.Run("Converts And Enriches Tracks", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})

			tracks, err := srv.Search(context.Background(), `artist:"Bicep"`, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}

			glue := tracks[0]
			if glue.CatalogID != "t1" || glue.Name != "Glue" || glue.Artist != "Bicep" || glue.DurationMS != 269000 {
				t.Errorf("unexpected track %+v", glue)
			}
			if glue.ISRC != "GBCFB1700001" || glue.ReleaseDate != "2017-09-01" || glue.Year() != 2017 {
				t.Errorf("expected ISRC and release date, got %+v", glue)
			}
			if glue.Energy == nil || *glue.Energy < 0.8 || glue.Tempo == nil || *glue.Tempo != 122 {
				t.Errorf("expected audio features, got energy=%v tempo=%v", glue.Energy, glue.Tempo)
			}
			if len(glue.Genres) != 2 || glue.Genres[1] != "uk house" {
				t.Errorf("expected artist genres, got %v", glue.Genres)
			}
			if glue.Popularity == nil || *glue.Popularity != 61 {
				t.Errorf("expected popularity 61, got %v", glue.Popularity)
			}

			if tracks[1].Artist != "Bicep, Guest" || tracks[1].Position != 1 {
				t.Errorf("expected joined artists and position, got %+v", tracks[1])
			}
		})

		t.Run("Serves Repeated Queries From Cache", func(t *testing.T) {
			fake := &fakeSpotify{}
			srv := newTestSpotify(t, fake)

			first, err := srv.Search(context.Background(), `artist:"Bicep"`, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			calls := fake.requests.Load()

			first[0].Name = "mutated"
			second, err := srv.Search(context.Background(), `artist:"Bicep"`, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if fake.requests.Load() != calls {
				t.Errorf("expected cached result, got %d new requests", fake.requests.Load()-calls)
			}
			if second[0].Name != "Glue" {
				t.Errorf("expected cache to be isolated from callers, got %s", second[0].Name)
			}
		})

		t.Run("Evicts Expired Entries", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			past := time.Now().Add(-time.Minute)
			srv.cache["stale|10"] = searchEntry{expiresAt: past}
			srv.cache["old|10"] = searchEntry{expiresAt: past}

			if _, ok := srv.cached("stale|10"); ok {
				t.Error("expected expired entry to miss")
			}
			if _, ok := srv.cache["stale|10"]; ok {
				t.Error("expected expired entry to be removed on lookup")
			}

			if _, err := srv.Search(context.Background(), `artist:"Bicep"`, 10); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if _, ok := srv.cache["old|10"]; ok {
				t.Error("expected expired entries to be swept on store")
			}
			if len(srv.cache) != 1 {
				t.Errorf("expected only the fresh entry, got %d entries", len(srv.cache))
			}
		})

		t.Run("Denied Audio Features Leave Attributes Unset", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{featuresDenied: true})

			tracks, err := srv.Search(context.Background(), `artist:"Bicep"`, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tracks[0].Energy != nil || tracks[0].Tempo != nil {
				t.Error("expected no audio features")
			}
			if len(tracks[0].Genres) == 0 {
				t.Error("expected genres to still be filled")
			}
		})

		t.Run("Empty Query", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			if _, err := srv.Search(context.Background(), "  ", 10); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("No Results", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			tracks, err := srv.Search(context.Background(), "nothing matches", 10)
			if err != nil || len(tracks) != 0 {
				t.Errorf("expected empty result, got %v (%v)", tracks, err)
			}
		})
	})

	t.Run("ExportPlaylist", func(t *testing.T) {
		t.Run("Skips Episodes And Numbers Tracks", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})

			export, err := srv.ExportPlaylist(context.Background(), "p1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if export.Playlist.Name != "Warehouse" || !export.Playlist.Public || export.Playlist.CatalogID != "p1" {
				t.Errorf("unexpected playlist %+v", export.Playlist)
			}
			if len(export.Tracks) != 2 || export.Playlist.TrackCount != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(export.Tracks))
			}
			for i, track := range export.Tracks {
				if track.Position != i {
					t.Errorf("expected position %d, got %d", i, track.Position)
				}
			}
		})

		t.Run("Unknown Playlist", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			if _, err := srv.ExportPlaylist(context.Background(), "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})
}
