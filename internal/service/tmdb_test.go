package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moviedex/internal/config"
	"github.com/user/moviedex/internal/utils"
)

func newTestTMDB(t *testing.T, handler http.HandlerFunc) *TMDBService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTMDBService(&config.Config{
		TMDBAPIKey:        "key",
		TMDBBaseURL:       srv.URL,
		ImageBaseURL:      "https://image.tmdb.org/t/p/",
		VideoEmbedBaseURL: "https://www.youtube.com/embed",
		HTTPTimeout:       2 * time.Second,
	})
}

func TestTMDB_Search(t *testing.T) {
	svc := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "matrix", r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"page":2,"total_pages":3,"results":[
			{"id":603,"title":"The Matrix","poster_path":"/m.jpg","release_date":"1999-03-30","vote_average":8.2,"genre_ids":[28,878]},
			{"id":604,"title":"The Matrix Reloaded","poster_path":null,"release_date":""}
		]}`))
	})

	page, err := svc.Search(context.Background(), "matrix", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Results, 2)

	first := page.Results[0]
	assert.Equal(t, 603, first.ID)
	assert.Equal(t, "/m.jpg", first.Poster())
	assert.Equal(t, "1999", first.Year())
	assert.Equal(t, []int{28, 878}, first.GenreIDs)

	second := page.Results[1]
	assert.Nil(t, second.PosterPath)
	assert.Nil(t, second.ReleaseDate, "empty release date is treated as absent")
	assert.Nil(t, second.VoteAverage)
}

func TestTMDB_Trending(t *testing.T) {
	svc := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/movie/day", r.URL.Path)
		_, _ = w.Write([]byte(`{"page":1,"total_pages":500,"results":[{"id":1,"title":"A"}]}`))
	})

	page, err := svc.Trending(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 500, page.TotalPages)
	assert.Equal(t, "A", page.Results[0].Title)
}

func TestTMDB_BearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"genres":[{"id":28,"name":"Action"}]}`))
	}))
	defer srv.Close()

	svc := NewTMDBService(&config.Config{TMDBToken: "tok", TMDBBaseURL: srv.URL, HTTPTimeout: time.Second})
	genres, err := svc.Genres(context.Background())
	require.NoError(t, err)
	require.Len(t, genres, 1)
	assert.Equal(t, "Action", genres[0].Name)
}

func TestTMDB_DetailsPicksFirstYouTubeTrailer(t *testing.T) {
	svc := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/603", r.URL.Path)
		assert.Equal(t, "videos,credits", r.URL.Query().Get("append_to_response"))
		_, _ = w.Write([]byte(`{
			"id":603,"title":"The Matrix","tagline":"Welcome to the Real World.","vote_count":25000,"vote_average":8.2,
			"genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}],
			"videos":{"results":[
				{"key":"teaser","site":"YouTube","type":"Teaser"},
				{"key":"vimeo","site":"Vimeo","type":"Trailer"},
				{"key":"yt1","site":"YouTube","type":"Trailer"},
				{"key":"yt2","site":"YouTube","type":"Trailer"}
			]},
			"credits":{"cast":[
				{"name":"Keanu Reeves","character":"Neo","profile_path":"/k.jpg"},
				{"name":"Carrie-Anne Moss","character":"Trinity","profile_path":null}
			]}
		}`))
	})

	d, err := svc.Details(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, "yt1", d.Trailer())
	assert.Equal(t, "Welcome to the Real World.", d.Tagline)
	assert.Equal(t, 25000, d.VoteCount)
	assert.Len(t, d.Genres, 2)
	require.Len(t, d.Cast, 2)
	assert.Equal(t, "/k.jpg", d.Cast[0].ProfileImagePath)
	assert.Empty(t, d.Cast[1].ProfileImagePath)
}

func TestTMDB_DetailsWithoutTrailer(t *testing.T) {
	svc := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"title":"Quiet","videos":{"results":[{"key":"x","site":"YouTube","type":"Clip"}]}}`))
	})

	d, err := svc.Details(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, d.TrailerKey)
	assert.Empty(t, d.Genres)
	assert.Empty(t, d.Cast)
}

func TestTMDB_RemoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkAs bool
	}{
		{name: "http status", status: http.StatusUnauthorized, body: `{"status_message":"Invalid API key"}`, checkAs: true},
		{name: "malformed body", status: http.StatusOK, body: `{"page":`},
		{name: "record without id", status: http.StatusOK, body: `{"page":1,"total_pages":1,"results":[{"title":"nameless"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.Trending(context.Background(), 1)
			require.Error(t, err)

			var remote *RemoteError
			require.True(t, errors.As(err, &remote))
			assert.Equal(t, "trending", remote.Op)

			if tt.checkAs {
				var statusErr *utils.HTTPStatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.status, statusErr.StatusCode)
			}
		})
	}
}

func TestTMDB_TransportErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	svc := NewTMDBService(&config.Config{
		TMDBAPIKey:  "s3cret-key",
		TMDBBaseURL: baseURL,
		HTTPTimeout: time.Second,
	})
	_, err := svc.Trending(context.Background(), 1)
	require.Error(t, err)

	var urlErr *url.Error
	require.ErrorAs(t, err, &urlErr)
	assert.NotContains(t, err.Error(), "s3cret-key")
	assert.Contains(t, urlErr.URL, "api_key=REDACTED")
}

func TestTMDB_ImageAndVideoURL(t *testing.T) {
	svc := NewTMDBService(&config.Config{
		ImageBaseURL:      "https://image.tmdb.org/t/p/",
		VideoEmbedBaseURL: "https://www.youtube.com/embed/",
	})

	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", svc.ImageURL("/abc.jpg", ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/w185/abc.jpg", svc.ImageURL("/abc.jpg", "w185"))
	assert.Empty(t, svc.ImageURL("", "w500"))
	assert.Equal(t, "https://www.youtube.com/embed/yt1", svc.VideoEmbedURL("yt1"))
	assert.Empty(t, svc.VideoEmbedURL(""))
}
