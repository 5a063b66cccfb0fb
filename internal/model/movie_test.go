package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestMovie_DisplayFields(t *testing.T) {
	tests := []struct {
		name   string
		movie  Movie
		year   string
		rating string
		tier   string
	}{
		{name: "complete", movie: Movie{ReleaseDate: ptr("1999-03-30"), VoteAverage: ptr(8.24)}, year: "1999", rating: "8.2", tier: "high"},
		{name: "good", movie: Movie{ReleaseDate: ptr("2010"), VoteAverage: ptr(6.0)}, year: "2010", rating: "6.0", tier: "good"},
		{name: "fair", movie: Movie{VoteAverage: ptr(4.4)}, year: "N/A", rating: "4.4", tier: "fair"},
		{name: "unrated", movie: Movie{VoteAverage: ptr(0.0)}, year: "N/A", rating: "N/A", tier: "poor"},
		{name: "missing everything", movie: Movie{ReleaseDate: ptr("20")}, year: "N/A", rating: "N/A", tier: "poor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.year, tt.movie.DisplayYear())
			assert.Equal(t, tt.rating, tt.movie.DisplayRating())
			assert.Equal(t, tt.tier, tt.movie.RatingTier())
		})
	}
}

func TestMovie_PosterAndGenre(t *testing.T) {
	m := Movie{PosterPath: ptr("/p.jpg"), GenreIDs: []int{28, 12}}
	assert.Equal(t, "/p.jpg", m.Poster())
	assert.True(t, m.HasGenre(12))
	assert.False(t, m.HasGenre(35))
	assert.Empty(t, Movie{}.Poster())
}

func TestMovieDetails_TrailerAndCast(t *testing.T) {
	d := MovieDetails{Cast: make([]CastMember, 8)}
	assert.Empty(t, d.Trailer())
	assert.Len(t, d.TopCast(6), 6)

	d.TrailerKey = ptr("yt")
	d.Cast = d.Cast[:2]
	assert.Equal(t, "yt", d.Trailer())
	assert.Len(t, d.TopCast(6), 2)
}
