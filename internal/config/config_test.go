package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "SITE_NAME", "HTTP_TIMEOUT_SECONDS", "SESSION_IDLE_MINUTES", "CORS_ORIGINS", "TMDB_BASE_URL", "TMDB_RATE_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "5005", cfg.Port)
	assert.Equal(t, "Moviedex", cfg.SiteName)
	assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDBBaseURL)
	assert.Equal(t, "https://image.tmdb.org/t/p", cfg.ImageBaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 120*time.Minute, cfg.SessionIdle)
	assert.Equal(t, 40, cfg.TMDBRateLimit)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("TMDB_TOKEN", "tok")
	t.Setenv("TMDB_RATE_LIMIT", "0")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "tok", cfg.TMDBToken)
	assert.Equal(t, 0, cfg.TMDBRateLimit)
}

func TestLoad_InvalidIntegerFallsBack(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT_SECONDS", "soon")
	t.Setenv("SESSION_CACHE_SIZE", "-3")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 1024, cfg.SessionCacheSize)
}
