package utils

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestHTTPClient_GetJSON(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"moviedex"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second)
	c.SetHeader("Authorization", "Bearer abc")

	var p payload
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &p))
	assert.Equal(t, "moviedex", p.Name)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestHTTPClient_GetJSONGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"name":"zipped"}`))
		_ = gz.Close()
	}))
	defer srv.Close()

	var p payload
	require.NoError(t, NewHTTPClient(time.Second).GetJSON(context.Background(), srv.URL, &p))
	assert.Equal(t, "zipped", p.Name)
}

func TestHTTPClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var p payload
	err := NewHTTPClient(time.Second).GetJSON(context.Background(), srv.URL, &p)
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestHTTPClient_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":`))
	}))
	defer srv.Close()

	var p payload
	assert.Error(t, NewHTTPClient(time.Second).GetJSON(context.Background(), srv.URL, &p))
}

func TestHTTPClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second)
	c.SetRateLimit(0.001, 1)

	var p payload
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &p))

	// 令牌已用完，下一次请求需要等待远超超时时间
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.GetJSON(ctx, srv.URL, &p))
}
