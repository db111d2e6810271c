package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ShortURL/config"
	"github.com/sifan077/ShortURL/internal/app/cache"
	"github.com/sifan077/ShortURL/internal/app/encoder"
	"github.com/sifan077/ShortURL/internal/app/model"
	"github.com/sifan077/ShortURL/internal/app/repository"
	"github.com/sifan077/ShortURL/internal/app/service"
	"github.com/sifan077/ShortURL/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv   *Server
	svc   *service.ShorteningService
	store *repository.MemoryShortURLRepository
}

func newFixture(t *testing.T, deps Dependencies) *fixture {
	t.Helper()

	store := repository.NewMemoryShortURLRepository()
	repo := repository.NewCachedShortURLRepository(store, cache.NewMemory[model.ReadShortURL](), repository.DefaultCachePolicy(), nil)
	enc, err := encoder.New(encoder.Config{Salt: "server-test", MinLength: 7})
	require.NoError(t, err)

	svc := service.NewShorteningService(repo, enc, nil)
	deps.Shortener = svc

	return &fixture{srv: New(deps), svc: svc, store: store}
}

func (f *fixture) shorten(t *testing.T, longURL string) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(`{"longUrl":"`+longURL+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestServer_ShortenAndRedirect(t *testing.T) {
	f := newFixture(t, Dependencies{})

	shortURL := f.shorten(t, "https://example.com/a")
	require.True(t, strings.HasPrefix(shortURL, "http://example.com/"), shortURL)
	path := strings.TrimPrefix(shortURL, "http://example.com")

	resp, err := f.srv.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/a", resp.Header.Get("Location"))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	resp, err = f.srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body model.ReadShortURL
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "https://example.com/a", body.LongURL)

	f.svc.Wait()
	record, err := f.store.Record(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), record.ClickCount)
}

func TestServer_UnknownCode(t *testing.T) {
	f := newFixture(t, Dependencies{})

	resp, err := f.srv.App().Test(httptest.NewRequest(http.MethodGet, "/unknown-code", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RateLimitAndHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t, Dependencies{
		Redis:     rdb,
		RateLimit: config.RateLimitConfig{Enabled: true, MaxRequests: 1, Window: time.Minute},
	})

	resp, err := f.srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = f.srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
