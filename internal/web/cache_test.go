package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runixer/trendstudio/internal/audit"
	"github.com/runixer/trendstudio/internal/storage"
	"github.com/runixer/trendstudio/internal/testutil"
	"github.com/runixer/trendstudio/internal/trend"
)

func TestResponseCacheSetAfterInvalidate(t *testing.T) {
	c, err := newResponseCache(10, time.Minute)
	require.NoError(t, err)
	t.Cleanup(c.close)

	gen := c.generation()
	c.invalidate()
	assert.False(t, c.set("k", []byte(`{}`), gen), "stale generation is not stored")
	c.c.Wait()
	_, ok := c.get("k")
	assert.False(t, ok)

	assert.True(t, c.set("k", []byte(`{}`), c.generation()))
	c.c.Wait()
	body, ok := c.get("k")
	require.True(t, ok)
	assert.Equal(t, `{}`, string(body))
}

// pausingTrendRepo holds the first GetTrend call after it has read the row.
type pausingTrendRepo struct {
	storage.TrendRepository
	paused  atomic.Bool
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingTrendRepo) GetTrend(id int64) (*storage.Trend, error) {
	t, err := p.TrendRepository.GetTrend(id)
	if p.paused.CompareAndSwap(false, true) {
		close(p.loaded)
		<-p.release
	}
	return t, err
}

func TestTrendReadRacingMutationIsNotCached(t *testing.T) {
	logger := testutil.TestLogger()
	cfg := testutil.TestConfig()
	store := testutil.TestStore(t)
	recorder := audit.NewRecorder(store, logger)

	created, err := trend.NewService(store, recorder, logger).Create(context.Background(), trend.Input{Slug: "racy", Title: "Old"})
	require.NoError(t, err)

	repo := &pausingTrendRepo{TrendRepository: store, loaded: make(chan struct{}), release: make(chan struct{})}
	srv, err := NewServer(logger, cfg, store, trend.NewService(repo, recorder, logger), nil, recorder)
	require.NoError(t, err)
	t.Cleanup(srv.cache.close)
	handler := srv.Handler()
	path := "/api/trends/" + itoa(created.ID)

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- serve(httptest.NewRequest(http.MethodGet, path, nil))
	}()

	select {
	case <-repo.loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("read never reached the repository")
	}

	patch := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"title":"New"}`))
	require.Equal(t, http.StatusOK, serve(patch).Code)

	close(repo.release)
	stale := <-done
	require.Equal(t, http.StatusOK, stale.Code)
	assert.Equal(t, "Old", decode[trend.Trend](t, stale).Title)
	srv.cache.c.Wait()

	rr := serve(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "New", decode[trend.Trend](t, rr).Title)
}
