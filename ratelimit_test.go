package goshawk_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-dev/goshawk"
)

func newLimitedRouter(t *testing.T, cfg goshawk.RateLimitConfig) *goshawk.Router {
	t.Helper()
	r := goshawk.New()
	r.Use(goshawk.RateLimit(cfg))
	require.NoError(t, r.Get("/x", func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.NoContent(), nil
	}))
	return r
}

func TestRateLimit_burstThenReject(t *testing.T) {
	t.Parallel()

	r := newLimitedRouter(t, goshawk.RateLimitConfig{Rate: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		resp, err := dispatch(t, r, http.MethodGet, "/x")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.Status, "request %d", i)
	}

	resp, err := dispatch(t, r, http.MethodGet, "/x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestRateLimit_perKeyIsolation(t *testing.T) {
	t.Parallel()

	r := newLimitedRouter(t, goshawk.RateLimitConfig{
		Rate:    0.001,
		Burst:   1,
		KeyFunc: func(req *goshawk.Request) string { return req.Header.Get("X-API-Key") },
	})

	get := func(key string) *goshawk.Response {
		header := http.Header{}
		header.Set("X-API-Key", key)
		resp, err := dispatchHeaders(t, r, http.MethodGet, "/x", header)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusNoContent, get("alpha").Status)
	assert.Equal(t, http.StatusTooManyRequests, get("alpha").Status)

	// A different key gets its own bucket.
	assert.Equal(t, http.StatusNoContent, get("beta").Status)
}

func TestRateLimit_customOnLimit(t *testing.T) {
	t.Parallel()

	r := newLimitedRouter(t, goshawk.RateLimitConfig{
		Rate:  0.001,
		Burst: 1,
		OnLimit: func(_ *goshawk.Request) *goshawk.Response {
			return goshawk.Text(http.StatusServiceUnavailable, "try later")
		},
	})

	_, err := dispatch(t, r, http.MethodGet, "/x")
	require.NoError(t, err)

	resp, err := dispatch(t, r, http.MethodGet, "/x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, "try later", string(resp.Body))
}
