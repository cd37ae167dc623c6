package goshawk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-dev/goshawk"
)

func dispatch(t *testing.T, r *goshawk.Router, method, path string) (*goshawk.Response, error) {
	t.Helper()
	req := goshawk.NewTestRequest(method, path, nil, nil)
	return r.Dispatch(goshawk.NewTestContext(context.Background()), req)
}

func TestRouter_Dispatch_basic(t *testing.T) {
	t.Parallel()

	type resp struct {
		Message string `json:"message"`
	}

	r := goshawk.New()
	require.NoError(t, r.Get("/health", func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.JSON(200, resp{Message: "ok"}), nil
	}))

	out, err := dispatch(t, r, http.MethodGet, "/health")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "application/json", out.ContentType())

	var body resp
	require.NoError(t, json.Unmarshal(out.Body, &body))
	assert.Equal(t, "ok", body.Message)
}

func TestRouter_Handle_conflicts(t *testing.T) {
	t.Parallel()

	ok := func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.NoContent(), nil
	}

	r := goshawk.New()
	require.NoError(t, r.Get("/users/{id}", ok))

	// Same shape under a different parameter name still collides.
	err := r.Get("/users/{userID}", ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, goshawk.ErrRouteConflict)

	// A different type constraint is a distinct route.
	require.NoError(t, r.Get("/users/{id:int}", ok))

	// Equivalent paths modulo slash collapsing collide.
	err = r.Get("/users//{x}/", ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, goshawk.ErrRouteConflict)

	// Same pattern, different method is fine.
	require.NoError(t, r.Post("/users/{id}", ok))
}

func TestRouter_Handle_validation(t *testing.T) {
	t.Parallel()

	ok := func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.NoContent(), nil
	}

	r := goshawk.New()
	assert.Error(t, r.Handle("TRACE", "/x", ok))
	assert.Error(t, r.Handle(http.MethodGet, "/x", nil))
	assert.Error(t, r.Get("no-slash", ok))
}

func TestRouter_Handle_afterFreeze(t *testing.T) {
	t.Parallel()

	ok := func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.NoContent(), nil
	}

	r := goshawk.New()
	require.NoError(t, r.Get("/a", ok))
	r.Freeze()

	err := r.Get("/b", ok)
	assert.ErrorIs(t, err, goshawk.ErrFrozen)

	err = r.Use(func(next goshawk.Handler) goshawk.Handler { return next })
	assert.ErrorIs(t, err, goshawk.ErrFrozen)
}

func TestRouter_Resolve_methodNotAllowed(t *testing.T) {
	t.Parallel()

	ok := func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.NoContent(), nil
	}

	r := goshawk.New()
	require.NoError(t, r.Post("/users", ok))
	require.NoError(t, r.Put("/users", ok))
	require.NoError(t, r.Delete("/users", ok))

	_, _, err := r.Resolve(http.MethodGet, "/users")
	require.Error(t, err)

	var mna *goshawk.MethodNotAllowedError
	require.ErrorAs(t, err, &mna)
	assert.Equal(t, []string{"DELETE", "POST", "PUT"}, mna.Allow)
	assert.Equal(t, http.StatusMethodNotAllowed, goshawk.ErrorStatus(err))
}

func TestRouter_Resolve_notFound(t *testing.T) {
	t.Parallel()

	r := goshawk.New()
	_, _, err := r.Resolve(http.MethodGet, "/nowhere")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, goshawk.ErrorStatus(err))
}

func TestRouter_Dispatch_trailingSlash(t *testing.T) {
	t.Parallel()

	r := goshawk.New()
	require.NoError(t, r.Get("/users/{id}", func(_ *goshawk.Context, req *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.Text(200, req.Param("id")), nil
	}))

	for _, path := range []string{"/users/7", "/users/7/", "//users//7"} {
		out, err := dispatch(t, r, http.MethodGet, path)
		require.NoError(t, err, path)
		assert.Equal(t, "7", string(out.Body), path)
	}
}

func TestRouter_Dispatch_nilResponse(t *testing.T) {
	t.Parallel()

	r := goshawk.New()
	require.NoError(t, r.Delete("/things/{id}", func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return nil, nil
	}))

	out, err := dispatch(t, r, http.MethodDelete, "/things/1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, out.Status)
	assert.Empty(t, out.Body)
}

func TestRouter_Routes_listing(t *testing.T) {
	t.Parallel()

	ok := func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.NoContent(), nil
	}

	r := goshawk.New()
	require.NoError(t, r.Get("/users", ok))
	require.NoError(t, r.Post("/users", ok))
	require.NoError(t, r.Get("/users/{id:int}", ok))

	assert.Equal(t, []string{
		"/users GET,POST",
		"/users/{id:int} GET",
	}, r.Routes())
}

func TestRouter_Group(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) goshawk.Middleware {
		return func(next goshawk.Handler) goshawk.Handler {
			return func(c *goshawk.Context, req *goshawk.Request) (*goshawk.Response, error) {
				order = append(order, name)
				return next(c, req)
			}
		}
	}

	r := goshawk.New()
	v1 := r.Group("/v1", mark("group"))
	require.NoError(t, v1.Get("/ping", func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.Text(200, "pong"), nil
	}, mark("route")))

	out, err := dispatch(t, r, http.MethodGet, "/v1/ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", string(out.Body))
	assert.Equal(t, []string{"group", "route"}, order)

	_, err = dispatch(t, r, http.MethodGet, "/ping")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, goshawk.ErrorStatus(err))
}
