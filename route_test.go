package goshawk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-dev/goshawk"
)

func TestParsePattern_errors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		pattern string
		wantErr bool
	}{
		"plain literal":            {pattern: "/users", wantErr: false},
		"untyped param":            {pattern: "/users/{id}", wantErr: false},
		"typed param":              {pattern: "/users/{id:int}", wantErr: false},
		"trailing wildcard":        {pattern: "/files/{rest:path}", wantErr: false},
		"root":                     {pattern: "/", wantErr: false},
		"missing leading slash":    {pattern: "users", wantErr: true},
		"empty pattern":            {pattern: "", wantErr: true},
		"unterminated param":       {pattern: "/users/{id", wantErr: true},
		"empty param name":         {pattern: "/users/{}", wantErr: true},
		"empty typed name":         {pattern: "/users/{:int}", wantErr: true},
		"unknown type":             {pattern: "/users/{id:decimal}", wantErr: true},
		"wildcard not final":       {pattern: "/files/{rest:path}/meta", wantErr: true},
		"brace inside literal":     {pattern: "/us{ers", wantErr: true},
		"close brace only literal": {pattern: "/users}/x", wantErr: true},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := goshawk.ParsePatternErr(tc.pattern)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path   string
		expect []string
	}{
		"simple":          {path: "/a/b", expect: []string{"a", "b"}},
		"trailing slash":  {path: "/a/b/", expect: []string{"a", "b"}},
		"doubled slashes": {path: "/a//b", expect: []string{"a", "b"}},
		"root":            {path: "/", expect: []string{}},
		"empty":           {path: "", expect: []string{}},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expect, goshawk.SplitPath(tc.path))
		})
	}
}

func TestResolve_typedParams(t *testing.T) {
	t.Parallel()

	ok := func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.NoContent(), nil
	}

	r := goshawk.New()
	require.NoError(t, r.Get("/items/{id:int}", ok))
	require.NoError(t, r.Get("/items/{id:uuid}", ok))
	require.NoError(t, r.Get("/blobs/{digest:hex}", ok))
	require.NoError(t, r.Get("/prices/{amount:float}", ok))
	require.NoError(t, r.Get("/counts/{n:uint}", ok))
	require.NoError(t, r.Get("/names/{name}", ok))

	tests := map[string]struct {
		path      string
		wantParam string
		wantValue string
		wantErr   bool
	}{
		"int match":         {path: "/items/42", wantParam: "id", wantValue: "42"},
		"negative int":      {path: "/items/-7", wantParam: "id", wantValue: "-7"},
		"uuid match":        {path: "/items/5f0b6e4e-9f5c-4f52-9d2b-7f3a1c2d4e5f", wantParam: "id", wantValue: "5f0b6e4e-9f5c-4f52-9d2b-7f3a1c2d4e5f"},
		"neither int nor uuid": {path: "/items/abc", wantErr: true},
		"hex match":         {path: "/blobs/deadBEEF01", wantParam: "digest", wantValue: "deadBEEF01"},
		"hex reject":        {path: "/blobs/xyz", wantErr: true},
		"float match":       {path: "/prices/19.99", wantParam: "amount", wantValue: "19.99"},
		"uint reject sign":  {path: "/counts/-3", wantErr: true},
		"str matches any":   {path: "/names/anything-goes", wantParam: "name", wantValue: "anything-goes"},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, params, err := r.Resolve("GET", tc.path)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, 404, goshawk.ErrorStatus(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantValue, params[tc.wantParam])
		})
	}
}

func TestResolve_wildcard(t *testing.T) {
	t.Parallel()

	ok := func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.NoContent(), nil
	}

	r := goshawk.New()
	require.NoError(t, r.Get("/static/{filepath:path}", ok))

	tests := map[string]struct {
		path   string
		expect string
	}{
		"multiple segments": {path: "/static/css/site.css", expect: "css/site.css"},
		"single segment":    {path: "/static/app.js", expect: "app.js"},
		"zero segments":     {path: "/static", expect: ""},
		"trailing slash":    {path: "/static/", expect: ""},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, params, err := r.Resolve("GET", tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, params["filepath"])
		})
	}
}

func TestResolve_precedence(t *testing.T) {
	t.Parallel()

	tag := func(name string) goshawk.Handler {
		return func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
			return goshawk.Text(200, name), nil
		}
	}

	r := goshawk.New()
	require.NoError(t, r.Get("/users/me", tag("literal")))
	require.NoError(t, r.Get("/users/{id:int}", tag("int")))
	require.NoError(t, r.Get("/users/{id}", tag("str")))
	require.NoError(t, r.Get("/users/{rest:path}", tag("wildcard")))

	tests := map[string]struct {
		path   string
		expect string
	}{
		"literal wins":            {path: "/users/me", expect: "/users/me"},
		"first param edge wins":   {path: "/users/42", expect: "/users/{id:int}"},
		"later edge for mismatch": {path: "/users/abc", expect: "/users/{id}"},
		"wildcard catches deeper": {path: "/users/42/posts", expect: "/users/{rest:path}"},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rt, _, err := r.Resolve("GET", tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, rt.Pattern)
		})
	}
}
