package goshawk_test

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-dev/goshawk"
)

func TestNegotiate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		accept string
		expect string
		ok     bool
	}{
		"empty accept defaults to json": {accept: "", expect: "application/json", ok: true},
		"exact json":                    {accept: "application/json", expect: "application/json", ok: true},
		"exact xml":                     {accept: "application/xml", expect: "application/xml", ok: true},
		"wildcard":                      {accept: "*/*", expect: "application/json", ok: true},
		"q values pick higher":          {accept: "application/json;q=0.5, application/xml;q=0.9", expect: "application/xml", ok: true},
		"zero q excludes":               {accept: "application/xml;q=0, application/json", expect: "application/json", ok: true},
		"unknown type":                  {accept: "text/html", ok: false},
		"unknown then wildcard":         {accept: "text/html, */*;q=0.1", expect: "application/json", ok: true},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ct, ok := goshawk.Negotiate(tc.accept)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expect, ct)
			}
		})
	}
}

type greeting struct {
	XMLName xml.Name `json:"-" xml:"greeting"`
	Message string   `json:"message" xml:"message"`
}

func newGreetRouter(t *testing.T) *goshawk.Router {
	t.Helper()
	r := goshawk.New()
	require.NoError(t, r.Get("/greet", func(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
		return goshawk.JSON(200, greeting{Message: "hello"}), nil
	}))
	return r
}

func dispatchAccept(t *testing.T, r *goshawk.Router, accept string) *goshawk.Response {
	t.Helper()
	header := make(http.Header)
	if accept != "" {
		header.Set("Accept", accept)
	}
	req := goshawk.NewTestRequest(http.MethodGet, "/greet", header, nil)
	resp, err := r.Dispatch(goshawk.NewTestContext(context.Background()), req)
	require.NoError(t, err)
	return resp
}

func TestDispatch_negotiatedEncoding(t *testing.T) {
	t.Parallel()

	r := newGreetRouter(t)

	jsonResp := dispatchAccept(t, r, "")
	assert.Equal(t, "application/json", jsonResp.ContentType())
	assert.JSONEq(t, `{"message":"hello"}`, string(jsonResp.Body))

	xmlResp := dispatchAccept(t, r, "application/xml")
	assert.Equal(t, "application/xml", xmlResp.ContentType())
	assert.Contains(t, string(xmlResp.Body), "<greeting>")
}

func TestDispatch_unmatchedAcceptFallsBack(t *testing.T) {
	t.Parallel()

	r := newGreetRouter(t)

	resp := dispatchAccept(t, r, "text/html")
	assert.Equal(t, "application/json", resp.ContentType())
	assert.JSONEq(t, `{"message":"hello"}`, string(resp.Body))
}

func TestRequest_Decode(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name" xml:"name"`
	}

	tests := map[string]struct {
		contentType string
		body        string
		wantName    string
		wantStatus  int
	}{
		"json":                 {contentType: "application/json", body: `{"name":"ada"}`, wantName: "ada"},
		"json with params":     {contentType: "application/json; charset=utf-8", body: `{"name":"ada"}`, wantName: "ada"},
		"default content type": {contentType: "", body: `{"name":"ada"}`, wantName: "ada"},
		"xml":                  {contentType: "application/xml", body: `<payload><name>ada</name></payload>`, wantName: "ada"},
		"unsupported type":     {contentType: "text/csv", body: "name\nada", wantStatus: http.StatusUnsupportedMediaType},
		"malformed json":       {contentType: "application/json", body: `{"name":`, wantStatus: http.StatusBadRequest},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			header := make(http.Header)
			if tc.contentType != "" {
				header.Set("Content-Type", tc.contentType)
			}
			req := goshawk.NewTestRequest(http.MethodPost, "/x", header, strings.NewReader(tc.body))

			var p payload
			err := req.Decode(&p)
			if tc.wantStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tc.wantStatus, goshawk.ErrorStatus(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, p.Name)
		})
	}
}
