package goshawk

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ETagConfig configures the ETag middleware.
type ETagConfig struct {
	Weak bool // use weak ETags
}

// ETag returns middleware that handles conditional GET requests via ETag and
// If-None-Match. Response bodies of 2xx GET responses are hashed; a matching
// If-None-Match short-circuits the body with 304.
func ETag(cfg ...ETagConfig) Middleware {
	c := ETagConfig{}
	if len(cfg) > 0 {
		c = cfg[0]
	}

	return func(next Handler) Handler {
		return func(ctx *Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err != nil || resp == nil {
				return resp, err
			}

			// Only GET responses with a buffered 2xx body are taggable.
			if req.Method != http.MethodGet || resp.stream != nil {
				return resp, nil
			}
			if resp.Status < 200 || resp.Status >= 300 || len(resp.Body) == 0 {
				return resp, nil
			}

			etag := `"` + strconv.FormatUint(xxhash.Sum64(resp.Body), 16) + `"`
			if c.Weak {
				etag = "W/" + etag
			}
			resp.Header.Set("ETag", etag)

			if match := req.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
				notMod := NewResponse(http.StatusNotModified)
				notMod.Header = resp.Header
				return notMod, nil
			}
			return resp, nil
		}
	}
}
