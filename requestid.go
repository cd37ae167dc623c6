package goshawk

import "github.com/google/uuid"

type requestIDKey struct{}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: "X-Request-ID"
	Generator func() string // default: random UUID
}

// RequestID returns middleware that assigns a unique request ID to each
// request. The ID is read from the request header (if present) or generated.
// It is stored in the context and set on the response header.
func RequestID(cfg ...RequestIDConfig) Middleware {
	c := RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			c.Header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			c.Generator = cfg[0].Generator
		}
	}

	return func(next Handler) Handler {
		return func(ctx *Context, req *Request) (*Response, error) {
			id := req.Header.Get(c.Header)
			if id == "" {
				id = c.Generator()
			}
			ctx.values[requestIDKey{}] = id

			resp, err := next(ctx, req)
			if resp != nil {
				resp.Header.Set(c.Header, id)
			}
			return resp, err
		}
	}
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(c *Context) string {
	if id, ok := c.values[requestIDKey{}].(string); ok {
		return id
	}
	return ""
}
