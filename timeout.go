package goshawk

import (
	"context"
	"time"
)

// Timeout returns middleware that narrows the request context deadline.
// The handler is expected to observe cancellation; it is not forcibly
// terminated.
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(c *Context, req *Request) (*Response, error) {
			ctx, cancel := context.WithTimeout(c.Context(), d)
			defer cancel()
			return next(c.WithContext(ctx), req)
		}
	}
}
