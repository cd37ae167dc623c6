package goshawk

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Handler is the core handler signature. The framework owns wire framing and
// serialization — handlers see a parsed Request and return a structured
// Response or an error.
type Handler func(c *Context, req *Request) (*Response, error)

// Middleware wraps a Handler. Middleware may inspect or modify the request
// before calling next, inspect or modify the response after next returns,
// short-circuit by returning without calling next, or translate a failure.
type Middleware func(next Handler) Handler

// Chain wraps h with the given middleware; the first middleware listed is
// outermost.
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// Recovery returns middleware that recovers from handler panics and responds
// with a generic 500, logging the panic with its stack.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return func(c *Context, req *Request) (resp *Response, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"method", req.Method,
						"path", req.Path,
					)
					resp = nil
					err = &HTTPError{
						Status:  http.StatusInternalServerError,
						Code:    CodeInternal,
						Message: http.StatusText(http.StatusInternalServerError),
					}
				}
			}()
			return next(c, req)
		}
	}
}
