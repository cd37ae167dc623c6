package goshawk

import (
	"log/slog"
	"time"
)

// Logger returns middleware that logs each request using the provided
// slog.Logger. Severity follows the response status class: below 400 info,
// 4xx warn, 5xx error.
func Logger(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(c *Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next(c, req)

			status := 500
			size := -1
			switch {
			case err != nil:
				status = ErrorStatus(err)
			case resp != nil:
				status = resp.Status
				size = len(resp.Body)
			}

			attrs := []any{
				slog.String("method", req.Method),
				slog.String("path", req.Path),
				slog.Int("status", status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", size),
				slog.String("remote", req.RemoteAddr),
			}
			if id := GetRequestID(c); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			switch {
			case status >= 500:
				logger.Error("request", attrs...)
			case status >= 400:
				logger.Warn("request", attrs...)
			default:
				logger.Info("request", attrs...)
			}
			return resp, err
		}
	}
}
