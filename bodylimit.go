package goshawk

// BodyLimit returns middleware that caps the request body size for the
// routes it wraps, tighter than the server-wide maximum. A declared length
// over the cap fails immediately with 413; an undeclared (chunked) body is
// accounted as it streams and aborted at the cap.
func BodyLimit(maxBytes int64) Middleware {
	return func(next Handler) Handler {
		return func(c *Context, req *Request) (*Response, error) {
			if req.ContentLength > maxBytes {
				return nil, errPayloadTooLarge
			}
			if req.body != nil {
				req.body = newMaxBytesReader(req.body, maxBytes)
			}
			return next(c, req)
		}
	}
}
