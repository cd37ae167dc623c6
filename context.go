package goshawk

import "context"

// Context is the per-request scratch state shared across the middleware
// chain. It is owned exclusively by one request and discarded when the
// request cycle ends; no locking is needed.
type Context struct {
	ctx    context.Context
	values map[any]any
}

func newContext(ctx context.Context) *Context {
	return &Context{ctx: ctx, values: make(map[any]any)}
}

// Context returns the request's context.Context. It is cancelled when the
// peer connection goes away, the request deadline passes, or the server is
// force-closed during shutdown.
func (c *Context) Context() context.Context { return c.ctx }

// WithContext returns a Context carrying ctx but sharing the same scratch
// values. For use in middleware that narrows the deadline.
func (c *Context) WithContext(ctx context.Context) *Context {
	return &Context{ctx: ctx, values: c.values}
}

// Set stores a value under a string key.
func (c *Context) Set(key string, val any) { c.values[key] = val }

// Get retrieves a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	val, ok := c.values[key]
	return val, ok
}

type contextKey[T any] struct{}

// SetValue stores a typed value in the context. For use in middleware.
func SetValue[T any](c *Context, val T) {
	c.values[contextKey[T]{}] = val
}

// GetValue retrieves a typed value from the context. For use in handlers.
func GetValue[T any](c *Context) (T, bool) {
	val, ok := c.values[contextKey[T]{}].(T)
	return val, ok
}
