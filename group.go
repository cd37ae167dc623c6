package goshawk

import "net/http"

// Group is a collection of routes under a shared prefix with shared
// middleware.
type Group struct {
	router     *Router
	prefix     string
	middleware []Middleware
}

// Group creates a route group. Group middleware wraps every route registered
// through the group, inside the router's global chain.
func (r *Router) Group(prefix string, mw ...Middleware) *Group {
	return &Group{router: r, prefix: prefix, middleware: mw}
}

// Handle registers a handler under the group prefix.
func (g *Group) Handle(method, pattern string, h Handler, mw ...Middleware) error {
	combined := make([]Middleware, 0, len(g.middleware)+len(mw))
	combined = append(combined, g.middleware...)
	combined = append(combined, mw...)
	return g.router.Handle(method, g.prefix+pattern, h, combined...)
}

// Get registers a GET handler under the group prefix.
func (g *Group) Get(pattern string, h Handler, mw ...Middleware) error {
	return g.Handle(http.MethodGet, pattern, h, mw...)
}

// Post registers a POST handler under the group prefix.
func (g *Group) Post(pattern string, h Handler, mw ...Middleware) error {
	return g.Handle(http.MethodPost, pattern, h, mw...)
}

// Put registers a PUT handler under the group prefix.
func (g *Group) Put(pattern string, h Handler, mw ...Middleware) error {
	return g.Handle(http.MethodPut, pattern, h, mw...)
}

// Patch registers a PATCH handler under the group prefix.
func (g *Group) Patch(pattern string, h Handler, mw ...Middleware) error {
	return g.Handle(http.MethodPatch, pattern, h, mw...)
}

// Delete registers a DELETE handler under the group prefix.
func (g *Group) Delete(pattern string, h Handler, mw ...Middleware) error {
	return g.Handle(http.MethodDelete, pattern, h, mw...)
}
