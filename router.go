package goshawk

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodHead:    true,
}

// Router holds registered routes and global middleware, and resolves
// incoming requests to handlers. Registration happens at startup; the first
// dispatch (or Freeze) transitions the router into a read-only phase that
// needs no locking while serving.
type Router struct {
	mu         sync.Mutex
	middleware []Middleware
	root       *node
	routes     []*Route
	bySig      map[string]*Route

	userEncoders []Encoder
	userDecoders []Decoder

	freezeOnce sync.Once
	frozen     bool
	codecs     *codecRegistry
	chain      Handler
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.userEncoders = append(r.userEncoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.userDecoders = append(r.userDecoders, dec)
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{
		root:  newNode(),
		bySig: make(map[string]*Route),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds global middleware. Middleware wraps dispatch in registration
// order: the first registered runs outermost, the last registered is closest
// to the handler. Registration after the router is frozen fails with
// ErrFrozen.
func (r *Router) Use(mw ...Middleware) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	r.middleware = append(r.middleware, mw...)
	return nil
}

// Handle registers a handler for the given method and pattern. Optional
// middleware wraps just this route, inside the global chain. Registering an
// equivalent (method, pattern) pair twice fails with ErrRouteConflict.
func (r *Router) Handle(method, pattern string, h Handler, mw ...Middleware) error {
	if !supportedMethods[method] {
		return fmt.Errorf("goshawk: unsupported method %q", method)
	}
	if h == nil {
		return fmt.Errorf("goshawk: nil handler for %s %s", method, pattern)
	}

	segs, err := parsePattern(pattern)
	if err != nil {
		return err
	}

	// Bake route middleware into the handler at registration time.
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}

	rt := &Route{
		Method:   method,
		Pattern:  pattern,
		segments: segs,
		handler:  h,
		index:    len(r.routes),
	}

	sig := rt.signature()
	if prev, ok := r.bySig[sig]; ok {
		return fmt.Errorf("%w: %s %s (already registered as %s)", ErrRouteConflict, method, pattern, prev.Pattern)
	}

	r.root.insert(segs, rt)
	r.bySig[sig] = rt
	r.routes = append(r.routes, rt)
	return nil
}

// Get registers a GET handler.
func (r *Router) Get(pattern string, h Handler, mw ...Middleware) error {
	return r.Handle(http.MethodGet, pattern, h, mw...)
}

// Post registers a POST handler.
func (r *Router) Post(pattern string, h Handler, mw ...Middleware) error {
	return r.Handle(http.MethodPost, pattern, h, mw...)
}

// Put registers a PUT handler.
func (r *Router) Put(pattern string, h Handler, mw ...Middleware) error {
	return r.Handle(http.MethodPut, pattern, h, mw...)
}

// Patch registers a PATCH handler.
func (r *Router) Patch(pattern string, h Handler, mw ...Middleware) error {
	return r.Handle(http.MethodPatch, pattern, h, mw...)
}

// Delete registers a DELETE handler.
func (r *Router) Delete(pattern string, h Handler, mw ...Middleware) error {
	return r.Handle(http.MethodDelete, pattern, h, mw...)
}

// Options registers an OPTIONS handler.
func (r *Router) Options(pattern string, h Handler, mw ...Middleware) error {
	return r.Handle(http.MethodOptions, pattern, h, mw...)
}

// Resolve matches a method and path against the route table. It returns the
// matched route and extracted path parameters, an *HTTPError for an unknown
// path, or a *MethodNotAllowedError when the path exists under different
// methods.
func (r *Router) Resolve(method, path string) (*Route, map[string]string, error) {
	parts := splitPath(path)
	allow := make(map[string]struct{})

	rt := r.root.match(parts, method, allow)
	if rt != nil {
		return rt, rt.extractParams(parts), nil
	}

	if len(allow) > 0 {
		methods := make([]string, 0, len(allow))
		for m := range allow {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		return nil, nil, &MethodNotAllowedError{Allow: methods}
	}
	return nil, nil, errNotFound
}

// Routes lists registered routes as "PATTERN METHOD[,METHOD...]", grouped by
// pattern in registration order.
func (r *Router) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	order := make([]string, 0, len(r.routes))
	methods := make(map[string][]string)
	for _, rt := range r.routes {
		if _, seen := methods[rt.Pattern]; !seen {
			order = append(order, rt.Pattern)
		}
		methods[rt.Pattern] = append(methods[rt.Pattern], rt.Method)
	}

	out := make([]string, 0, len(order))
	for _, pattern := range order {
		out = append(out, pattern+" "+strings.Join(methods[pattern], ","))
	}
	return out
}

// Freeze ends the registration phase: the route table becomes immutable and
// the middleware chain is composed. Freeze is idempotent and is called
// automatically by the serving engine and by the first Dispatch.
func (r *Router) Freeze() {
	r.freezeOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.frozen = true
		r.codecs = newCodecRegistry(r.userEncoders, r.userDecoders)

		h := r.resolveAndCall
		for i := len(r.middleware) - 1; i >= 0; i-- {
			h = r.middleware[i](h)
		}
		r.chain = h
	})
}

// Dispatch drives one request through the middleware chain, route
// resolution, and the matched handler.
func (r *Router) Dispatch(c *Context, req *Request) (*Response, error) {
	r.Freeze()
	return r.chain(c, req)
}

// resolveAndCall is the innermost link of the chain: route lookup, handler
// invocation, and response encoding.
func (r *Router) resolveAndCall(c *Context, req *Request) (*Response, error) {
	rt, params, err := r.Resolve(req.Method, req.Path)
	if err != nil {
		return nil, err
	}
	req.params = params
	req.codecs = r.codecs

	resp, err := rt.handler(c, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = NoContent()
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	if err := resp.encode(r.codecs, req.Header.Get("Accept")); err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return resp, nil
}

// node is one level of the route trie, keyed by path segment. Literal
// children are tried first, then parameter edges in creation order, then
// the trailing wildcard.
type node struct {
	children map[string]*node
	params   []*paramEdge
	wildcard *node
	routes   map[string]*Route
}

type paramEdge struct {
	typeName string
	check    func(string) bool
	node     *node
}

func newNode() *node {
	return &node{
		children: make(map[string]*node),
		routes:   make(map[string]*Route),
	}
}

func (n *node) insert(segs []segment, rt *Route) {
	if len(segs) == 0 {
		n.routes[rt.Method] = rt
		return
	}

	seg := segs[0]
	switch seg.kind {
	case segLiteral:
		child, ok := n.children[seg.literal]
		if !ok {
			child = newNode()
			n.children[seg.literal] = child
		}
		child.insert(segs[1:], rt)

	case segParam:
		var edge *paramEdge
		for _, pe := range n.params {
			if pe.typeName == seg.typeName {
				edge = pe
				break
			}
		}
		if edge == nil {
			edge = &paramEdge{typeName: seg.typeName, check: seg.check, node: newNode()}
			n.params = append(n.params, edge)
		}
		edge.node.insert(segs[1:], rt)

	case segWildcard:
		if n.wildcard == nil {
			n.wildcard = newNode()
		}
		n.wildcard.routes[rt.Method] = rt
	}
}

// match walks the trie in precedence order. A method mismatch on an
// otherwise matching node records the node's methods in allow.
func (n *node) match(parts []string, method string, allow map[string]struct{}) *Route {
	if len(parts) == 0 {
		if rt := n.terminal(method, allow); rt != nil {
			return rt
		}
		// A trailing wildcard matches zero remaining segments.
		if n.wildcard != nil {
			if rt := n.wildcard.terminal(method, allow); rt != nil {
				return rt
			}
		}
		return nil
	}

	head, rest := parts[0], parts[1:]

	if child, ok := n.children[head]; ok {
		if rt := child.match(rest, method, allow); rt != nil {
			return rt
		}
	}
	for _, pe := range n.params {
		if pe.check(head) {
			if rt := pe.node.match(rest, method, allow); rt != nil {
				return rt
			}
		}
	}
	if n.wildcard != nil {
		if rt := n.wildcard.terminal(method, allow); rt != nil {
			return rt
		}
	}
	return nil
}

func (n *node) terminal(method string, allow map[string]struct{}) *Route {
	if rt, ok := n.routes[method]; ok {
		return rt
	}
	for m := range n.routes {
		allow[m] = struct{}{}
	}
	return nil
}
