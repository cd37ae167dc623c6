// Package goshawk is a self-contained HTTP API core: a routing table with
// typed path parameters, an ordered middleware chain, and a bounded-concurrency
// serving engine that speaks HTTP/1.x directly over TCP.
//
// Handlers have a single signature — the framework owns parsing and
// serialization, so handlers never touch sockets or wire framing:
//
//	func(c *goshawk.Context, req *goshawk.Request) (*goshawk.Response, error)
//
// Routes are registered on a Router before serving begins:
//
//	r := goshawk.New()
//	r.Use(goshawk.Logger(slog.Default()))
//	r.Get("/items/{id:int}", getItem)
//	r.Post("/items", createItem)
//
//	srv := goshawk.NewServer(goshawk.DefaultConfig(), r)
//	err := srv.ListenAndServe(ctx)
//
// Path patterns support literal segments, single-segment parameters with
// optional type constraints ({id}, {id:int}, {id:uuid}), and a trailing
// wildcard ({rest:path}). Resolution precedence is literal over parameter
// over wildcard, with registration order breaking ties.
//
// Middleware wraps the chain in registration order — the first middleware
// registered is outermost. Built-ins cover CORS, error normalization,
// request logging, request IDs, rate limiting, ETags, per-route body limits,
// and handler timeouts.
//
// The serving engine runs a fixed worker pool: each accepted connection is
// owned by one worker for its whole lifetime, requests on a persistent
// connection are handled strictly in arrival order, and shutdown lets
// in-flight requests finish before closing what remains.
package goshawk
