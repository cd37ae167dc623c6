package goshawk

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"sync/atomic"
	"time"
)

const (
	connIdle int32 = iota
	connActive
)

// conn is one accepted connection, owned by a single worker for its whole
// lifetime. Requests on it are handled strictly in arrival order, which is
// what keeps pipelined responses in sequence.
type conn struct {
	srv   *Server
	rwc   net.Conn
	br    *bufio.Reader
	bw    *bufio.Writer
	state atomic.Int32
}

func (s *Server) serveConn(nc net.Conn) {
	c := &conn{
		srv: s,
		rwc: nc,
		br:  bufio.NewReader(nc),
		bw:  bufio.NewWriter(nc),
	}
	s.trackConn(c)
	defer func() {
		s.untrackConn(c)
		nc.Close()
	}()

	tp := textproto.NewReader(c.br)

	for served := 0; ; served++ {
		if s.shuttingDown() {
			return
		}

		// Idle phase: wait for the first byte of the next request.
		c.state.Store(connIdle)
		nc.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout.Std()))
		if _, err := c.br.Peek(1); err != nil {
			// EOF, idle timeout, or shutdown closing the idle socket —
			// nothing to respond to.
			return
		}

		// Header phase.
		nc.SetReadDeadline(time.Now().Add(s.cfg.ReadHeaderTimeout.Std()))
		req, err := readRequest(tp, s.cfg.MaxBodySize)
		if err != nil {
			if isTimeout(err) || errors.Is(err, io.EOF) {
				return
			}
			// Malformed framing or an oversized declared length: answer,
			// then close — the stream position is unreliable.
			c.writeResponse(s.normalizer.Normalize(err), false)
			return
		}
		req.RemoteAddr = nc.RemoteAddr().String()

		// Body phase: the body is read in full before dispatch, under the
		// request deadline. MaxBodySize bounds it, and a buffered body
		// leaves the socket quiet so disconnects surface during the handler.
		nc.SetReadDeadline(time.Now().Add(s.cfg.RequestTimeout.Std()))
		c.state.Store(connActive)
		if err := req.bufferBody(); err != nil {
			c.writeResponse(s.normalizer.Normalize(err), false)
			return
		}

		resp := c.handle(req)

		keepAlive := req.keepAlive &&
			served+1 < s.cfg.MaxRequestsPerConn &&
			!s.shuttingDown() &&
			!closeAfterStatus(resp.Status) &&
			resp.Header.Get("Connection") != "close"

		// A stream on a non-persistent exchange is close-delimited.
		if resp.stream != nil && req.Proto != "HTTP/1.1" {
			keepAlive = false
		}

		if err := c.writeResponse(resp, keepAlive); err != nil {
			return
		}
		if !keepAlive {
			return
		}
	}
}

// handle runs one request through the dispatch pipeline. Failures that
// escape the chain — including handler panics — are normalized here so a
// fault never takes down the worker.
func (c *conn) handle(req *Request) (resp *Response) {
	ctx, cancel := context.WithTimeout(c.srv.baseCtx, c.srv.cfg.RequestTimeout.Std())
	defer cancel()

	// Peer watcher: the body is fully buffered, so nothing else touches the
	// read side while the handler runs. Peek either sees the first byte of
	// the next pipelined request or learns the peer hung up; a hangup
	// cancels the request context so the handler can stop early.
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if _, err := c.br.Peek(1); err != nil && !isTimeout(err) {
			cancel()
		}
	}()
	defer func() {
		// Force the pending Peek to return, then wait for it so the next
		// loop iteration has the reader to itself.
		c.rwc.SetReadDeadline(time.Now())
		<-watchDone
	}()

	defer func() {
		if rec := recover(); rec != nil {
			c.srv.log.Error("panic in dispatch", "panic", rec, "method", req.Method, "path", req.Path)
			resp = c.srv.normalizer.Normalize(errors.New("panic in dispatch"))
		}
	}()

	resp, err := c.srv.handler(newContext(ctx), req)
	if err != nil {
		resp = c.srv.normalizer.Normalize(err)
	}
	if resp == nil {
		resp = NoContent()
	}
	return resp
}

func (c *conn) writeResponse(resp *Response, keepAlive bool) error {
	c.rwc.SetWriteDeadline(time.Now().Add(c.srv.cfg.RequestTimeout.Std()))
	return writeResponse(c.bw, resp, keepAlive)
}

// closeAfterStatus lists responses after which the connection cannot be
// trusted to be at a framing boundary.
func closeAfterStatus(status int) bool {
	switch status {
	case 400, 408, 413:
		return true
	}
	return false
}
