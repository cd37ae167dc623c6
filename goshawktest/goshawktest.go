// Package goshawktest provides typed test helpers for the goshawk framework.
//
// Unlike httptest-based helpers, requests here travel over a real TCP
// listener through the framework's own serving engine, so tests exercise
// the wire codec and connection handling as well as routing.
package goshawktest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/goshawk-dev/goshawk"
)

// Client wraps a running goshawk server for convenient testing.
type Client struct {
	Server  *goshawk.Server
	BaseURL string

	addr string
	http *http.Client
}

// Serve starts a server for the router on a loopback port and returns a
// client bound to it. The server is shut down when the test finishes.
func Serve(t testing.TB, r *goshawk.Router, cfg ...goshawk.Config) *Client {
	t.Helper()

	c := goshawk.DefaultConfig()
	if len(cfg) > 0 {
		c = cfg[0]
	}
	c.BindAddress = "127.0.0.1:0"

	srv := goshawk.NewServer(c, r)
	if err := srv.Listen(); err != nil {
		t.Fatalf("goshawktest: listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("goshawktest: serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("goshawktest: server did not shut down")
		}
	})

	addr := srv.Addr().String()
	return &Client{
		Server:  srv,
		BaseURL: "http://" + addr,
		addr:    addr,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Dial opens a raw TCP connection to the server for tests that need
// byte-level control over the exchange, such as pipelining.
func (c *Client) Dial(t testing.TB) net.Conn {
	t.Helper()
	nc, err := net.Dial("tcp", c.addr)
	if err != nil {
		t.Fatalf("goshawktest: dial: %v", err)
	}
	t.Cleanup(func() { nc.Close() })
	return nc
}

// Response holds a decoded API response.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Raw     *http.Response
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil, nil)
}

// GetWith sends a typed GET request with extra headers.
func GetWith[Resp any](t testing.TB, c *Client, path string, header http.Header) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil, header)
}

// Post sends a typed POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body, nil)
}

// Put sends a typed PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body, nil)
}

// Patch sends a typed PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, body, nil)
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil, nil)
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any, header http.Header) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("goshawktest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("goshawktest: create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("goshawktest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("goshawktest: close body: %v", closeErr)
		}
	}()

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     resp,
	}

	if resp.StatusCode != http.StatusNoContent && resp.ContentLength != 0 {
		var decoded Resp
		if decErr := json.NewDecoder(resp.Body).Decode(&decoded); decErr != nil && decErr != io.EOF {
			return result
		}
		result.Body = &decoded
	}

	return result
}
