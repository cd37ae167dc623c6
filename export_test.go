package goshawk

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/textproto"
	"strings"
)

// Test-only exports for internal functions.
var (
	SplitPath     = splitPath
	CodeForStatus = codeForStatus
	ReadRequest   = readRequest
	WriteResponse = writeResponse
)

// ParsePatternErr reports the error from parsing a route pattern.
func ParsePatternErr(pattern string) error {
	_, err := parsePattern(pattern)
	return err
}

// Negotiate resolves an Accept header against the default codecs and reports
// the chosen content type.
func Negotiate(accept string) (string, bool) {
	enc, ok := defaultCodecs.negotiate(accept)
	if !ok {
		return "", false
	}
	return enc.ContentType(), true
}

// NewChunkedReader wraps br in the inbound chunked-body decoder.
func NewChunkedReader(br *bufio.Reader) io.Reader { return newChunkedReader(br) }

// NewChunkedWriter wraps bw in the outbound chunk encoder.
func NewChunkedWriter(bw *bufio.Writer) io.WriteCloser { return newChunkedWriter(bw) }

// NewTestContext builds a request Context for dispatch tests.
func NewTestContext(ctx context.Context) *Context { return newContext(ctx) }

// NewTestRequest builds a Request for dispatch tests.
func NewTestRequest(method, path string, header http.Header, body io.Reader) *Request {
	if header == nil {
		header = make(http.Header)
	}
	return &Request{Method: method, Path: path, Proto: "HTTP/1.1", Header: header, body: body}
}

// ReadRequestString parses one request from a raw wire string.
func ReadRequestString(raw string, maxBody int64) (*Request, error) {
	br := bufio.NewReader(strings.NewReader(raw))
	return readRequest(textproto.NewReader(br), maxBody)
}
