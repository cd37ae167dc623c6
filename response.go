package goshawk

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// Response is the structured outbound message. It is built once per request
// and written to the connection exactly once.
type Response struct {
	Status int
	Header http.Header

	// Body is the serialized payload. For responses built with JSON, Body is
	// filled in by content negotiation when the handler returns.
	Body []byte

	value       any
	stream      io.Reader
	contentType string
}

// NewResponse returns an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// JSON returns a response whose body is the canonical encoding of v. The
// actual wire format is negotiated from the request's Accept header (JSON
// unless the client asked for a different registered codec).
func JSON(status int, v any) *Response {
	resp := NewResponse(status)
	resp.value = v
	return resp
}

// Text returns a plain-text response.
func Text(status int, s string) *Response {
	return Bytes(status, "text/plain; charset=utf-8", []byte(s))
}

// Bytes returns a response with a fixed body and content type.
func Bytes(status int, contentType string, body []byte) *Response {
	resp := NewResponse(status)
	resp.Body = body
	resp.contentType = contentType
	return resp
}

// NoContent returns an empty 204 response.
func NoContent() *Response {
	return NewResponse(http.StatusNoContent)
}

// StatusResponse returns a minimal plain-text response for the given status,
// e.g. "404 Not Found".
func StatusResponse(status int) *Response {
	return Text(status, strconv.Itoa(status)+" "+http.StatusText(status))
}

// Stream returns a response whose body is read from r as it is written out.
// On a persistent HTTP/1.1 connection the body is chunk-encoded; otherwise
// it is close-delimited.
func Stream(status int, contentType string, r io.Reader) *Response {
	resp := NewResponse(status)
	resp.stream = r
	resp.contentType = contentType
	return resp
}

// SetHeader sets a response header and returns the response for chaining.
func (r *Response) SetHeader(key, value string) *Response {
	r.Header.Set(key, value)
	return r
}

// ContentType reports the effective content type of the response.
func (r *Response) ContentType() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return r.contentType
}

// encode resolves a negotiated value into Body. Called by the dispatch
// pipeline right after the handler returns, so post-phase middleware sees
// the final bytes.
func (r *Response) encode(codecs *codecRegistry, accept string) error {
	if r.value == nil {
		return nil
	}
	enc, ok := codecs.negotiate(accept)
	if !ok {
		// An explicit Accept with no registered match falls back to the
		// canonical encoding rather than failing the response.
		enc = codecs.encoders[0]
	}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, r.value); err != nil {
		return err
	}
	r.Body = buf.Bytes()
	r.value = nil
	if r.Header.Get("Content-Type") == "" {
		r.contentType = enc.ContentType()
	}
	return nil
}

// envelopeResponse serializes an ErrorEnvelope. Error bodies are always
// JSON regardless of the Accept header.
func envelopeResponse(env *ErrorEnvelope) *Response {
	body, err := json.Marshal(env)
	if err != nil {
		return Text(env.Status, env.Message)
	}
	return Bytes(env.Status, "application/json", body)
}
