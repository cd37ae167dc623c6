package goshawk

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
)

// Request is the normalized inbound message handed to middleware and
// handlers. It is constructed once per request cycle and treated as
// read-only by application code.
type Request struct {
	Method     string
	Path       string
	Proto      string
	Header     http.Header
	RemoteAddr string

	// ContentLength is the declared body length, or -1 for a chunked body.
	ContentLength int64

	rawQuery  string
	query     url.Values
	params    map[string]string
	body      io.Reader
	codecs    *codecRegistry
	keepAlive bool
}

// Query returns the parsed query string. A repeated key keeps all its
// values in order.
func (r *Request) Query() url.Values { return r.query }

// QueryValue returns the first value for the given query key.
func (r *Request) QueryValue(key string) string { return r.query.Get(key) }

// RawQuery returns the unparsed query string.
func (r *Request) RawQuery() string { return r.rawQuery }

// Param returns the path parameter extracted by route matching, or "".
func (r *Request) Param(name string) string { return r.params[name] }

// Params returns all extracted path parameters.
func (r *Request) Params() map[string]string { return r.params }

// Body returns the request body reader. Reads past the configured maximum
// body size fail with a payload-too-large error; reads past the request
// deadline fail with a timeout.
func (r *Request) Body() io.Reader {
	if r.body == nil {
		return nullBody{}
	}
	return r.body
}

// Bytes reads the entire body.
func (r *Request) Bytes() ([]byte, error) {
	return io.ReadAll(r.Body())
}

// Decode unmarshals the request body into v using the decoder registered
// for the request's Content-Type (JSON when absent).
func (r *Request) Decode(v any) error {
	codecs := r.codecs
	if codecs == nil {
		codecs = defaultCodecs
	}
	dec, ok := codecs.decoderFor(r.Header.Get("Content-Type"))
	if !ok {
		return &HTTPError{
			Status:  http.StatusUnsupportedMediaType,
			Message: "unsupported content type " + r.Header.Get("Content-Type"),
		}
	}
	if err := dec.Decode(r.Body(), v); err != nil {
		if herr, ok := asHTTPError(err); ok {
			return herr
		}
		return malformedError("invalid request body: " + err.Error())
	}
	return nil
}

// bufferBody reads the remaining body into memory, leaving the underlying
// stream at the next framing boundary. Reads are still bounded by the
// configured maximum body size.
func (r *Request) bufferBody() error {
	if r.body == nil {
		return nil
	}
	b, err := io.ReadAll(r.body)
	if err != nil {
		return err
	}
	r.body = bytes.NewReader(b)
	return nil
}

type nullBody struct{}

func (nullBody) Read([]byte) (int, error) { return 0, io.EOF }

// maxBytesReader enforces a body size cap with streaming accounting: the
// limit trips as soon as one byte too many is consumed, not after the whole
// body is buffered.
type maxBytesReader struct {
	r         io.Reader
	remaining int64
}

func newMaxBytesReader(r io.Reader, limit int64) *maxBytesReader {
	return &maxBytesReader{r: r, remaining: limit}
}

func (m *maxBytesReader) Read(p []byte) (int, error) {
	if m.remaining < 0 {
		return 0, errPayloadTooLarge
	}
	// Read one byte past the limit so the overflow is observed before EOF.
	if int64(len(p)) > m.remaining+1 {
		p = p[:m.remaining+1]
	}
	n, err := m.r.Read(p)
	if int64(n) > m.remaining {
		m.remaining = -1
		return n - 1, errPayloadTooLarge
	}
	m.remaining -= int64(n)
	return n, err
}

func asHTTPError(err error) (*HTTPError, bool) {
	herr, ok := err.(*HTTPError)
	return herr, ok
}
