package goshawk

import (
	"bufio"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// readRequest parses one HTTP/1.x request from the connection's buffered
// reader: start-line, header block, and body framing. Parse failures return
// a malformed_request error; a declared length over maxBody returns
// payload_too_large before any body byte is read.
func readRequest(tp *textproto.Reader, maxBody int64) (*Request, error) {
	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}

	method, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, malformedError("malformed request line")
	}
	target, proto, ok := strings.Cut(rest, " ")
	if !ok || !validMethod(method) {
		return nil, malformedError("malformed request line")
	}
	if proto != "HTTP/1.1" && proto != "HTTP/1.0" {
		return nil, malformedError("unsupported protocol " + proto)
	}

	u, err := url.ParseRequestURI(target)
	if err != nil || !strings.HasPrefix(u.Path, "/") {
		return nil, malformedError("malformed request target")
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, malformedError("malformed query string")
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		if isTimeout(err) {
			return nil, err
		}
		return nil, malformedError("malformed header block")
	}
	header := http.Header(mimeHeader)

	if proto == "HTTP/1.1" && header.Get("Host") == "" {
		return nil, malformedError("missing Host header")
	}

	req := &Request{
		Method:   method,
		Path:     u.Path,
		Proto:    proto,
		Header:   header,
		rawQuery: u.RawQuery,
		query:    query,
	}
	req.keepAlive = keepAliveRequested(proto, header)

	if err := readTransfer(tp.R, req, maxBody); err != nil {
		return nil, err
	}
	return req, nil
}

// readTransfer wires up body framing: chunked transfer encoding, a declared
// Content-Length, or no body at all.
func readTransfer(br *bufio.Reader, req *Request, maxBody int64) error {
	if te := req.Header.Get("Transfer-Encoding"); te != "" {
		if !strings.EqualFold(te, "chunked") {
			return malformedError("unsupported transfer encoding " + te)
		}
		if req.Header.Get("Content-Length") != "" {
			// RFC 9112 §6.3: chunked wins, but a message carrying both is a
			// smuggling vector and gets rejected outright.
			return malformedError("both Content-Length and Transfer-Encoding present")
		}
		req.ContentLength = -1
		req.body = newMaxBytesReader(newChunkedReader(br), maxBody)
		return nil
	}

	contentLens := req.Header["Content-Length"]
	if len(contentLens) == 0 {
		req.ContentLength = 0
		return nil
	}

	// Duplicated differing Content-Length headers are a request smuggling
	// vector (RFC 7230 §3.3.2).
	first := textproto.TrimString(contentLens[0])
	for _, cl := range contentLens[1:] {
		if textproto.TrimString(cl) != first {
			return malformedError("multiple differing Content-Length headers")
		}
	}

	cl, err := strconv.ParseUint(first, 10, 63)
	if err != nil {
		return malformedError("malformed Content-Length")
	}
	if int64(cl) > maxBody {
		return errPayloadTooLarge
	}

	req.ContentLength = int64(cl)
	if cl > 0 {
		req.body = io.LimitReader(br, int64(cl))
	}
	return nil
}

func validMethod(method string) bool {
	if method == "" {
		return false
	}
	for _, r := range method {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func keepAliveRequested(proto string, header http.Header) bool {
	conn := strings.ToLower(header.Get("Connection"))
	if proto == "HTTP/1.0" {
		return conn == "keep-alive"
	}
	return conn != "close"
}

// writeResponse serializes a response onto the connection's buffered writer:
// status line, headers, and body (fixed-length or chunk-encoded stream).
// The response is written exactly once.
func writeResponse(bw *bufio.Writer, resp *Response, keepAlive bool) error {
	status := resp.Status
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}

	bw.WriteString("HTTP/1.1 ")
	bw.WriteString(strconv.Itoa(status))
	bw.WriteByte(' ')
	bw.WriteString(http.StatusText(status))
	bw.WriteString("\r\n")

	bw.WriteString("Date: ")
	bw.WriteString(time.Now().UTC().Format(http.TimeFormat))
	bw.WriteString("\r\n")

	noBody := status == http.StatusNoContent || status == http.StatusNotModified || status < 200

	if !noBody {
		if ct := resp.ContentType(); ct != "" {
			bw.WriteString("Content-Type: ")
			bw.WriteString(ct)
			bw.WriteString("\r\n")
		}
		if resp.stream != nil {
			// A stream on a non-persistent connection is close-delimited.
			if keepAlive {
				bw.WriteString("Transfer-Encoding: chunked\r\n")
			}
		} else {
			bw.WriteString("Content-Length: ")
			bw.WriteString(strconv.Itoa(len(resp.Body)))
			bw.WriteString("\r\n")
		}
	}

	if keepAlive {
		bw.WriteString("Connection: keep-alive\r\n")
	} else {
		bw.WriteString("Connection: close\r\n")
	}

	for key, values := range resp.Header {
		if key == "Content-Type" || key == "Content-Length" || key == "Connection" || key == "Date" || key == "Transfer-Encoding" {
			continue
		}
		for _, v := range values {
			bw.WriteString(key)
			bw.WriteString(": ")
			bw.WriteString(v)
			bw.WriteString("\r\n")
		}
	}

	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}

	if noBody {
		return bw.Flush()
	}
	if resp.stream != nil {
		if !keepAlive {
			if _, err := io.Copy(bw, resp.stream); err != nil {
				return err
			}
			return bw.Flush()
		}
		cw := newChunkedWriter(bw)
		if _, err := io.Copy(cw, resp.stream); err != nil {
			return err
		}
		if err := cw.Close(); err != nil {
			return err
		}
		return bw.Flush()
	}
	if len(resp.Body) > 0 {
		if _, err := bw.Write(resp.Body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}
