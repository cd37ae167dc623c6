package goshawk

import (
	"bufio"
	"io"
	"strconv"
)

// newChunkedReader decodes an inbound chunked transfer coding. The trailer
// section after the terminal chunk is consumed and discarded, leaving the
// reader positioned at the next message on a persistent connection.
func newChunkedReader(br *bufio.Reader) io.Reader {
	return &chunkedReader{br: br}
}

type chunkedReader struct {
	br        *bufio.Reader
	remaining int64
	done      bool
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.done {
		return 0, io.EOF
	}
	if c.remaining == 0 {
		size, err := c.readChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := c.discardTrailer(); err != nil {
				return 0, err
			}
			c.done = true
			return 0, io.EOF
		}
		c.remaining = size
	}

	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.br.Read(p)
	c.remaining -= int64(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return n, err
	}
	if c.remaining == 0 {
		if err := c.readCRLF(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// readChunkSize parses one hex chunk-size line. Chunk extensions after a
// semicolon are ignored.
func (c *chunkedReader) readChunkSize() (int64, error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(line); i++ {
		if line[i] == ';' {
			line = line[:i]
			break
		}
	}
	if len(line) == 0 || len(line) > 16 {
		return 0, malformedError("malformed chunk size")
	}
	size, err := strconv.ParseInt(string(line), 16, 64)
	if err != nil || size < 0 {
		return 0, malformedError("malformed chunk size")
	}
	return size, nil
}

// discardTrailer reads trailer lines after the terminal chunk up to and
// including the blank line.
func (c *chunkedReader) discardTrailer() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *chunkedReader) readCRLF() error {
	cr, err := c.br.ReadByte()
	if err != nil {
		return unexpectedEOF(err)
	}
	lf, err := c.br.ReadByte()
	if err != nil {
		return unexpectedEOF(err)
	}
	if cr != '\r' || lf != '\n' {
		return malformedError("malformed chunked encoding")
	}
	return nil
}

func (c *chunkedReader) readLine() ([]byte, error) {
	line, err := c.br.ReadSlice('\n')
	if err != nil {
		return nil, unexpectedEOF(err)
	}
	line = line[:len(line)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// chunkedWriter encodes an outbound stream body as chunked transfer coding.
// Close writes the terminal chunk; it does not close the connection.
type chunkedWriter struct {
	bw *bufio.Writer
}

func newChunkedWriter(bw *bufio.Writer) *chunkedWriter {
	return &chunkedWriter{bw: bw}
}

func (c *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := c.bw.WriteString(strconv.FormatInt(int64(len(p)), 16)); err != nil {
		return 0, err
	}
	c.bw.WriteString("\r\n")
	n, err := c.bw.Write(p)
	if err != nil {
		return n, err
	}
	_, err = c.bw.WriteString("\r\n")
	return n, err
}

func (c *chunkedWriter) Close() error {
	_, err := c.bw.WriteString("0\r\n\r\n")
	return err
}
