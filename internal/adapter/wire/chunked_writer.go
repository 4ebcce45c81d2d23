package wire

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
)

// newChunkedWriter is taken from golang src/net/http/internal/chunked.go
func newChunkedWriter(w io.Writer) *chunkedWriter {
	return &chunkedWriter{w}
}

type chunkedWriter struct {
	Wire io.Writer
}

func (cw *chunkedWriter) Write(data []byte) (n int, err error) {
	// Don't send 0-length data. It looks like EOF for chunked encoding.
	if len(data) == 0 {
		return 0, nil
	}

	if _, err = fmt.Fprintf(cw.Wire, "%x\r\n", len(data)); err != nil {
		return 0, err
	}
	if n, err = cw.Wire.Write(data); err != nil {
		return
	}
	if n != len(data) {
		err = io.ErrShortWrite
		return
	}
	if _, err = io.WriteString(cw.Wire, "\r\n"); err != nil {
		return
	}
	// every chunk goes out as soon as it is written
	if bw, ok := cw.Wire.(*bufio.Writer); ok {
		err = bw.Flush()
	}
	return
}

// CloseWithTrailer writes the last chunk followed by trailer fields.
func (cw *chunkedWriter) CloseWithTrailer(trailer http.Header) error {
	if _, err := io.WriteString(cw.Wire, "0\r\n"); err != nil {
		return err
	}
	if err := trailer.Write(cw.Wire); err != nil {
		return err
	}
	_, err := io.WriteString(cw.Wire, "\r\n")
	return err
}
