package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/frankli0324/reggie/internal/body"
)

func writeRequest(ctx context.Context, w io.Writer, r *Prepared) error {
	bw := bufio.NewWriter(w) // default bufsize is 4096
	chunked := r.ContentLength == -1
	if err := writeHeader(bw, r, chunked); err != nil {
		return err
	}
	if chunked {
		// the body may take a while, let the peer see the head first
		if err := bw.Flush(); err != nil {
			return err
		}
	}
	if err := writeBody(ctx, bw, r.Body, chunked); err != nil {
		return err
	}
	return bw.Flush()
}

// writeHeader writes the request line and header part of an http 1.1 request
// e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func writeHeader(w *bufio.Writer, r *Prepared, chunked bool) error {
	w.WriteString(r.Method)
	w.WriteByte(' ')
	w.WriteString(r.URL.RequestURI())
	w.WriteString(" HTTP/1.1\r\n")

	w.WriteString("Host: ")
	w.WriteString(r.HeaderHost)
	w.WriteString("\r\n")
	switch {
	case chunked:
		w.WriteString("Transfer-Encoding: chunked\r\n")
	case r.ContentLength > 0 || needsLength(r.Method):
		w.WriteString("Content-Length: ")
		w.WriteString(strconv.FormatInt(r.ContentLength, 10))
		w.WriteString("\r\n")
	}
	for k, v := range r.Header {
		for _, v := range v {
			w.WriteString(k)
			w.WriteString(": ")
			w.WriteString(v)
			if _, err := w.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// needsLength reports whether an empty body is still announced with
// "Content-Length: 0".
func needsLength(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// writeBody drains b onto w. The request body is ALWAYS consumed, trailer
// frames are only sent when the body goes out chunked.
func writeBody(ctx context.Context, w io.Writer, b *body.Body, chunked bool) error {
	var cw *chunkedWriter
	if chunked {
		cw = newChunkedWriter(w)
		w = cw
	}
	var trailer http.Header
	for {
		f, err := b.ReadFrame(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			b.Close()
			return err
		}
		if d, ok := f.Data(); ok {
			if _, err := w.Write(d); err != nil {
				b.Close()
				return err
			}
		} else if t, _ := f.Trailers(); len(t) > 0 {
			if trailer == nil {
				trailer = make(http.Header)
			}
			for k, v := range t {
				trailer[k] = append(trailer[k], v...)
			}
		}
	}
	if cw != nil {
		return cw.CloseWithTrailer(trailer)
	}
	return nil
}

// response is the parsed status and header part of a reply.
type response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header
}

func readResponse(r *bufio.Reader) (*response, error) {
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	resp := &response{}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return nil, errors.New("malformed HTTP response")
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return nil, errors.New("malformed HTTP status code " + statusCode)
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return nil, errors.New("malformed HTTP status code")
	}

	// Parse the response headers.
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if hp, ok := mimeHeader["Pragma"]; ok && len(hp) > 0 && hp[0] == "no-cache" {
		if _, presentcc := mimeHeader["Cache-Control"]; !presentcc {
			mimeHeader["Cache-Control"] = []string{"no-cache"}
		}
	}
	resp.Header = http.Header(mimeHeader)
	return resp, nil
}

// readTransfer picks the framing of the response body. conn is closed
// once the body is drained or released.
func readTransfer(r *bufio.Reader, method string, resp *response, conn io.Closer) (*body.Body, error) {
	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return nil, fmt.Errorf("http: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}

		// deduplicate Content-Length
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)

		contentLens = resp.Header["Content-Length"]
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err != nil {
			return nil, fmt.Errorf("bad Content-Length %q", contentLens[0])
		}
		cl = int64(n)
	}

	noBody := method == http.MethodHead || resp.StatusCode/100 == 1 ||
		resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified
	switch {
	case noBody || cl == 0:
		conn.Close()
		return body.Empty(), nil
	case strings.EqualFold(resp.Header.Get("Transfer-Encoding"), "chunked"):
		resp.Header.Del("Content-Length")
		return body.FromStreaming[[]byte](newChunkedStream(r, conn)), nil
	default:
		// cl == -1 reads until the peer closes the connection
		return body.FromStreaming[[]byte](&lengthStream{r: r, closer: conn, left: cl}), nil
	}
}

// lengthStream yields at most left bytes, or everything up to EOF if left
// is -1.
type lengthStream struct {
	r      io.Reader
	closer io.Closer
	left   int64
	err    error
}

func (s *lengthStream) ReadFrame(ctx context.Context) (body.Frame[[]byte], error) {
	if s.err != nil {
		return body.Frame[[]byte]{}, s.err
	}
	if err := ctx.Err(); err != nil {
		return body.Frame[[]byte]{}, err
	}
	size := int64(maxFrameSize)
	if s.left >= 0 && s.left < size {
		size = s.left
	}
	buf := make([]byte, size)
	stop := context.AfterFunc(ctx, func() { s.closer.Close() })
	n, err := s.r.Read(buf)
	if !stop() {
		s.err = ctx.Err()
		return body.Frame[[]byte]{}, s.err
	}
	if s.left >= 0 {
		s.left -= int64(n)
		if s.left == 0 {
			err = io.EOF
		} else if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
	}
	if err != nil {
		s.err = err
		s.closer.Close()
	}
	if n > 0 {
		return body.DataFrame(buf[:n]), nil
	}
	if err == nil {
		return s.ReadFrame(ctx)
	}
	return body.Frame[[]byte]{}, err
}

func (s *lengthStream) SizeHint() body.SizeHint {
	if s.left >= 0 {
		return body.ExactSize(uint64(s.left))
	}
	return body.SizeHint{}
}

func (s *lengthStream) IsEndStream() bool { return s.err == io.EOF }

func (s *lengthStream) Close() error {
	if s.err == nil {
		s.err = io.EOF
		return s.closer.Close()
	}
	return nil
}
