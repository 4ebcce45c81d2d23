package nethttp

import (
	"context"
	"io"
	"net/http"

	"github.com/frankli0324/reggie/internal/body"
)

// Body is the response body produced by [Transport]. It converts into a
// streaming *body.Body; trailers announced by the server follow the data as
// one metadata frame.
type Body struct {
	resp *http.Response
}

func (b Body) IntoBody() *body.Body {
	return body.FromStreaming[[]byte](&respStream{resp: b.resp, remaining: b.resp.ContentLength})
}

// Close discards the body without reading it.
func (b Body) Close() error { return b.resp.Body.Close() }

type respStream struct {
	resp      *http.Response
	buf       []byte
	remaining int64
	eof       bool
	done      bool
}

func (s *respStream) ReadFrame(ctx context.Context) (body.Frame[[]byte], error) {
	for !s.eof {
		if err := ctx.Err(); err != nil {
			return body.Frame[[]byte]{}, err
		}
		if s.buf == nil {
			s.buf = make([]byte, 32<<10)
		}
		// closing the body releases a blocked read
		stop := context.AfterFunc(ctx, func() { s.resp.Body.Close() })
		n, err := s.resp.Body.Read(s.buf)
		if !stop() {
			s.done, s.eof = true, true
			return body.Frame[[]byte]{}, ctx.Err()
		}
		if err == io.EOF {
			s.eof = true
		} else if err != nil {
			s.resp.Body.Close()
			return body.Frame[[]byte]{}, err
		}
		if n > 0 {
			if s.remaining > 0 {
				s.remaining -= int64(n)
			}
			return body.DataFrame(append([]byte(nil), s.buf[:n]...)), nil
		}
	}
	if !s.done {
		s.done = true
		s.resp.Body.Close()
		if len(s.resp.Trailer) > 0 {
			return body.TrailersFrame[[]byte](s.resp.Trailer), nil
		}
	}
	return body.Frame[[]byte]{}, io.EOF
}

func (s *respStream) SizeHint() body.SizeHint {
	if s.remaining >= 0 {
		return body.ExactSize(uint64(s.remaining))
	}
	return body.SizeHint{}
}

func (s *respStream) IsEndStream() bool { return s.done }

func (s *respStream) Close() error {
	if s.done {
		return nil
	}
	s.done, s.eof = true, true
	return s.resp.Body.Close()
}
