package body

import (
	"context"
	"io"
	"iter"
	"sync"

	"github.com/frankli0324/reggie/internal/model"
)

const readChunkSize = 32 << 10

// FromReader turns r into a streaming body that pulls chunks of up to 32KiB.
// If r is an io.Closer it is closed together with the body.
func FromReader(r io.Reader) *Body {
	rs := &readerStream{r: r, size: -1}
	if sizer, ok := r.(interface{ Len() int }); ok {
		rs.size = int64(sizer.Len())
	}
	return &Body{stream: rs}
}

type readerStream struct {
	r    io.Reader
	buf  []byte
	size int64 // -1 if unknown
	err  error
}

func (s *readerStream) ReadFrame(ctx context.Context) (Frame[[]byte], error) {
	for s.err == nil {
		if err := ctx.Err(); err != nil {
			return Frame[[]byte]{}, model.BodyErr(err)
		}
		if s.buf == nil {
			s.buf = make([]byte, readChunkSize)
		}
		n, err := s.r.Read(s.buf)
		if err != nil {
			s.err = err
		}
		if n > 0 {
			out := make([]byte, n)
			copy(out, s.buf[:n])
			if s.size > 0 {
				s.size -= int64(n)
			}
			return DataFrame(out), nil
		}
	}
	if s.err == io.EOF {
		return Frame[[]byte]{}, io.EOF
	}
	return Frame[[]byte]{}, model.BodyErr(s.err)
}

func (s *readerStream) SizeHint() SizeHint {
	if s.size >= 0 {
		return ExactSize(uint64(s.size))
	}
	return SizeHint{}
}

func (s *readerStream) IsEndStream() bool { return s.err == io.EOF }

func (s *readerStream) Close() error {
	if s.err == nil {
		s.err = io.EOF
	}
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FromSeq builds a streaming body from a lazy sequence of frames. The
// sequence is resumed once per ReadFrame, a non-nil error ends it.
func FromSeq(seq iter.Seq2[Frame[[]byte], error]) *Body {
	next, stop := iter.Pull2(seq)
	return &Body{stream: &seqStream{next: next, stop: stop}}
}

type seqStream struct {
	next func() (Frame[[]byte], error, bool)
	stop func()
	err  error
	once sync.Once
}

func (s *seqStream) ReadFrame(ctx context.Context) (Frame[[]byte], error) {
	if s.err != nil {
		return Frame[[]byte]{}, s.err
	}
	if err := ctx.Err(); err != nil {
		return Frame[[]byte]{}, model.BodyErr(err)
	}
	f, err, ok := s.next()
	switch {
	case !ok:
		s.err = io.EOF
		s.Close()
		return Frame[[]byte]{}, io.EOF
	case err != nil:
		s.err = model.BodyErr(err)
		s.Close()
		return Frame[[]byte]{}, s.err
	}
	return f, nil
}

func (s *seqStream) SizeHint() SizeHint { return SizeHint{} }

func (s *seqStream) IsEndStream() bool { return s.err == io.EOF }

func (s *seqStream) Close() error {
	s.once.Do(s.stop)
	return nil
}

// Reader exposes b as an io.ReadCloser, dropping trailer frames. Reads are
// bound to ctx.
func (b *Body) Reader(ctx context.Context) io.ReadCloser {
	return &bodyReader{ctx: ctx, b: b}
}

type bodyReader struct {
	ctx  context.Context
	b    *Body
	rest []byte
	err  error
}

func (r *bodyReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		f, err := r.b.ReadFrame(r.ctx)
		if err != nil {
			r.err = err
			continue
		}
		if d, ok := f.Data(); ok {
			r.rest = d
		}
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}

func (r *bodyReader) Close() error {
	if r.err == nil {
		r.err = io.ErrClosedPipe
	}
	return r.b.Close()
}
