package extract

import (
	"context"
	"io"
	"iter"

	"github.com/frankli0324/reggie/internal/body"
)

// DataStream is a single pass over the data chunks of a body. Trailer frames
// are skipped. After a read error or the end of the body it yields nothing.
//
//	s := extract.ToStream(resp.Body)
//	for s.Next(ctx) {
//		use(s.Chunk())
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
type DataStream struct {
	b     body.Stream[[]byte]
	chunk []byte
	err   error
	done  bool
}

// ToStream wraps b without reading from it.
func ToStream(b body.Stream[[]byte]) *DataStream {
	return &DataStream{b: b}
}

// Next pulls frames until a data chunk is available. It returns false once
// the body is exhausted or failed.
func (s *DataStream) Next(ctx context.Context) bool {
	s.chunk = nil
	for !s.done {
		f, err := s.b.ReadFrame(ctx)
		if err != nil {
			s.done = true
			if err != io.EOF {
				s.err = err
			}
			return false
		}
		if d, ok := f.Data(); ok {
			s.chunk = d
			return true
		}
	}
	return false
}

func (s *DataStream) Chunk() []byte { return s.chunk }

// Err returns the read error that ended the stream, if any.
func (s *DataStream) Err() error { return s.err }

// All adapts s to a range-over-func sequence. A failure is yielded once as
// the last element.
func (s *DataStream) All(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for s.Next(ctx) {
			if !yield(s.chunk, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

// Close releases the wrapped body if it can be closed.
func (s *DataStream) Close() error {
	s.done = true
	if c, ok := s.b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
