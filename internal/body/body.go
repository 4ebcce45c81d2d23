package body

import (
	"context"
	"io"

	"github.com/frankli0324/reggie/internal/model"
)

// Body is either a reusable in-memory payload or a streaming producer of
// frames. The zero value is an empty reusable body.
//
// A Body owns its bytes or producer and is read by one goroutine at a time;
// pass it by pointer, never copy it.
type Body struct {
	buf    []byte
	stream Stream[[]byte]
}

// Into is implemented by response body types a transport returns so the
// erasure bridge can normalize them.
type Into interface {
	IntoBody() *Body
}

func Empty() *Body { return &Body{} }

// FromBytes wraps b without copying, the caller must not modify b afterwards.
func FromBytes(b []byte) *Body { return &Body{buf: b} }

func FromString(s string) *Body { return &Body{buf: []byte(s)} }

// FromStreaming wraps any chunked-read producer. Chunks are converted to
// []byte, errors that are not already classified become body errors.
func FromStreaming[D Chunk](s Stream[D]) *Body {
	return &Body{stream: converted[D]{s}}
}

func (b *Body) IntoBody() *Body { return b }

// IsStreaming reports whether b is backed by a producer.
func (b *Body) IsStreaming() bool { return b.stream != nil }

// ReadFrame yields the next frame. A reusable body hands out all remaining
// bytes as one data frame and reports io.EOF from then on.
func (b *Body) ReadFrame(ctx context.Context) (Frame[[]byte], error) {
	if b.stream != nil {
		return b.stream.ReadFrame(ctx)
	}
	if len(b.buf) == 0 {
		b.buf = nil
		return Frame[[]byte]{}, io.EOF
	}
	out := b.buf
	b.buf = nil
	return DataFrame(out), nil
}

func (b *Body) SizeHint() SizeHint {
	if b.stream != nil {
		return b.stream.SizeHint()
	}
	return ExactSize(uint64(len(b.buf)))
}

func (b *Body) IsEndStream() bool {
	if b.stream != nil {
		return b.stream.IsEndStream()
	}
	return len(b.buf) == 0
}

// Close releases the producer of a streaming body. Closing before the end
// of the stream cancels it and is not an error.
func (b *Body) Close() error {
	b.buf = nil
	if c, ok := b.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type converted[D Chunk] struct {
	Stream[D]
}

func (c converted[D]) ReadFrame(ctx context.Context) (Frame[[]byte], error) {
	f, err := c.Stream.ReadFrame(ctx)
	if err != nil {
		if err == io.EOF {
			return Frame[[]byte]{}, io.EOF
		}
		return Frame[[]byte]{}, model.BodyErr(err)
	}
	return MapData(f, func(d D) []byte { return []byte(d) }), nil
}

func (c converted[D]) Close() error {
	if cl, ok := c.Stream.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
