package body

import (
	"context"
	"net/http"
)

// Frame is one unit of the chunked-read protocol: either a data chunk or
// trailing metadata.
type Frame[D any] struct {
	data     D
	trailers http.Header
	isData   bool
}

func DataFrame[D any](d D) Frame[D] {
	return Frame[D]{data: d, isData: true}
}

func TrailersFrame[D any](h http.Header) Frame[D] {
	return Frame[D]{trailers: h}
}

func (f Frame[D]) IsData() bool { return f.isData }

// Data returns the chunk carried by f, ok is false for trailer frames.
func (f Frame[D]) Data() (d D, ok bool) {
	return f.data, f.isData
}

func (f Frame[D]) Trailers() (http.Header, bool) {
	if f.isData {
		return nil, false
	}
	return f.trailers, true
}

// MapData converts the chunk of a data frame, trailer frames pass through.
func MapData[D, U any](f Frame[D], fn func(D) U) Frame[U] {
	if f.isData {
		return DataFrame(fn(f.data))
	}
	return TrailersFrame[U](f.trailers)
}

// SizeHint bounds the number of bytes a body will still yield.
// Upper is only meaningful when HasUpper is set.
type SizeHint struct {
	Lower    uint64
	Upper    uint64
	HasUpper bool
}

func ExactSize(n uint64) SizeHint {
	return SizeHint{Lower: n, Upper: n, HasUpper: true}
}

// Exact reports the size when both bounds agree.
func (h SizeHint) Exact() (uint64, bool) {
	if h.HasUpper && h.Lower == h.Upper {
		return h.Upper, true
	}
	return 0, false
}

// Stream is the chunked-read protocol. ReadFrame returns [io.EOF] once the
// producer is exhausted and keeps doing so. Any other error is terminal.
//
// A Stream is pulled by a single consumer, it need not be safe for
// concurrent use. If the implementation also satisfies [io.Closer], owners
// release it with Close when they stop reading early.
type Stream[D any] interface {
	ReadFrame(ctx context.Context) (Frame[D], error)
	SizeHint() SizeHint
	IsEndStream() bool
}

// Chunk is any chunk type that converts into the canonical []byte.
type Chunk interface {
	~[]byte | ~string
}
