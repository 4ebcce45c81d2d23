// Package extract drains bodies into bytes, text or decoded values, or
// adapts them into lazy chunk sequences.
//
// Every draining function consumes the body completely and is not
// restartable. Bodies are any [body.Stream] of []byte, which includes
// *body.Body.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"

	"google.golang.org/protobuf/proto"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
)

var ErrInvalidUTF8 = errors.New("invalid utf-8 sequence")

// DecodeFunc interprets drained bytes as a T.
type DecodeFunc[T any] func([]byte) (T, error)

// ToBytes concatenates all data frames of b, trailers are discarded.
func ToBytes(ctx context.Context, b body.Stream[[]byte]) ([]byte, error) {
	if r, ok := b.(*body.Body); ok && !r.IsStreaming() {
		// a reusable body is a single frame, hand it out without copying
		f, err := r.ReadFrame(ctx)
		if err == io.EOF {
			return []byte{}, nil
		}
		d, _ := f.Data()
		return d, err
	}
	var buf bytes.Buffer
	if n, ok := b.SizeHint().Exact(); ok && n < 64<<20 {
		buf.Grow(int(n))
	}
	for {
		f, err := b.ReadFrame(ctx)
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, model.BodyErr(err)
		}
		if d, ok := f.Data(); ok {
			buf.Write(d)
		}
	}
}

// ToText drains b and validates the result as UTF-8.
func ToText(ctx context.Context, b body.Stream[[]byte]) (string, error) {
	data, err := ToBytes(ctx, b)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", model.BodyErr(ErrInvalidUTF8)
	}
	return string(data), nil
}

// ToDecoded drains b and hands the bytes to decode.
func ToDecoded[T any](ctx context.Context, b body.Stream[[]byte], decode DecodeFunc[T]) (T, error) {
	data, err := ToBytes(ctx, b)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := decode(data)
	if err != nil {
		var zero T
		return zero, model.BodyErr(err)
	}
	return v, nil
}

func JSONDecoder[T any]() DecodeFunc[T] {
	return func(data []byte) (v T, err error) {
		err = json.Unmarshal(data, &v)
		return
	}
}

func ToJSON[T any](ctx context.Context, b body.Stream[[]byte]) (T, error) {
	return ToDecoded(ctx, b, JSONDecoder[T]())
}

// ProtoDecoder unmarshals into a fresh message produced by newMsg.
func ProtoDecoder[M proto.Message](newMsg func() M) DecodeFunc[M] {
	return func(data []byte) (M, error) {
		m := newMsg()
		return m, proto.Unmarshal(data, m)
	}
}

// ToProto drains b into msg.
func ToProto(ctx context.Context, b body.Stream[[]byte], msg proto.Message) error {
	_, err := ToDecoded(ctx, b, func(data []byte) (proto.Message, error) {
		return msg, proto.Unmarshal(data, msg)
	})
	return err
}
