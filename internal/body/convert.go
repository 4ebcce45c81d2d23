package body

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// From converts the payload shapes a client accepts into a Body.
// nil becomes an empty body.
func From(v any) (*Body, error) {
	switch b := v.(type) {
	case nil:
		return Empty(), nil
	case *Body:
		if b == nil {
			return Empty(), nil
		}
		return b, nil
	case string:
		return FromString(b), nil
	case []byte:
		return FromBytes(b), nil
	case *bytes.Buffer:
		return FromBytes(b.Next(b.Len())), nil
	case *bytes.Reader:
		buf := make([]byte, b.Len())
		_, err := io.ReadFull(b, buf)
		return FromBytes(buf), err
	case *strings.Reader:
		var sb strings.Builder
		_, err := b.WriteTo(&sb)
		return FromString(sb.String()), err
	case Stream[[]byte]:
		return FromStreaming(b), nil
	case Stream[string]:
		return FromStreaming(b), nil
	case io.Reader:
		return FromReader(b), nil
	}
	return nil, fmt.Errorf("unsupported body type: %T", v)
}

// Payload lists the types [Convert] accepts at compile time.
type Payload interface {
	string | []byte | *Body
}

func Convert[P Payload](p P) *Body {
	switch b := any(p).(type) {
	case string:
		return FromString(b)
	case []byte:
		return FromBytes(b)
	case *Body:
		if b == nil {
			return Empty()
		}
		return b
	}
	panic("unreachable")
}
