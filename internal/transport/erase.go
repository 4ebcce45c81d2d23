package transport

import (
	"context"
	"errors"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
)

var errNoResponse = errors.New("transport returned no response")

type erased[B any] interface {
	Transport[B, *body.Body]
	erased()
}

type bridge[B, RB any] struct {
	t    Transport[B, RB]
	conv func(RB) *body.Body
}

// Erase wraps t behind [Erased], converting its body type through
// [body.Into]. Erasing an already erased transport returns it unchanged.
func Erase[B any, RB body.Into](t Transport[B, RB]) Erased[B] {
	if e, ok := any(t).(erased[B]); ok {
		return e
	}
	return EraseWith(t, func(rb RB) *body.Body { return rb.IntoBody() })
}

// EraseWith is [Erase] for body types that need an explicit conversion.
func EraseWith[B, RB any](t Transport[B, RB], conv func(RB) *body.Body) Erased[B] {
	return &bridge[B, RB]{t: t, conv: conv}
}

func (b *bridge[B, RB]) Send(ctx context.Context, req *model.Request[B]) (*model.Response[*body.Body], error) {
	resp, err := b.t.Send(ctx, req)
	if err != nil {
		return nil, model.Conn(err)
	}
	if resp == nil {
		return nil, model.Conn(errNoResponse)
	}
	return model.MapResponseBody(resp, b.conv), nil
}

// Unwrap returns the concrete transport.
func (b *bridge[B, RB]) Unwrap() any { return b.t }

func (b *bridge[B, RB]) erased() {}
