package transport

import (
	"context"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
)

// Transport sends one request and returns the response. B is the payload
// type the backend accepts, RB the body type it produces.
//
// Implementations report transport failures as connection errors and body
// read failures as body errors. Errors outside the taxonomy are treated as
// connection errors once the transport is erased.
type Transport[B, RB any] interface {
	Send(ctx context.Context, req *model.Request[B]) (*model.Response[RB], error)
}

// Erased is the object-safe form a client holds: the canonical response body
// with any payload type B.
type Erased[B any] = Transport[B, *body.Body]

// Func adapts a function to a [Transport].
type Func[B, RB any] func(ctx context.Context, req *model.Request[B]) (*model.Response[RB], error)

func (f Func[B, RB]) Send(ctx context.Context, req *model.Request[B]) (*model.Response[RB], error) {
	return f(ctx, req)
}
