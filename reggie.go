// Package reggie is a transport-agnostic HTTP client: requests and
// responses carry a [Body] that is either a reusable byte payload or a
// stream of frames, and any backend plugs in as a [Transport].
package reggie

import (
	"context"
	"net/http"

	"github.com/frankli0324/reggie/internal"
	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
	"github.com/frankli0324/reggie/internal/transport"
)

type Header = http.Header

type Client = internal.Client
type Option = internal.Option
type ClientFactory = internal.ClientFactory
type ClientFactoryFunc = internal.ClientFactoryFunc
type TransportFactory[RB body.Into] = internal.TransportFactory[RB]

type Body = body.Body
type Frame[D any] = body.Frame[D]
type SizeHint = body.SizeHint
type Stream[D any] = body.Stream[D]
type Payload = body.Payload

type Request[B any] = model.Request[B]
type Response[B any] = model.Response[B]

type Transport[B, RB any] = transport.Transport[B, RB]
type Erased[B any] = transport.Erased[B]
type Middleware = transport.Middleware

type Error = model.Error
type ErrorKind = model.Kind

const (
	KindConnection = model.KindConnection
	KindBody       = model.KindBody
)

var (
	WithMiddlewares = internal.WithMiddlewares
	WithLogger      = internal.WithLogger
	WithMetrics     = internal.WithMetrics

	IsConnection = model.IsConnection
	IsBody       = model.IsBody
)

func NewClient[RB body.Into](t Transport[*Body, RB], opts ...Option) Client {
	return internal.NewClient(t, opts...)
}

func NewRequest[B any](method, url string, b B) (*Request[B], error) {
	return model.NewRequest(method, url, b)
}

func Send[P Payload](ctx context.Context, c Client, req *Request[P]) (*Response[*Body], error) {
	return internal.Send(ctx, c, req)
}

func FactoryOf[RB body.Into](f TransportFactory[RB], opts ...Option) ClientFactory {
	return internal.FactoryOf(f, opts...)
}

// Erase adapts a typed transport to the canonical body, see [transport.Erase].
func Erase[B any, RB body.Into](t Transport[B, RB]) Erased[B] {
	return transport.Erase[B, RB](t)
}
