package internal

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
	"github.com/frankli0324/reggie/internal/transport"
)

type Request = model.Request[*body.Body]
type Response = model.Response[*body.Body]
type Middleware = transport.Middleware

var errNoTransport = errors.New("client has no transport")

// Client is the facade over one erased transport. It is a small value,
// copying it yields an independent handle on the same transport.
type Client struct {
	inner transport.Erased[*body.Body]
}

type options struct {
	middlewares []Middleware
}

type Option func(*options)

// WithMiddlewares appends mws to the chain, the first one runs outermost.
func WithMiddlewares(mws ...Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

func WithLogger(l *zap.Logger) Option {
	return WithMiddlewares(transport.Logging(l))
}

func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return WithMiddlewares(transport.Metrics(reg, namespace))
}

// NewClient erases t and wraps it with the configured middlewares.
func NewClient[RB body.Into](t transport.Transport[*body.Body, RB], opts ...Option) Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return Client{inner: transport.Chain(transport.Erase[*body.Body, RB](t), o.middlewares...)}
}

// Do forwards req untouched and returns the canonical response.
func (c Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.inner == nil {
		return nil, model.Conn(errNoTransport)
	}
	return c.inner.Send(ctx, req)
}

// Request builds a request from a raw payload, see [body.From] for the
// shapes accepted. Payload and URL errors are request-construction errors
// and are returned as is.
func (c Client) Request(ctx context.Context, method, url string, payload any) (*Response, error) {
	b, err := body.From(payload)
	if err != nil {
		return nil, err
	}
	req, err := model.NewRequest(method, url, b)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Send converts the payload of req into a body and forwards it.
func Send[P body.Payload](ctx context.Context, c Client, req *model.Request[P]) (*Response, error) {
	return c.Do(ctx, model.MapBody(req, body.Convert[P]))
}

// ClientFactory creates clients on demand.
type ClientFactory interface {
	Create() Client
}

type ClientFactoryFunc func() Client

func (f ClientFactoryFunc) Create() Client { return f() }

// TransportFactory creates transports accepting canonical bodies.
type TransportFactory[RB body.Into] interface {
	Create() transport.Transport[*body.Body, RB]
}

// FactoryOf turns a transport factory into a client factory, each Create
// builds a fresh transport and wraps it.
func FactoryOf[RB body.Into](f TransportFactory[RB], opts ...Option) ClientFactory {
	return ClientFactoryFunc(func() Client {
		return NewClient(f.Create(), opts...)
	})
}
