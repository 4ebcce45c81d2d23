// Package nethttp plugs a standard library *http.Client in as a transport.
package nethttp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
	"github.com/frankli0324/reggie/internal/transport"
)

var _ transport.Transport[*body.Body, Body] = (*Transport[*body.Body])(nil)
var _ transport.Transport[string, Body] = (*Transport[string])(nil)

// Transport sends requests with payload B through an *http.Client. Each
// payload type gets its own request body setup, reusable payloads can be
// replayed on redirects.
type Transport[B body.Payload] struct {
	client    *http.Client
	userAgent string
	err       error // construction failure, reported by every Send
}

// New uses c, or http.DefaultClient when c is nil.
func New(c *http.Client) *Transport[*body.Body] {
	return NewFor[*body.Body](c)
}

func NewFor[B body.Payload](c *http.Client) *Transport[B] {
	if c == nil {
		c = http.DefaultClient
	}
	return &Transport[B]{client: c}
}

func (t *Transport[B]) Send(ctx context.Context, req *model.Request[B]) (*model.Response[Body], error) {
	if t.err != nil {
		return nil, model.Conn(t.err)
	}
	if err := req.Validate(); err != nil {
		return nil, model.Conn(err)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, model.Conn(err)
	}
	if req.Header != nil {
		hr.Header = req.Header.Clone()
	}
	if host := hr.Header.Get("Host"); host != "" {
		hr.Host = host
		hr.Header.Del("Host")
	}
	if t.userAgent != "" && hr.Header.Get("User-Agent") == "" {
		hr.Header.Set("User-Agent", t.userAgent)
	}
	setBody(ctx, hr, req.Body)

	resp, err := t.client.Do(hr)
	if err != nil {
		return nil, model.Conn(err)
	}
	return &model.Response[Body]{
		Proto:      resp.Proto,
		Status:     resp.Status,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       Body{resp: resp},
	}, nil
}

// taken from http.NewRequest, extended to *body.Body
func setBody[B body.Payload](ctx context.Context, r *http.Request, payload B) {
	switch b := any(payload).(type) {
	case string:
		if len(b) == 0 {
			break
		}
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(b)), nil
		}
	case []byte:
		if len(b) == 0 {
			break
		}
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	case *body.Body:
		if b == nil || b.IsEndStream() {
			break
		}
		if !b.IsStreaming() {
			// reusable bodies are replayed like []byte on redirects
			f, _ := b.ReadFrame(ctx)
			data, _ := f.Data()
			setBody(ctx, r, data)
			return
		}
		r.ContentLength = -1
		if n, ok := b.SizeHint().Exact(); ok {
			r.ContentLength = int64(n)
		}
		r.Body = b.Reader(ctx)
		return
	}
	if r.GetBody == nil {
		r.Body, r.GetBody = http.NoBody, func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	r.Body, _ = r.GetBody()
}
