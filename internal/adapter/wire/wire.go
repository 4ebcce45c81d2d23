// Package wire speaks HTTP/1.1 itself over any stream a [Dialer] hands it.
// One stream carries exactly one exchange and is closed once the response
// body is drained or released.
package wire

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
	"github.com/frankli0324/reggie/internal/transport"
)

var _ transport.Erased[*body.Body] = (*Transport)(nil)

type Transport struct {
	dialer Dialer
}

// New returns a transport writing to streams from d, a nil d dials TCP.
func New(d Dialer) *Transport {
	if d == nil {
		d = &CoreDialer{}
	}
	return &Transport{dialer: d}
}

func (t *Transport) Send(ctx context.Context, req *model.Request[*body.Body]) (*model.Response[*body.Body], error) {
	pr, err := Prepare(req)
	if err != nil {
		return nil, model.Conn(err)
	}
	conn, err := t.dialer.Dial(ctx, pr)
	if err != nil {
		return nil, model.Conn(err)
	}
	rc := &onceCloser{c: conn}

	// unblock a stuck write or header read if ctx ends first
	stop := context.AfterFunc(ctx, func() { rc.Close() })
	resp, b, err := exchange(ctx, conn, rc, pr)
	if !stop() && err == nil {
		err = ctx.Err()
		b.Close()
	}
	if err != nil {
		rc.Close()
		return nil, model.Conn(err)
	}
	return &model.Response[*body.Body]{
		Proto: resp.Proto, Status: resp.Status, StatusCode: resp.StatusCode,
		Header: resp.Header, Body: b,
	}, nil
}

func exchange(ctx context.Context, conn io.ReadWriter, closer io.Closer, pr *Prepared) (*response, *body.Body, error) {
	if err := writeRequest(ctx, conn, pr); err != nil {
		return nil, nil, err
	}
	br := bufio.NewReader(conn)
	resp, err := readResponse(br)
	if err != nil {
		return nil, nil, err
	}
	b, err := readTransfer(br, pr.Method, resp, closer)
	if err != nil {
		return nil, nil, err
	}
	return resp, b, nil
}

type onceCloser struct {
	once sync.Once
	c    io.Closer
	err  error
}

func (o *onceCloser) Close() error {
	o.once.Do(func() { o.err = o.c.Close() })
	return o.err
}
