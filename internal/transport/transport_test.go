package transport_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/extract"
	"github.com/frankli0324/reggie/internal/model"
	"github.com/frankli0324/reggie/internal/transport"
)

type echoBody struct{ data string }

func (e echoBody) IntoBody() *body.Body { return body.FromString(e.data) }

// echo answers with the request payload and a header naming the method.
type echo struct{}

func (echo) Send(ctx context.Context, req *model.Request[*body.Body]) (*model.Response[echoBody], error) {
	data, err := extract.ToText(ctx, req.Body)
	if err != nil {
		return nil, err
	}
	return &model.Response[echoBody]{
		Status:     "200 OK",
		StatusCode: 200,
		Header:     http.Header{"X-Method": {req.Method}},
		Body:       echoBody{data},
	}, nil
}

func newRequest(t *testing.T, payload string) *model.Request[*body.Body] {
	req, err := model.NewRequest(http.MethodPost, "http://example.com/x", body.FromString(payload))
	require.NoError(t, err)
	return req
}

func TestEraseMatchesDirect(t *testing.T) {
	ctx := context.Background()
	direct, err := echo{}.Send(ctx, newRequest(t, "ping"))
	require.NoError(t, err)

	erased := transport.Erase[*body.Body, echoBody](echo{})
	resp, err := erased.Send(ctx, newRequest(t, "ping"))
	require.NoError(t, err)

	assert.Equal(t, direct.StatusCode, resp.StatusCode)
	assert.Equal(t, direct.Status, resp.Status)
	assert.Equal(t, direct.Header, resp.Header)
	text, err := extract.ToText(ctx, resp.Body)
	require.NoError(t, err)
	assert.Equal(t, direct.Body.data, text)
}

func TestEraseIsIdempotent(t *testing.T) {
	e := transport.Erase[*body.Body, echoBody](echo{})
	assert.Same(t, e, transport.Erase[*body.Body, *body.Body](e))
}

func TestEraseClassifiesErrors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	failing := transport.Func[*body.Body, echoBody](func(context.Context, *model.Request[*body.Body]) (*model.Response[echoBody], error) {
		return nil, cause
	})
	_, err := transport.Erase[*body.Body, echoBody](failing).Send(context.Background(), newRequest(t, ""))
	require.Error(t, err)
	assert.True(t, model.IsConnection(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection: dial tcp: connection refused", err.Error())

	bodyFailure := transport.Func[*body.Body, echoBody](func(context.Context, *model.Request[*body.Body]) (*model.Response[echoBody], error) {
		return nil, model.BodyErr(cause)
	})
	_, err = transport.Erase[*body.Body, echoBody](bodyFailure).Send(context.Background(), newRequest(t, ""))
	assert.True(t, model.IsBody(err), "classified errors keep their kind")

	empty := transport.Func[*body.Body, echoBody](func(context.Context, *model.Request[*body.Body]) (*model.Response[echoBody], error) {
		return nil, nil
	})
	_, err = transport.Erase[*body.Body, echoBody](empty).Send(context.Background(), newRequest(t, ""))
	assert.True(t, model.IsConnection(err))
}

func TestEraseWith(t *testing.T) {
	raw := transport.Func[string, []byte](func(_ context.Context, req *model.Request[string]) (*model.Response[[]byte], error) {
		return &model.Response[[]byte]{StatusCode: 201, Body: []byte(req.Body + "!")}, nil
	})
	e := transport.EraseWith[string, []byte](raw, body.FromBytes)
	req, err := model.NewRequest(http.MethodPut, "http://example.com", "hey")
	require.NoError(t, err)
	resp, err := e.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	text, err := extract.ToText(context.Background(), resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hey!", text)
}

func TestEraseConcurrent(t *testing.T) {
	e := transport.Erase[*body.Body, echoBody](echo{})
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("req-%d", i)
			resp, err := e.Send(context.Background(), newRequest(t, want))
			if err != nil {
				errs <- err
				return
			}
			got, err := extract.ToText(context.Background(), resp.Body)
			if err == nil && got != want {
				err = fmt.Errorf("got %q, want %q", got, want)
			}
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) transport.Middleware {
		return func(next transport.Erased[*body.Body]) transport.Erased[*body.Body] {
			return transport.Func[*body.Body, *body.Body](func(ctx context.Context, req *model.Request[*body.Body]) (*model.Response[*body.Body], error) {
				order = append(order, name)
				return next.Send(ctx, req)
			})
		}
	}
	base := transport.Erase[*body.Body, echoBody](echo{})
	_, err := transport.Chain(base, mw("a"), nil, mw("b"), mw("c")).Send(context.Background(), newRequest(t, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSetHeader(t *testing.T) {
	var seen string
	base := transport.Func[*body.Body, *body.Body](func(_ context.Context, req *model.Request[*body.Body]) (*model.Response[*body.Body], error) {
		seen = req.Header.Get("User-Agent")
		return &model.Response[*body.Body]{StatusCode: 204, Body: body.Empty()}, nil
	})
	req := newRequest(t, "")
	_, err := transport.Chain(base, transport.SetHeader("User-Agent", "reggie-test")).Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "reggie-test", seen)
	assert.Empty(t, req.Header.Get("User-Agent"), "caller headers are untouched")
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	ok := transport.Chain(transport.Erase[*body.Body, echoBody](echo{}), transport.Logging(logger))
	_, err := ok.Send(context.Background(), newRequest(t, "x"))
	require.NoError(t, err)

	failing := transport.Chain(transport.Func[*body.Body, *body.Body](func(context.Context, *model.Request[*body.Body]) (*model.Response[*body.Body], error) {
		return nil, model.Conn(errors.New("refused"))
	}), transport.Logging(logger))
	_, err = failing.Send(context.Background(), newRequest(t, "x"))
	require.Error(t, err)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "request done", entries[0].Message)
	assert.EqualValues(t, 200, entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "connection", entries[1].ContextMap()["kind"])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw := transport.Metrics(reg, "reggie")
	ok := transport.Chain(transport.Erase[*body.Body, echoBody](echo{}), mw)
	failing := transport.Chain(transport.Func[*body.Body, *body.Body](func(context.Context, *model.Request[*body.Body]) (*model.Response[*body.Body], error) {
		return nil, model.BodyErr(errors.New("truncated"))
	}), mw)

	for i := 0; i < 3; i++ {
		_, err := ok.Send(context.Background(), newRequest(t, ""))
		require.NoError(t, err)
	}
	_, err := failing.Send(context.Background(), newRequest(t, ""))
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "reggie_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetricsSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := transport.Chain(transport.Erase[*body.Body, echoBody](echo{}), transport.Metrics(reg, "reggie"))
	var second transport.Erased[*body.Body]
	require.NotPanics(t, func() {
		second = transport.Chain(transport.Erase[*body.Body, echoBody](echo{}), transport.Metrics(reg, "reggie"))
	})

	for _, tr := range []transport.Erased[*body.Body]{first, second} {
		_, err := tr.Send(context.Background(), newRequest(t, ""))
		require.NoError(t, err)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(registeredRequests(t, reg)))
}

// registeredRequests returns the request counter already held by reg.
func registeredRequests(t *testing.T, reg *prometheus.Registry) prometheus.Collector {
	t.Helper()
	err := reg.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reggie",
		Name:      "client_requests_total",
		Help:      "Requests sent through the client, by method and outcome.",
	}, []string{"method", "outcome"}))
	var are prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &are)
	return are.ExistingCollector
}
