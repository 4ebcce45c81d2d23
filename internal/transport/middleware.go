package transport

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
)

// Middleware wraps an erased transport. The returned transport must be safe
// for concurrent use whenever next is.
type Middleware func(next Erased[*body.Body]) Erased[*body.Body]

type handler = Func[*body.Body, *body.Body]

// Chain applies mws to base: Chain(base, a, b, c) returns a(b(c(base))).
// nil middlewares are skipped.
func Chain(base Erased[*body.Body], mws ...Middleware) Erased[*body.Body] {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		base = mws[i](base)
	}
	return base
}

// SetHeader sets key on every outgoing request without touching the
// caller's header map.
func SetHeader(key, value string) Middleware {
	if key == "" {
		return func(next Erased[*body.Body]) Erased[*body.Body] { return next }
	}
	return func(next Erased[*body.Body]) Erased[*body.Body] {
		return handler(func(ctx context.Context, req *model.Request[*body.Body]) (*model.Response[*body.Body], error) {
			r2 := *req
			r2.Header = req.Header.Clone()
			if r2.Header == nil {
				r2.Header = make(map[string][]string)
			}
			r2.Header.Set(key, value)
			return next.Send(ctx, &r2)
		})
	}
}

// Logging emits one entry per exchange. Failures are logged at warn level
// with their kind.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Erased[*body.Body]) Erased[*body.Body] {
		return handler(func(ctx context.Context, req *model.Request[*body.Body]) (*model.Response[*body.Body], error) {
			start := time.Now()
			resp, err := next.Send(ctx, req)
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.Stringer("url", req.URL),
				zap.Duration("elapsed", time.Since(start)),
			}
			if err != nil {
				kind, _ := model.KindOf(err)
				logger.Warn("request failed", append(fields, zap.Stringer("kind", kind), zap.Error(err))...)
				return nil, err
			}
			logger.Debug("request done", append(fields, zap.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}

// register adds c to reg, or returns the collector already registered
// under the same descriptor so clients can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Metrics counts exchanges by method and outcome, and observes their
// duration. Collectors are registered on reg, which may be nil.
func Metrics(reg prometheus.Registerer, namespace string) Middleware {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_requests_total",
		Help:      "Requests sent through the client, by method and outcome.",
	}, []string{"method", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "client_request_duration_seconds",
		Help:      "Time until the response head was received.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	if reg != nil {
		requests = register(reg, requests)
		duration = register(reg, duration)
	}
	return func(next Erased[*body.Body]) Erased[*body.Body] {
		return handler(func(ctx context.Context, req *model.Request[*body.Body]) (*model.Response[*body.Body], error) {
			timer := prometheus.NewTimer(duration.WithLabelValues(req.Method))
			resp, err := next.Send(ctx, req)
			timer.ObserveDuration()
			outcome := "ok"
			if err != nil {
				outcome = "error"
				if kind, ok := model.KindOf(err); ok {
					outcome = kind.String()
				}
			}
			requests.WithLabelValues(req.Method, outcome).Inc()
			return resp, err
		})
	}
}
