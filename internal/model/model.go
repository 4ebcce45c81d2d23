package model

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Request is an http request carrying a payload of type B. Transports are
// generic over B, the client facade always sends *body.Body.
type Request[B any] struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   B
}

type Response[B any] struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	Body B
}

// NewRequest parses rawURL and builds a request. An empty method means GET.
func NewRequest[B any](method, rawURL string, body B) (*Request[B], error) {
	if method == "" {
		method = http.MethodGet
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Request[B]{
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Body:   body,
	}, nil
}

// MapBody moves r's metadata onto a new request whose payload is f(r.Body).
// r must not be used afterwards.
func MapBody[B, U any](r *Request[B], f func(B) U) *Request[U] {
	return &Request[U]{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header,
		Body:   f(r.Body),
	}
}

// MapResponseBody is the response counterpart of [MapBody].
func MapResponseBody[B, U any](r *Response[B], f func(B) U) *Response[U] {
	return &Response[U]{
		Proto:      r.Proto,
		Status:     r.Status,
		StatusCode: r.StatusCode,
		Header:     r.Header,
		Body:       f(r.Body),
	}
}

// Validate rejects requests no transport could put on the wire.
func (r *Request[B]) Validate() error {
	if r.URL == nil {
		return errors.New("nil request url")
	}
	if r.Method != "" && strings.IndexFunc(r.Method, func(c rune) bool { return !httpguts.IsTokenRune(c) }) != -1 {
		return fmt.Errorf("invalid method %q", r.Method)
	}
	if r.URL.Host == "" && r.Header.Get("Host") == "" {
		return url.InvalidHostError("empty host")
	}
	if !httpguts.ValidHostHeader(r.URL.Host) {
		return fmt.Errorf("invalid host %q", r.URL.Host)
	}
	for k, vv := range r.Header {
		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("invalid header field name %q", k)
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fmt.Errorf("invalid header field value for %q", k)
			}
		}
	}
	return nil
}
