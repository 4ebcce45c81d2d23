package model

import "errors"

// Kind classifies an [Error]. There are exactly two kinds.
type Kind uint8

const (
	// KindConnection covers anything the transport reports before or during
	// the exchange: dns, tcp, tls or http protocol violations.
	KindConnection Kind = iota + 1
	// KindBody covers failures while reading or decoding payload bytes.
	KindBody
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindBody:
		return "body"
	}
	return "unknown"
}

// Error wraps an opaque cause with its [Kind]. The cause is only meant for
// display, callers should branch on Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Conn wraps err as a connection error. An err that already is an *Error is
// returned as is, nil stays nil.
func Conn(err error) error {
	return wrap(KindConnection, err)
}

// BodyErr wraps err as a body error following the same rules as [Conn].
func BodyErr(err error) error {
	return wrap(KindBody, err)
}

func wrap(k Kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: k, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsConnection(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindConnection
}

func IsBody(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindBody
}
