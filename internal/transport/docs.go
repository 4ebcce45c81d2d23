// package transport contains the capability interface every http backend
// implements, and the bridge that erases a concrete backend into one
// dynamically dispatched type.
//
// a backend is written against [Transport], generic over both the payload it
// accepts and the body type it produces. code that must hold "some
// transport" without naming it uses [Erased], obtained through [Erase] or
// [EraseWith]:
//
//	t := nethttp.New(http.DefaultClient) // Transport[*body.Body, nethttp.Body]
//	e := transport.Erase[*body.Body, nethttp.Body](t)
//
// calling a concrete Transport directly through its type never goes through
// an interface value. only the bridge does.
//
// an erased transport is safe for concurrent use exactly when the wrapped
// transport is. the bridge itself holds nothing but the wrapped value and the
// conversion function, both read-only.
package transport
