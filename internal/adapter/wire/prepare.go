package wire

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
)

// Prepared is a request ready to be put on the wire: host and
// content-length are lifted out of the header map.
type Prepared struct {
	*model.Request[*body.Body]

	Header     http.Header
	HeaderHost string

	ContentLength int64 // -1 if unknown, the body is then sent chunked
}

func Prepare(r *model.Request[*body.Body]) (*Prepared, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Body == nil {
		// the caller's request is left untouched
		rc := *r
		rc.Body = body.Empty()
		r = &rc
	}

	headers := r.Header.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	host := r.URL.Host
	cl := int64(-1)
	// user defined headers has higher priority
	for k, v := range headers {
		if strings.EqualFold(k, "host") {
			if len(v) != 0 {
				host = v[0]
			}
			delete(headers, k)
		}
		if strings.EqualFold(k, "content-length") {
			if len(v) != 0 {
				if v, err := strconv.ParseInt(v[0], 10, 64); err == nil {
					cl = v
				}
			}
			delete(headers, k)
		}
	}

	pr := &Prepared{
		Request: r, Header: headers, HeaderHost: host,
		ContentLength: -1,
	}
	if n, ok := r.Body.SizeHint().Exact(); ok {
		pr.ContentLength = int64(n)
	}
	if cl != -1 {
		if pr.ContentLength != -1 && pr.ContentLength != cl {
			return nil, errors.New("conflicting value between body size and content-length request header")
		}
		pr.ContentLength = cl
	}
	return pr, nil
}
