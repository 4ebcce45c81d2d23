package reggie

import (
	"net/http"

	"github.com/frankli0324/reggie/internal/adapter/nethttp"
	"github.com/frankli0324/reggie/internal/adapter/wire"
)

type NetHTTPConfig = nethttp.Config
type NetHTTPFactory = nethttp.Factory
type NetHTTPBody = nethttp.Body

var LoadNetHTTPConfig = nethttp.LoadConfig

// NetHTTP returns a transport backed by c, nil uses [http.DefaultClient].
func NetHTTP(c *http.Client) *nethttp.Transport[*Body] {
	return nethttp.New(c)
}

type Dialer = wire.Dialer
type DialerFunc = wire.DialerFunc
type CoreDialer = wire.CoreDialer
type PreparedRequest = wire.Prepared

// Wire returns a transport speaking HTTP/1.1 over streams from d.
func Wire(d Dialer) *wire.Transport {
	return wire.New(d)
}
