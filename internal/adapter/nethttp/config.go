package nethttp

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/transport"
)

// Duration reads "1.5s" style strings from JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("duration must be a string or nanoseconds: %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config describes the *http.Client a [Factory] builds. Zero fields take the
// http.DefaultTransport values.
type Config struct {
	Timeout             Duration `json:"timeout,omitempty"`
	IdleConnTimeout     Duration `json:"idle_conn_timeout,omitempty"`
	MaxIdleConns        int      `json:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost int      `json:"max_idle_conns_per_host,omitempty"`
	DisableCompression  bool     `json:"disable_compression,omitempty"`
	InsecureSkipVerify  bool     `json:"insecure_skip_verify,omitempty"`

	// H2C speaks cleartext HTTP/2 with prior knowledge. https urls are
	// rejected in this mode.
	H2C bool `json:"h2c,omitempty"`
	// ForceHTTP2 enables HTTP/2 over TLS even with a customized TLS config.
	ForceHTTP2 bool `json:"force_http2,omitempty"`

	UserAgent string `json:"user_agent,omitempty"`
}

// LoadConfig reads a JSON encoded [Config] from path.
func LoadConfig(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// HTTPClient builds a fresh client, it never shares connections with
// http.DefaultTransport.
func (c Config) HTTPClient() (*http.Client, error) {
	hc := &http.Client{Timeout: time.Duration(c.Timeout)}
	if c.H2C {
		hc.Transport = &http2.Transport{
			AllowHTTP:          true,
			DisableCompression: c.DisableCompression,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
		return hc, nil
	}

	var t *http.Transport
	if dt, ok := http.DefaultTransport.(*http.Transport); ok {
		t = dt.Clone()
	} else {
		t = &http.Transport{}
	}
	if c.IdleConnTimeout > 0 {
		t.IdleConnTimeout = time.Duration(c.IdleConnTimeout)
	}
	if c.MaxIdleConns > 0 {
		t.MaxIdleConns = c.MaxIdleConns
	}
	if c.MaxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = c.MaxIdleConnsPerHost
	}
	t.DisableCompression = c.DisableCompression
	if c.InsecureSkipVerify {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{}
		}
		t.TLSClientConfig.InsecureSkipVerify = true
	}
	if c.ForceHTTP2 {
		t.TLSNextProto = nil
		if err := http2.ConfigureTransport(t); err != nil {
			return nil, err
		}
	}
	hc.Transport = t
	return hc, nil
}

// Factory creates an independent transport per call from a stored Config.
type Factory struct {
	Config Config
}

func (f Factory) Create() transport.Transport[*body.Body, Body] {
	hc, err := f.Config.HTTPClient()
	t := New(hc)
	t.userAgent = f.Config.UserAgent
	t.err = err
	return t
}
