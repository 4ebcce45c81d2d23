package wire

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
)

// Dialer opens the stream a single request is written to and its response
// read from. Implementations handle everything related to the actual
// connection, including proxies and resolvers.
type Dialer interface {
	Dial(ctx context.Context, r *Prepared) (io.ReadWriteCloser, error)
}

type DialerFunc func(ctx context.Context, r *Prepared) (io.ReadWriteCloser, error)

func (f DialerFunc) Dial(ctx context.Context, r *Prepared) (io.ReadWriteCloser, error) {
	return f(ctx, r)
}

var schemes = map[string]string{
	"http": "80", "https": "443",
}

// CoreDialer dials TCP, optionally through an http(s) CONNECT proxy, and
// wraps the connection in TLS for https.
type CoreDialer struct {
	Network     string            // one of "tcp4", "tcp6", default is "tcp"
	StaticHosts map[string]string // resembles /etc/hosts
	DNSServer   string            // host:port of a custom DNS server

	TLSConfig *tls.Config // the config to use

	// GetProxy returns the proxy for r, nil means a direct connection.
	GetProxy func(ctx context.Context, r *Prepared) (*url.URL, error)
}

func (d *CoreDialer) netDialer() *net.Dialer {
	if d.DNSServer == "" {
		return &net.Dialer{}
	}
	server := d.DNSServer
	return &net.Dialer{Resolver: &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var zero net.Dialer
			return zero.DialContext(ctx, network, server)
		},
	}}
}

func (d *CoreDialer) network() string {
	if d.Network == "" {
		return "tcp"
	}
	return d.Network
}

func hostPort(u *url.URL) (string, string) {
	addr, port := u.Host, schemes[u.Scheme]
	if add, prt, err := net.SplitHostPort(addr); err == nil {
		addr, port = add, prt
	}
	return addr, port
}

func (d *CoreDialer) Dial(ctx context.Context, r *Prepared) (io.ReadWriteCloser, error) {
	var conn net.Conn
	if d.GetProxy != nil {
		proxy, err := d.GetProxy(ctx, r)
		if err != nil {
			return nil, err
		}
		if proxy != nil {
			if conn, err = d.DialContextOverProxy(ctx, r.URL, proxy); err != nil {
				return nil, err
			}
		}
	}
	if conn == nil {
		addr, port := hostPort(r.URL)
		if static, ok := d.StaticHosts[addr]; ok {
			addr = static
		}
		var err error
		conn, err = d.netDialer().DialContext(ctx, d.network(), net.JoinHostPort(addr, port))
		if err != nil {
			return nil, err
		}
	}
	if r.URL.Scheme != "https" {
		return conn, nil
	}
	return d.handshake(ctx, conn, r.URL.Hostname())
}

func (d *CoreDialer) handshake(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error) {
	config := d.TLSConfig.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	if config.ServerName == "" {
		config.ServerName = serverName
	}
	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// DialContextOverProxy creates a tunnel to remote with an http CONNECT
// request. This part of logic may be reused when wrapping *[CoreDialer]
// into a new custom [Dialer].
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote, proxy *url.URL) (net.Conn, error) {
	if proxy.Scheme != "http" && proxy.Scheme != "https" {
		return nil, errors.New("unsupported proxy scheme: " + proxy.Scheme)
	}
	addr, port := hostPort(proxy)
	conn, err := d.netDialer().DialContext(ctx, d.network(), net.JoinHostPort(addr, port))
	if err != nil {
		return nil, err
	}
	if proxy.Scheme == "https" {
		if conn, err = d.handshake(ctx, conn, proxy.Hostname()); err != nil {
			return nil, err
		}
	}

	addr, port = hostPort(remote)
	target := net.JoinHostPort(addr, port)
	connReq := &Prepared{
		Request: &model.Request[*body.Body]{
			Method: http.MethodConnect,
			URL:    &url.URL{Opaque: target},
			Body:   body.Empty(),
		},
		Header:        http.Header{},
		HeaderHost:    target,
		ContentLength: 0,
	}
	if proxy.User != nil {
		auth := proxy.User.Username()
		if p, ok := proxy.User.Password(); ok {
			auth += ":" + p
		}
		connReq.Header.Set("Proxy-Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))
	}
	if err := writeRequest(ctx, conn, connReq); err != nil {
		conn.Close()
		return nil, err
	}
	br := bufio.NewReader(conn)
	resp, err := readResponse(br)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy server returned error. status:%d", resp.StatusCode)
	}
	if br.Buffered() > 0 {
		conn.Close()
		return nil, errors.New("proxy server sent data before the tunnel was used")
	}
	return conn, nil
}
