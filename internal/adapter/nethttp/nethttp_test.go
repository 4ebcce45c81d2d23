package nethttp_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/frankli0324/reggie/internal/adapter/nethttp"
	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/extract"
	"github.com/frankli0324/reggie/internal/model"
	"github.com/frankli0324/reggie/internal/transport"
)

var echoHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	w.Header().Set("X-Proto", r.Proto)
	w.Header().Set("X-Content-Length", r.Header.Get("Content-Length"))
	w.Header().Set("X-User-Agent", r.UserAgent())
	w.WriteHeader(http.StatusOK)
	w.Write(data)
})

func request[B any](t *testing.T, method, url string, b B) *model.Request[B] {
	t.Helper()
	req, err := model.NewRequest(method, url, b)
	require.NoError(t, err)
	return req
}

func TestSendEcho(t *testing.T) {
	srv := httptest.NewServer(echoHandler)
	defer srv.Close()

	tr := nethttp.New(srv.Client())
	resp, err := tr.Send(context.Background(), request(t, http.MethodPost, srv.URL, body.FromString("ping")))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "4", resp.Header.Get("X-Content-Length"))

	text, err := extract.ToText(context.Background(), resp.Body.IntoBody())
	require.NoError(t, err)
	assert.Equal(t, "ping", text)
}

func TestSendStreamingPayload(t *testing.T) {
	srv := httptest.NewServer(echoHandler)
	defer srv.Close()

	payload := body.FromReader(io.MultiReader(strings.NewReader("chunk-1,"), strings.NewReader("chunk-2")))
	resp, err := nethttp.New(srv.Client()).Send(context.Background(), request(t, http.MethodPut, srv.URL, payload))
	require.NoError(t, err)
	text, err := extract.ToText(context.Background(), resp.Body.IntoBody())
	require.NoError(t, err)
	assert.Equal(t, "chunk-1,chunk-2", text)
}

func TestSendPerPayloadType(t *testing.T) {
	srv := httptest.NewServer(echoHandler)
	defer srv.Close()

	resp, err := nethttp.NewFor[string](srv.Client()).Send(context.Background(), request(t, http.MethodPost, srv.URL, "text"))
	require.NoError(t, err)
	got, err := extract.ToBytes(context.Background(), resp.Body.IntoBody())
	require.NoError(t, err)
	assert.Equal(t, "text", string(got))

	resp, err = nethttp.NewFor[[]byte](srv.Client()).Send(context.Background(), request(t, http.MethodPost, srv.URL, []byte{}))
	require.NoError(t, err)
	got, err = extract.ToBytes(context.Background(), resp.Body.IntoBody())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTrailersBecomeMetadataFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Trailer", "X-Checksum")
		w.Write([]byte("data"))
		w.(http.Flusher).Flush()
		w.Header().Set("X-Checksum", "abc")
	}))
	defer srv.Close()

	resp, err := nethttp.New(srv.Client()).Send(context.Background(), request(t, http.MethodGet, srv.URL, body.Empty()))
	require.NoError(t, err)
	b := resp.Body.IntoBody()

	var data []byte
	var trailers http.Header
	for {
		f, err := b.ReadFrame(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if d, ok := f.Data(); ok {
			data = append(data, d...)
		} else {
			trailers, _ = f.Trailers()
		}
	}
	assert.Equal(t, "data", string(data))
	assert.Equal(t, "abc", trailers.Get("X-Checksum"))
	assert.True(t, b.IsEndStream())
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(echoHandler)
	url := srv.URL
	srv.Close()

	e := transport.Erase[*body.Body, nethttp.Body](nethttp.New(nil))
	_, err := e.Send(context.Background(), request(t, http.MethodGet, url, body.Empty()))
	require.Error(t, err)
	assert.True(t, model.IsConnection(err))
}

func TestInvalidRequest(t *testing.T) {
	req := request(t, http.MethodGet, "http://example.com", body.Empty())
	req.Header.Set("Bad Header", "x")
	_, err := nethttp.New(nil).Send(context.Background(), req)
	assert.True(t, model.IsConnection(err))
}

func TestFactoryH2C(t *testing.T) {
	srv := httptest.NewServer(h2c.NewHandler(echoHandler, &http2.Server{}))
	defer srv.Close()

	f := nethttp.Factory{Config: nethttp.Config{H2C: true, UserAgent: "reggie-test", Timeout: nethttp.Duration(5 * time.Second)}}
	resp, err := f.Create().Send(context.Background(), request(t, http.MethodPost, srv.URL, body.FromString("over h2")))
	require.NoError(t, err)
	assert.Equal(t, "HTTP/2.0", resp.Header.Get("X-Proto"))
	assert.Equal(t, "reggie-test", resp.Header.Get("X-User-Agent"))
	text, err := extract.ToText(context.Background(), resp.Body.IntoBody())
	require.NoError(t, err)
	assert.Equal(t, "over h2", text)
}

func TestFactoryCreatesIndependentTransports(t *testing.T) {
	f := nethttp.Factory{Config: nethttp.Config{MaxIdleConns: 3}}
	assert.NotSame(t, f.Create(), f.Create())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"timeout": "2.5s",
		"idle_conn_timeout": 1000000000,
		"max_idle_conns": 7,
		"h2c": true,
		"user_agent": "agent/1"
	}`), 0o600))

	c, err := nethttp.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, nethttp.Duration(2500*time.Millisecond), c.Timeout)
	assert.Equal(t, nethttp.Duration(time.Second), c.IdleConnTimeout)
	assert.Equal(t, 7, c.MaxIdleConns)
	assert.True(t, c.H2C)
	assert.Equal(t, "agent/1", c.UserAgent)

	require.NoError(t, os.WriteFile(path, []byte(`{"timeout": "soon"}`), 0o600))
	_, err = nethttp.LoadConfig(path)
	assert.Error(t, err)
}

func TestHTTPClientFromConfig(t *testing.T) {
	hc, err := nethttp.Config{MaxIdleConnsPerHost: 9, ForceHTTP2: true, Timeout: nethttp.Duration(time.Second)}.HTTPClient()
	require.NoError(t, err)
	assert.Equal(t, time.Second, hc.Timeout)
	tr, ok := hc.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 9, tr.MaxIdleConnsPerHost)
	assert.NotSame(t, http.DefaultTransport, tr)
}

func TestReadFrameHonoursCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.Write([]byte("ab"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	resp, err := nethttp.New(srv.Client()).Send(context.Background(), request(t, "GET", srv.URL, body.Empty()))
	require.NoError(t, err)
	b := resp.Body.IntoBody()

	f, err := b.ReadFrame(context.Background())
	require.NoError(t, err)
	d, _ := f.Data()
	assert.Equal(t, "ab", string(d))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := b.ReadFrame(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		assert.True(t, model.IsBody(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadFrame still blocked after its context ended")
	}
}

func TestReusableBodyFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(w, r.Body)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := nethttp.New(srv.Client()).Send(context.Background(), request(t, "POST", srv.URL+"/old", body.FromString("ping")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	text, err := extract.ToText(context.Background(), resp.Body.IntoBody())
	require.NoError(t, err)
	assert.Equal(t, "ping", text)
}
