package greenhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segfetch/internal/download/types"
)

func TestClient_SetsUserAgentAndRange(t *testing.T) {
	var gotUA, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	c := NewClient(Options{UserAgent: "test-agent/2"})
	defer c.Close()

	resp, err := c.GetRange(context.Background(), srv.URL, 10, 19)
	require.NoError(t, err)
	DrainAndClose(resp.Body)

	assert.Equal(t, "test-agent/2", gotUA)
	assert.Equal(t, "bytes=10-19", gotRange)
}

func TestClient_RedirectKeepsHeadersExceptRange(t *testing.T) {
	var gotAuth, gotRange string
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRange = r.Header.Get("Range")
	}))
	defer final.Close()

	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer redirect.Close()

	c := Default()
	defer c.Close()

	req, err := c.NewRequest(context.Background(), http.MethodGet, redirect.URL, map[string]string{
		"Authorization": "Bearer abc",
	})
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	DrainAndClose(resp.Body)

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Empty(t, gotRange)
}

func TestClient_StopsAfterMaxRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	}))
	defer srv.Close()

	c := Default()
	defer c.Close()

	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 10 redirects")
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusOK, nil},
		{http.StatusPartialContent, nil},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusTeapot, ErrBadStatus},
	}
	for _, tt := range tests {
		err := CheckStatus(&http.Response{StatusCode: tt.code, Status: http.StatusText(tt.code)})
		if tt.want == nil {
			assert.NoError(t, err, tt.code)
			continue
		}
		assert.ErrorIs(t, err, tt.want, tt.code)
	}
}

func TestNewClient_ProtocolSelection(t *testing.T) {
	h3 := NewClient(Options{Protocol: types.ProtocolHTTP3})
	assert.Equal(t, types.ProtocolHTTP3, h3.Protocol())
	assert.NotNil(t, h3.http3Transport)
	h3.Close()
	h3.Close()

	proxied := NewClient(Options{Protocol: types.ProtocolHTTP3, ProxyURL: "http://127.0.0.1:3128"})
	defer proxied.Close()
	assert.Equal(t, types.ProtocolHTTP1, proxied.Protocol())
	assert.Nil(t, proxied.http3Transport)
}

func TestOptionsFromRuntime(t *testing.T) {
	opts := OptionsFromRuntime(nil)
	assert.Equal(t, types.PerHostMax, opts.MaxConnectionsPerHost)
	assert.Equal(t, types.ProtocolAuto, opts.Protocol)

	opts = OptionsFromRuntime(&types.RuntimeConfig{ProxyURL: "http://proxy:8080", MaxConnectionsPerHost: 4})
	assert.Equal(t, "http://proxy:8080", opts.ProxyURL)
	assert.Equal(t, 4, opts.MaxConnectionsPerHost)
}
