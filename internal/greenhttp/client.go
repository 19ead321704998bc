// Package greenhttp builds the pooled HTTP client shared by every download on
// a Downloader. One Client is safe for concurrent use by many goroutines.
package greenhttp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"segfetch/internal/download/types"
	"segfetch/internal/logger"
)

var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
	ErrBadStatus    = errors.New("http: unexpected status")
)

// Options tunes the transport. Zero values fall back to the engine defaults.
type Options struct {
	MaxConnectionsPerHost int
	Protocol              string
	UserAgent             string
	ProxyURL              string
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration

	// Transport overrides the generated transport entirely (tests).
	Transport http.RoundTripper
}

// OptionsFromRuntime copies the network knobs out of a RuntimeConfig.
func OptionsFromRuntime(rt *types.RuntimeConfig) Options {
	opts := Options{
		MaxConnectionsPerHost: rt.GetMaxConnectionsPerHost(),
		Protocol:              rt.GetProtocolPreference(),
		UserAgent:             rt.GetUserAgent(),
		DialTimeout:           rt.GetDialTimeout(),
		ResponseHeaderTimeout: rt.GetResponseHeaderTimeout(),
	}
	if rt != nil {
		opts.ProxyURL = rt.ProxyURL
	}
	return opts
}

// Client wraps an http.Client with a user agent and status helpers.
type Client struct {
	client    *http.Client
	userAgent string
	protocol  string

	http3Transport *http3.Transport
	closeOnce      sync.Once
}

// NewClient creates a client from opts.
func NewClient(opts Options) *Client {
	rt := &types.RuntimeConfig{
		MaxConnectionsPerHost: opts.MaxConnectionsPerHost,
		ProtocolPreference:    opts.Protocol,
		UserAgent:             opts.UserAgent,
		DialTimeout:           opts.DialTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
	}

	c := &Client{
		userAgent: rt.GetUserAgent(),
		protocol:  rt.GetProtocolPreference(),
	}

	transport := opts.Transport
	if transport == nil {
		switch {
		case c.protocol == types.ProtocolHTTP3 && opts.ProxyURL != "":
			logger.Debug("HTTP/3 disabled because proxy is configured")
			c.protocol = types.ProtocolHTTP1
			transport = buildHTTPTransport(rt, opts.ProxyURL, false)
		case c.protocol == types.ProtocolHTTP3:
			c.http3Transport = buildHTTP3Transport()
			transport = c.http3Transport
		case c.protocol == types.ProtocolHTTP1:
			transport = buildHTTPTransport(rt, opts.ProxyURL, false)
		default:
			transport = buildHTTPTransport(rt, opts.ProxyURL, true)
		}
	}

	c.client = &http.Client{
		Transport:     transport,
		CheckRedirect: checkRedirect,
	}
	logger.Debug("http client ready", logger.Fields{"protocol": c.protocol})
	return c
}

// Default returns a client with engine defaults.
func Default() *Client {
	return NewClient(Options{})
}

// Preserve caller headers on redirects, except Range which each request sets itself.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= types.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", types.MaxRedirects)
	}
	if len(via) > 0 {
		for key, vals := range via[0].Header {
			if key == "Range" {
				continue
			}
			req.Header[key] = vals
		}
	}
	return nil
}

func buildHTTPTransport(rt *types.RuntimeConfig, proxyURL string, forceHTTP2 bool) *http.Transport {
	maxConns := rt.GetMaxConnectionsPerHost()

	proxyFunc := http.ProxyFromEnvironment
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			proxyFunc = http.ProxyURL(parsed)
		} else {
			logger.Debugf("invalid proxy URL %s: %v", proxyURL, err)
		}
	}

	transport := &http.Transport{
		MaxIdleConns:        types.DefaultMaxIdleConns,
		MaxIdleConnsPerHost: maxConns + 2,
		MaxConnsPerHost:     maxConns,
		Proxy:               proxyFunc,

		IdleConnTimeout:       types.DefaultIdleConnTimeout,
		TLSHandshakeTimeout:   types.DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: rt.GetResponseHeaderTimeout(),
		ExpectContinueTimeout: types.DefaultExpectContinueTimeout,

		// Byte counts must match Content-Length and the requested ranges.
		DisableCompression: true,
		ForceAttemptHTTP2:  forceHTTP2,

		DialContext: (&net.Dialer{
			Timeout:   rt.GetDialTimeout(),
			KeepAlive: types.KeepAliveDuration,
		}).DialContext,
	}
	if !forceHTTP2 {
		transport.TLSNextProto = make(map[string]func(authority string, c *tls.Conn) http.RoundTripper)
	}
	return transport
}

func buildHTTP3Transport() *http3.Transport {
	return &http3.Transport{
		TLSClientConfig: &tls.Config{
			NextProtos: []string{"h3"},
		},
		QUICConfig: &quic.Config{
			HandshakeIdleTimeout: types.DefaultTLSHandshakeTimeout,
			MaxIdleTimeout:       types.DefaultIdleConnTimeout,
			KeepAlivePeriod:      types.KeepAliveDuration,
		},
	}
}

// Protocol reports the transport family in use.
func (c *Client) Protocol() string { return c.protocol }

// NewRequest builds a request carrying the client's user agent and the given headers.
func (c *Client) NewRequest(ctx context.Context, method, rawurl string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawurl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, val := range headers {
		req.Header.Set(key, val)
	}
	return req, nil
}

// Do sends req through the pooled transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, rawurl string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodHead, rawurl, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Get issues a plain GET request.
func (c *Client) Get(ctx context.Context, rawurl string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetRange issues a GET with Range: bytes=start-end (end inclusive).
func (c *Client) GetRange(ctx context.Context, rawurl string, start, end int64) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, rawurl, map[string]string{
		"Range": fmt.Sprintf("bytes=%d-%d", start, end),
	})
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Close releases idle connections and the HTTP/3 transport. Safe to call twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.client.CloseIdleConnections()
		if c.http3Transport != nil {
			if err := c.http3Transport.Close(); err != nil {
				logger.Debugf("error closing HTTP/3 transport: %v", err)
			}
		}
	})
}

// CheckStatus maps non-2xx responses to sentinel errors.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Status)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, resp.Status)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrServerError, resp.Status)
	default:
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
}

// DrainAndClose discards what is left of body so the connection can be reused.
func DrainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	_ = body.Close()
}
