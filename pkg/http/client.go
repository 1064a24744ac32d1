package http

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"
)

// maxRedirects matches net/http's default limit
const maxRedirects = 10

// ErrCrossHostRedirect stops a redirect that would send credentials to another host
var ErrCrossHostRedirect = errors.New("refusing redirect to a different host")

// HTTPClientConfig holds transport settings for outbound API clients
type HTTPClientConfig struct {
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	MinTLSVersion uint16
}

// GatewayClientConfig sizes the pool for polling one gateway host with the given
// number of merchants syncing at once. Each sync holds at most one request in flight.
func GatewayClientConfig(concurrency int) *HTTPClientConfig {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HTTPClientConfig{
		MaxIdleConnsPerHost: concurrency,
		MaxConnsPerHost:     concurrency * 2,
		IdleConnTimeout:     90 * time.Second,

		DialTimeout:           5 * time.Second,
		KeepAlive:             60 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,

		MinTLSVersion: tls.VersionTLS12,
	}
}

// NewHTTPClient creates a pooled client. Redirects are followed only within the
// original host, so an Authorization header never leaves it.
func NewHTTPClient(cfg *HTTPClientConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        cfg.MaxIdleConnsPerHost,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,

		TLSClientConfig:   &tls.Config{MinVersion: cfg.MinTLSVersion},
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: sameHostRedirect,
	}
}

func sameHostRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}
	if req.URL.Host != via[0].URL.Host {
		return ErrCrossHostRedirect
	}
	return nil
}
