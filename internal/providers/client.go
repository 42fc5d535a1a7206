package providers

import (
	"net/http"
	"time"
)

const userAgent = "wpgtransit-tracker/1.0"

// newProviderHTTPClient builds the shared HTTP client for provider calls,
// configured with explicit timeouts and transport limits to avoid the
// pitfalls of http.DefaultClient (no timeout, shared global state). The
// transport is cloned from http.DefaultTransport to preserve its defaults
// (ProxyFromEnvironment, DialContext, HTTP/2, keepalives).
func newProviderHTTPClient() *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}
