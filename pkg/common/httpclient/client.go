package httpclient

import (
	"net"
	"net/http"
	"time"
)

// New creates an HTTP client tuned for long-running outbound API calls.
// The Laudus balance-sheet endpoints can take several minutes to answer,
// so the overall timeout is the caller's; dial and TLS setup stay bounded.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
