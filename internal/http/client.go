// Package http builds the tuned HTTP clients the API and auth layers share.
package http

import (
	"fmt"
	nethttp "net/http"
	"time"

	"golang.org/x/net/http2"
)

// RequestTimeout bounds a single API request on the wire. Cancellation
// never aborts an in-flight request; it completes or times out here.
const RequestTimeout = 10 * time.Second

// NewClient creates an HTTP client for API traffic: per-request timeout,
// a modest pooled transport sized for one client hammering one host, and
// HTTP/2 enabled.
func NewClient(timeout time.Duration) (*nethttp.Client, error) {
	transport := &nethttp.Transport{
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to configure HTTP/2 transport: %w", err)
	}

	return &nethttp.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
