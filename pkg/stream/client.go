package stream

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultConnectTimeout        = 10 * time.Second
	defaultResponseHeaderTimeout = 60 * time.Second
)

// NewClient returns an upstream client without a total timeout, since
// streams are long lived. Dialing and the wait for the response status are
// bounded instead; zero selects the defaults. The Driver's ReadTimeout
// covers a stalled body.
func NewClient(connectTimeout, responseHeaderTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	if responseHeaderTimeout <= 0 {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.ResponseHeaderTimeout = responseHeaderTimeout

	return &http.Client{Transport: transport}
}
