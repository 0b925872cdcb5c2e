package backend

import (
	"net/http"
	"time"

	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client. Its cookie jar is
// kept if set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCSRF names the cookie the token is read from and the header it is
// sent in.
func WithCSRF(cookie, header string) Option {
	return func(c *Client) {
		if cookie != "" {
			c.csrfCookie = cookie
		}
		if header != "" {
			c.csrfHeader = header
		}
	}
}

// WithBreaker sets the consecutive failure count that opens the breaker and
// how long it stays open.
func WithBreaker(maxFailures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		if maxFailures > 0 {
			c.maxFailures = maxFailures
		}
		if openFor > 0 {
			c.openFor = openFor
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
