// Package httpserver builds the connector's http.Server with its standard
// timeouts, keeping cmd/server free of transport tuning.
package httpserver

import (
	"net/http"
	"time"
)

// New wraps handler in a server bound to addr. The webhook endpoint receives
// provider callbacks from the open internet, so slow-header clients are cut
// off early.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
