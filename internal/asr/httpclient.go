package asr

import (
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds a single vendor HTTP round-trip (submit or poll).
// The overall poll-loop budget lives in WaitConfig, not here.
const DefaultHTTPTimeout = 30 * time.Second

// NewHTTPClient builds the shared connection pool injected into vendor
// clients. One pool serves a whole batch run so connections to the vendor
// endpoints are reused across records; callers own its lifecycle and must
// call CloseIdleConnections when the run ends.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
