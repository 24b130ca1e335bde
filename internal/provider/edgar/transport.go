package edgar

import (
	"net/http"
	"time"
)

// baseTransportConfig returns the HTTP transport used for archive requests.
// Keep-alives are off because the archive is asked to close every connection.
func baseTransportConfig() *http.Transport {
	return &http.Transport{
		ResponseHeaderTimeout: 60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   0,
	}
}

// newHTTPClient creates an HTTP client configured for archive requests.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: baseTransportConfig(),
		Timeout:   2 * time.Minute,
	}
}

// browserHeaders is the header set sent with every archive request.
func browserHeaders(userAgent string) http.Header {
	h := make(http.Header)
	h.Set("Connection", "close")
	h.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	h.Set("X-Requested-With", "XMLHttpRequest")
	h.Set("User-Agent", userAgent)
	return h
}
