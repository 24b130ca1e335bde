package polygon

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

// newHTTPClient returns a client that keeps up to conns connections open to
// the aggregates host, one per API key in flight.
func newHTTPClient(conns int) *http.Client {
	if conns < 1 {
		conns = 1
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			MaxConnsPerHost:       conns,
			MaxIdleConnsPerHost:   conns,
			IdleConnTimeout:       90 * time.Second,
		},
		Timeout: time.Minute,
	}
}

// redactKey removes the apiKey query parameter from URLs carried by
// transport errors so retries can be logged safely.
func redactKey(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		return &url.Error{Op: ue.Op, URL: "<redacted>", Err: ue.Err}
	}
	q := u.Query()
	if q.Has("apiKey") {
		q.Set("apiKey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
}
