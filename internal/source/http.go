package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxHTTPBodySize    = 64 << 20
)

func init() {
	Register("http", httpSourceFactory)
	Register("https", httpSourceFactory)
}

func httpSourceFactory(uri *url.URL, params *Params) (IPatternSource, error) {
	timeout := time.Duration(params.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &httpSource{
		endpoint: uri.String(),
		client:   &http.Client{Timeout: timeout, Transport: transport},
	}, nil
}

type httpSource struct {
	endpoint string
	client   *http.Client
}

func (h *httpSource) String() string {
	return h.endpoint
}

func (h *httpSource) Load(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create pattern request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pattern request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("pattern source %s returned %d: %s", h.endpoint, resp.StatusCode, string(body))
	}
	return ReadLines(io.LimitReader(resp.Body, maxHTTPBodySize))
}
