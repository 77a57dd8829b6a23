package resolver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	dohContentType    = "application/dns-message"
	maxDoHResponseLen = 64 * 1024
)

func init() {
	Register("https", dohResolverFactory)
}

func dohResolverFactory(uri *url.URL, params *Params) (IDNSResolver, error) {
	method := strings.ToUpper(params.Method)
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodGet, http.MethodPost:
	default:
		return nil, fmt.Errorf("unsupported doh method:%s", params.Method)
	}
	endpoint := &url.URL{Scheme: uri.Scheme, Host: uri.Host, Path: uri.Path}
	if endpoint.Path == "" {
		endpoint.Path = "/dns-query"
	}
	timeout := time.Duration(params.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxConnsPerHost:     10,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		DisableCompression:  true,
	}
	return &dohResolver{
		endpoint: endpoint.String(),
		method:   method,
		client:   &http.Client{Timeout: timeout, Transport: transport},
	}, nil
}

// dohResolver implements rfc8484 with either GET or POST requests.
type dohResolver struct {
	endpoint string
	method   string
	client   *http.Client
}

func (r *dohResolver) String() string {
	return "doh:" + r.endpoint
}

func (r *dohResolver) newRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	if r.method == http.MethodGet {
		link := r.endpoint + "?dns=" + base64.RawURLEncoding.EncodeToString(payload)
		return http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", dohContentType)
	return httpReq, nil
}

func (r *dohResolver) Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	// rfc8484 asks for id 0 so responses stay cacheable
	query := req.Copy()
	query.Id = 0
	payload, err := query.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack dns request: %w", err)
	}
	httpReq, err := r.newRequest(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create doh request: %w", err)
	}
	httpReq.Header.Set("Accept", dohContentType)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("doh request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("doh %s returned %d: %s", r.endpoint, resp.StatusCode, string(body))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDoHResponseLen))
	if err != nil {
		return nil, fmt.Errorf("read doh response: %w", err)
	}
	msg := &dns.Msg{}
	if err := msg.Unpack(body); err != nil {
		return nil, fmt.Errorf("decode doh response: %w", err)
	}
	msg.Id = req.Id
	return msg, nil
}
