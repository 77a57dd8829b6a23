package resolver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultQueryTimeout = 5 * time.Second

func init() {
	Register("udp", classicResolverFactory)
	Register("tcp", classicResolverFactory)
	Register("dot", classicResolverFactory)
}

func classicResolverFactory(uri *url.URL, params *Params) (IDNSResolver, error) {
	timeout := time.Duration(params.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	switch uri.Scheme {
	case "udp", "tcp":
		return &classicResolver{
			addr:   withDefaultPort(uri, "53"),
			client: &dns.Client{Net: uri.Scheme, Timeout: timeout},
		}, nil
	case "dot":
		return &classicResolver{
			addr: withDefaultPort(uri, "853"),
			client: &dns.Client{
				Net:     "tcp-tls",
				Timeout: timeout,
				TLSConfig: &tls.Config{
					ServerName: uri.Hostname(),
					MinVersion: tls.VersionTLS12,
				},
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported dns type:%s", uri.Scheme)
}

// classicResolver speaks plain dns over udp, tcp or tls.
type classicResolver struct {
	addr   string
	client *dns.Client
}

func (r *classicResolver) String() string {
	return fmt.Sprintf("%s/%s", r.client.Net, r.addr)
}

func (r *classicResolver) Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("resolver", r.String()))
	resp, rtt, err := r.client.ExchangeContext(ctx, req, r.addr)
	if err != nil {
		logger.Error("classic resolver query failed", zap.Error(err))
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("no response from %s", r.addr)
	}
	logger.Debug("classic resolver query succ", zap.Duration("rtt", rtt),
		zap.Int("answer_count", len(resp.Answer)))
	return resp, nil
}

func withDefaultPort(uri *url.URL, port string) string {
	if uri.Port() != "" {
		return uri.Host
	}
	return net.JoinHostPort(uri.Hostname(), port)
}
