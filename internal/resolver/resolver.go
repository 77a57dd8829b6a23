// Package resolver sends queries to upstream dns servers.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/schema"
	"github.com/miekg/dns"
)

// IDNSResolver represents a downstream resolver.
type IDNSResolver interface {
	String() string
	Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error)
}

// Params carries the query string options of an upstream link.
type Params struct {
	Timeout int64  `schema:"timeout"` // milliseconds
	Method  string `schema:"method"`  // doh only, get or post
}

type Factory func(uri *url.URL, params *Params) (IDNSResolver, error)

var m = make(map[string]Factory)

func Register(scheme string, fac Factory) {
	m[scheme] = fac
}

func MakeResolvers(links []string) ([]IDNSResolver, error) {
	rs := make([]IDNSResolver, 0, len(links))
	for _, item := range links {
		r, err := MakeResolver(item)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// MakeResolver builds a resolver from links like udp://1.1.1.1, dot://dns.google
// or https://dns.google/dns-query?timeout=2000.
func MakeResolver(link string) (IDNSResolver, error) {
	link = strings.TrimSpace(link)
	if !strings.Contains(link, "://") {
		link = "udp://" + link
	}
	uri, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("parse resolver link %s: %w", link, err)
	}
	if uri.Host == "" {
		return nil, fmt.Errorf("no host in resolver link:%s", link)
	}
	cr, ok := m[uri.Scheme]
	if !ok {
		return nil, fmt.Errorf("no resolver type found, type:%s", uri.Scheme)
	}
	params := &Params{}
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	if err := d.Decode(params, uri.Query()); err != nil {
		return nil, fmt.Errorf("decode resolver params %s: %w", link, err)
	}
	return cr(uri, params)
}
