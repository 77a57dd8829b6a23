package forward

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/miekg/dns"
	"github.com/xxxsen/sieve/internal/resolver"
)

// upstreamStub answers with a fixed A record or fails, and counts the
// queries it saw per host.
type upstreamStub struct {
	host string
	err  error
	hits *hitCounter
}

type hitCounter struct {
	mu sync.Mutex
	m  map[string]int
}

func newHitCounter() *hitCounter {
	return &hitCounter{m: make(map[string]int)}
}

func (h *hitCounter) add(host string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[host]++
}

func (h *hitCounter) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, v := range h.m {
		n += v
	}
	return n
}

func (h *hitCounter) get(host string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.m[host]
}

func (s *upstreamStub) String() string { return "stub://" + s.host }

func (s *upstreamStub) Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	s.hits.add(s.host)
	if s.err != nil {
		return nil, s.err
	}
	msg := new(dns.Msg)
	msg.SetReply(req)
	msg.Answer = append(msg.Answer, &dns.A{
		Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
		A:   net.ParseIP(s.host),
	})
	return msg, nil
}

func registerStub(scheme string, err error) *hitCounter {
	hits := newHitCounter()
	resolver.Register(scheme, func(uri *url.URL, params *resolver.Params) (resolver.IDNSResolver, error) {
		return &upstreamStub{host: uri.Hostname(), err: err, hits: hits}, nil
	})
	return hits
}

func newQuery() *dns.Msg {
	req := new(dns.Msg)
	req.SetQuestion("example.com.", dns.TypeA)
	return req
}

func TestForwardActionPerformSuccess(t *testing.T) {
	resolver.ConfigureCache(resolver.CacheOptions{})
	registerStub("fwdok", nil)

	act, err := createForwardAction("domestic", map[string]interface{}{
		"server_list": []string{"fwdok://10.0.0.1"},
	})
	if err != nil {
		t.Fatalf("createForwardAction error: %v", err)
	}
	if act.Name() != "domestic" || act.Type() != "forward" {
		t.Fatalf("unexpected action %s/%s", act.Name(), act.Type())
	}
	resp, err := act.Perform(context.Background(), newQuery())
	if err != nil {
		t.Fatalf("Perform error: %v", err)
	}
	if len(resp.Answer) != 1 || resp.Answer[0].(*dns.A).A.String() != "10.0.0.1" {
		t.Fatalf("unexpected answer %v", resp.Answer)
	}
}

func TestForwardActionParallelDefaultsToAllServers(t *testing.T) {
	resolver.ConfigureCache(resolver.CacheOptions{})
	hits := registerStub("fwdall", errors.New("refused"))

	act, err := createForwardAction("all", map[string]interface{}{
		"server_list": []string{"fwdall://10.0.0.1", "fwdall://10.0.0.2"},
	})
	if err != nil {
		t.Fatalf("createForwardAction error: %v", err)
	}
	if _, err := act.Perform(context.Background(), newQuery()); err == nil {
		t.Fatalf("expected perform error")
	}
	for _, host := range []string{"10.0.0.1", "10.0.0.2"} {
		if n := hits.get(host); n != 1 {
			t.Fatalf("server %s should be queried once, got %d", host, n)
		}
	}
}

func TestForwardActionExplicitParallel(t *testing.T) {
	resolver.ConfigureCache(resolver.CacheOptions{})
	hits := registerStub("fwdone", errors.New("refused"))

	act, err := createForwardAction("one", map[string]interface{}{
		"server_list": []string{"fwdone://10.0.0.1", "fwdone://10.0.0.2", "fwdone://10.0.0.3"},
		"parallel":    1,
	})
	if err != nil {
		t.Fatalf("createForwardAction error: %v", err)
	}
	_, _ = act.Perform(context.Background(), newQuery())
	if hits.total() != 1 {
		t.Fatalf("parallel=1 should query one server, got %d", hits.total())
	}
}

func TestForwardActionPerformErrorWrapsUpstreams(t *testing.T) {
	resolver.ConfigureCache(resolver.CacheOptions{})
	registerStub("fwdfail", errors.New("upstream failure"))

	act, err := createForwardAction("fail", map[string]interface{}{
		"server_list": []string{"fwdfail://10.0.0.1", "fwdfail://10.0.0.2"},
	})
	if err != nil {
		t.Fatalf("createForwardAction error: %v", err)
	}
	_, err = act.Perform(context.Background(), newQuery())
	if err == nil {
		t.Fatalf("expected perform error")
	}
	msg := err.Error()
	for _, want := range []string{
		"forward action:fail",
		"group[",
		"stub://10.0.0.1: upstream failure",
		"stub://10.0.0.2: upstream failure",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q should contain %q", msg, want)
		}
	}
}

func TestForwardActionRequiresServers(t *testing.T) {
	if _, err := createForwardAction("empty", map[string]interface{}{}); err == nil {
		t.Fatalf("expected error without server_list")
	}
	if _, err := createForwardAction("bad", map[string]interface{}{
		"server_list": []string{"nosuchscheme://1.1.1.1"},
	}); err == nil {
		t.Fatalf("expected error for unknown resolver scheme")
	}
}
