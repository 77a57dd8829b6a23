package qclass

import (
	"context"
	"testing"

	"github.com/miekg/dns"
)

func TestQClassMatcher(t *testing.T) {
	m := newQClassMatcher("test", []uint16{dns.ClassINET})

	req := new(dns.Msg)
	req.SetQuestion("example.com.", dns.TypeA)
	req.Question[0].Qclass = dns.ClassINET
	match, err := m.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if !match {
		t.Fatalf("expected match for ClassINET")
	}

	req.Question[0].Qclass = dns.ClassCHAOS
	match, err = m.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if match {
		t.Fatalf("expected no match for ClassCHAOS")
	}
}

func TestQClassMatcherFromConfig(t *testing.T) {
	m, err := createQClassMatcher("chaos", map[string]interface{}{
		"classes": []string{"ch", "255"},
	})
	if err != nil {
		t.Fatalf("createQClassMatcher error: %v", err)
	}
	if m.Name() != "chaos" || m.Type() != "qclass" {
		t.Fatalf("unexpected matcher %s/%s", m.Name(), m.Type())
	}

	req := new(dns.Msg)
	req.SetQuestion("version.bind.", dns.TypeTXT)
	req.Question[0].Qclass = dns.ClassCHAOS
	if match, _ := m.Match(context.Background(), req); !match {
		t.Fatalf("expected match for version.bind CH")
	}
	req.Question[0].Qclass = dns.ClassANY
	if match, _ := m.Match(context.Background(), req); !match {
		t.Fatalf("expected match for numeric ANY")
	}
	req.Question[0].Qclass = dns.ClassINET
	if match, _ := m.Match(context.Background(), req); match {
		t.Fatalf("expected no match for IN")
	}

	alias, err := createQClassMatcher("alias", map[string]interface{}{"classes": []string{"CHAOS"}})
	if err != nil {
		t.Fatalf("createQClassMatcher error: %v", err)
	}
	req.Question[0].Qclass = dns.ClassCHAOS
	if match, _ := alias.Match(context.Background(), req); !match {
		t.Fatalf("expected CHAOS alias to match")
	}
}

func TestQClassMatcherInvalid(t *testing.T) {
	if _, err := createQClassMatcher("bad", map[string]interface{}{"classes": []string{"NOPE"}}); err == nil {
		t.Fatalf("expected error for unknown class")
	}
	if _, err := createQClassMatcher("empty", map[string]interface{}{}); err == nil {
		t.Fatalf("expected error without classes")
	}
}
