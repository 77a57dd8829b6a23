package qtype

import (
	"context"
	"testing"

	"github.com/miekg/dns"
)

func TestQTypeMatcher(t *testing.T) {
	m, err := createQTypeMatcher("test", map[string]interface{}{
		"types": []string{"a", "28"},
	})
	if err != nil {
		t.Fatalf("createQTypeMatcher error: %v", err)
	}
	if m.Name() != "test" {
		t.Fatalf("unexpected name %s", m.Name())
	}

	req := new(dns.Msg)
	req.SetQuestion("example.com.", dns.TypeA)
	match, err := m.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if !match {
		t.Fatalf("expected match for TypeA")
	}

	req.Question[0].Qtype = dns.TypeAAAA
	if match, _ = m.Match(context.Background(), req); !match {
		t.Fatalf("expected match for numeric TypeAAAA")
	}

	req.Question[0].Qtype = dns.TypeMX
	match, err = m.Match(context.Background(), req)
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if match {
		t.Fatalf("expected no match for TypeMX")
	}
}

func TestQTypeMatcherInvalid(t *testing.T) {
	if _, err := createQTypeMatcher("bad", map[string]interface{}{"types": []string{"NOPE"}}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := createQTypeMatcher("empty", map[string]interface{}{}); err == nil {
		t.Fatalf("expected error without types")
	}
}
