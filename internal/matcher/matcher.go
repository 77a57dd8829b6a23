package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

type IDNSMatcher interface {
	Name() string
	Type() string
	Match(ctx context.Context, req *dns.Msg) (bool, error)
}

type Factory func(name string, args interface{}) (IDNSMatcher, error)

var m = make(map[string]Factory)

func Register(typ string, fac Factory) {
	m[typ] = fac
}

func MakeMatcher(typ string, name string, args interface{}) (IDNSMatcher, error) {
	cr, ok := m[typ]
	if !ok {
		return nil, fmt.Errorf("matcher type:%s not found", typ)
	}
	return cr(name, args)
}

// NormalizeDomain trims spaces and the root dot and lower-cases the name.
// Domain tries compare raw bytes, so both rules and queries go through here.
func NormalizeDomain(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".")
	return strings.ToLower(name)
}

// QuestionDomain returns the normalised name of the first question in req.
func QuestionDomain(req *dns.Msg) (string, bool) {
	if req == nil || len(req.Question) == 0 {
		return "", false
	}
	name := NormalizeDomain(req.Question[0].Name)
	if name == "" {
		return "", false
	}
	return name, true
}
