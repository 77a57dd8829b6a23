package matcher

import (
	"context"

	"github.com/miekg/dns"
)

// constMatcher answers every request with the same result. "any" is the
// implicit matcher of rules without a match expression.
type constMatcher struct {
	name   string
	typ    string
	result bool
}

func (c *constMatcher) Name() string {
	return c.name
}

func (c *constMatcher) Type() string {
	return c.typ
}

func (c *constMatcher) Match(context.Context, *dns.Msg) (bool, error) {
	return c.result, nil
}

func constFactory(typ string, result bool) Factory {
	return func(name string, _ interface{}) (IDNSMatcher, error) {
		if name == "" {
			name = typ
		}
		return &constMatcher{name: name, typ: typ, result: result}, nil
	}
}

func init() {
	Register("any", constFactory("any", true))
	Register("none", constFactory("none", false))
}
