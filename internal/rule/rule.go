package rule

import (
	"context"

	"github.com/miekg/dns"
	"github.com/xxxsen/sieve/internal/action"
	"github.com/xxxsen/sieve/internal/matcher"
)

// IDNSRule pairs a match expression with the action performed on a hit.
type IDNSRule interface {
	Name() string
	Match(ctx context.Context, req *dns.Msg) (bool, error)
	Perform(ctx context.Context, req *dns.Msg) (*dns.Msg, error)
}

type defaultRule struct {
	name string
	mat  matcher.IDNSMatcher
	act  action.IDNSAction
}

func (d *defaultRule) Name() string {
	return d.name
}

func (d *defaultRule) Match(ctx context.Context, req *dns.Msg) (bool, error) {
	return d.mat.Match(ctx, req)
}

func (d *defaultRule) Perform(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	return d.act.Perform(ctx, req)
}

// String reads as "remark: match -> action".
func (d *defaultRule) String() string {
	return d.name + ": " + d.mat.Name() + " -> " + d.act.Name()
}

func NewRule(name string, mat matcher.IDNSMatcher, act action.IDNSAction) IDNSRule {
	return &defaultRule{name: name, mat: mat, act: act}
}
