// Package action holds the answer producers a rule can route to.
package action

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
)

// IDNSAction builds the response for a request accepted by a rule.
type IDNSAction interface {
	Name() string
	Type() string
	Perform(ctx context.Context, req *dns.Msg) (*dns.Msg, error)
}

// Factory decodes args, usually a map from the yaml config, into an action.
type Factory func(name string, args interface{}) (IDNSAction, error)

var registry = make(map[string]Factory)

func Register(typ string, fac Factory) {
	registry[typ] = fac
}

func MakeAction(typ string, name string, args interface{}) (IDNSAction, error) {
	fac, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("action type:%s not found", typ)
	}
	return fac(name, args)
}
