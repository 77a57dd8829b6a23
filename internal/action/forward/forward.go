package forward

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/sieve/internal/action"
	"github.com/xxxsen/sieve/internal/resolver"
	"go.uber.org/zap"
)

type forwardAction struct {
	name string
	r    resolver.IDNSResolver
}

func (f *forwardAction) Name() string {
	return f.name
}

func (f *forwardAction) Type() string {
	return "forward"
}

func (f *forwardAction) Perform(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	start := time.Now()
	resp, err := f.r.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("forward action:%s query %s: %w", f.name, f.r.String(), err)
	}
	logutil.GetLogger(ctx).Debug("forward action query succ", zap.String("action", f.name),
		zap.Duration("cost", time.Since(start)), zap.Int("answer_count", len(resp.Answer)))
	return resp, nil
}

func createForwardAction(name string, args interface{}) (action.IDNSAction, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	if len(c.ServerList) == 0 {
		return nil, fmt.Errorf("forward action:%s requires server_list", name)
	}
	res, err := resolver.MakeResolvers(c.ServerList)
	if err != nil {
		return nil, err
	}
	parallel := c.Parallel
	if parallel <= 0 {
		parallel = len(res)
	}
	r := resolver.TryEnableResolverCache(resolver.NewGroupResolver(res, parallel))
	logutil.GetLogger(context.Background()).Info("forward action built", zap.String("name", name),
		zap.String("resolver", r.String()), zap.Int("parallel", parallel))
	return &forwardAction{name: name, r: r}, nil
}

func init() {
	action.Register("forward", createForwardAction)
}
