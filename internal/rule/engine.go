package rule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ErrNoRuleMatched is returned when every rule declined the request.
var ErrNoRuleMatched = errors.New("no rule matched, may be you need a default rule")

type IDNSRuleEngine interface {
	Execute(ctx context.Context, req *dns.Msg) (*dns.Msg, error)
}

// defaultEngine evaluates rules in order, the first matching rule answers.
type defaultEngine struct {
	rules []IDNSRule
}

func (d *defaultEngine) Execute(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	logger := logutil.GetLogger(ctx)
	start := time.Now()
	for idx, r := range d.rules {
		ok, err := r.Match(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("match rule failed, name:%s, err:%w", r.Name(), err)
		}
		if !ok {
			continue
		}
		logger := logger.With(zap.Int("rule_index", idx), zap.String("rule_remark", r.Name()))
		logger.Debug("rule matched")
		res, err := r.Perform(ctx, req)
		if err != nil {
			logger.Error("perform rule failed", zap.Error(err))
			return nil, fmt.Errorf("perform rule failed, name:%s, err:%w", r.Name(), err)
		}
		logger.Debug("perform rule succ", zap.Duration("cost", time.Since(start)))
		return res, nil
	}
	return nil, ErrNoRuleMatched
}

func NewEngine(rules ...IDNSRule) IDNSRuleEngine {
	return &defaultEngine{rules: rules}
}
