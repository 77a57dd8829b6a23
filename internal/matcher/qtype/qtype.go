package qtype

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/sieve/internal/matcher"
)

type qtypeMatcher struct {
	name string
	typs map[uint16]struct{}
}

func (q *qtypeMatcher) Name() string {
	return q.name
}

func (q *qtypeMatcher) Type() string {
	return "qtype"
}

func (q *qtypeMatcher) Match(ctx context.Context, req *dns.Msg) (bool, error) {
	for _, item := range req.Question {
		if _, ok := q.typs[item.Qtype]; ok {
			return true, nil
		}
	}
	return false, nil
}

func newQTypeMatcher(name string, typs []uint16) matcher.IDNSMatcher {
	t := make(map[uint16]struct{}, len(typs))
	for _, item := range typs {
		t[item] = struct{}{}
	}
	return &qtypeMatcher{name: name, typs: t}
}

func parseQType(v string) (uint16, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if typ, ok := dns.StringToType[v]; ok {
		return typ, nil
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown qtype:%s", v)
	}
	return uint16(n), nil
}

func createQTypeMatcher(name string, args interface{}) (matcher.IDNSMatcher, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	if len(c.Types) == 0 {
		return nil, fmt.Errorf("qtype matcher:%s requires types", name)
	}
	typs := make([]uint16, 0, len(c.Types))
	for _, item := range c.Types {
		typ, err := parseQType(item)
		if err != nil {
			return nil, err
		}
		typs = append(typs, typ)
	}
	return newQTypeMatcher(name, typs), nil
}

func init() {
	matcher.Register("qtype", createQTypeMatcher)
}
