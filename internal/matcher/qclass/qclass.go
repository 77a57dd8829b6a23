package qclass

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/sieve/internal/matcher"
)

type qclassMatcher struct {
	name    string
	classes map[uint16]struct{}
}

func (q *qclassMatcher) Name() string {
	return q.name
}

func (q *qclassMatcher) Type() string {
	return "qclass"
}

func (q *qclassMatcher) Match(ctx context.Context, req *dns.Msg) (bool, error) {
	for _, item := range req.Question {
		if _, ok := q.classes[item.Qclass]; ok {
			return true, nil
		}
	}
	return false, nil
}

func newQClassMatcher(name string, classes []uint16) matcher.IDNSMatcher {
	m := make(map[uint16]struct{}, len(classes))
	for _, c := range classes {
		m[c] = struct{}{}
	}
	return &qclassMatcher{name: name, classes: m}
}

func parseQClass(v string) (uint16, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "CHAOS" {
		return dns.ClassCHAOS, nil
	}
	if c, ok := dns.StringToClass[v]; ok {
		return c, nil
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown qclass:%s", v)
	}
	return uint16(n), nil
}

func createQClassMatcher(name string, args interface{}) (matcher.IDNSMatcher, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	if len(c.Classes) == 0 {
		return nil, fmt.Errorf("qclass matcher:%s requires classes", name)
	}
	classes := make([]uint16, 0, len(c.Classes))
	for _, item := range c.Classes {
		cls, err := parseQClass(item)
		if err != nil {
			return nil, err
		}
		classes = append(classes, cls)
	}
	return newQClassMatcher(name, classes), nil
}

func init() {
	matcher.Register("qclass", createQClassMatcher)
}
