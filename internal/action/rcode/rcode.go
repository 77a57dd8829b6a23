package rcode

import (
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/sieve/internal/action"
	"go.uber.org/zap"
)

const (
	maxRcode = 0x0FFF
	soaMName = "ns.sieve."
	soaRName = "hostmaster.sieve."
)

// rcodeAction answers with a fixed rcode and no records.
type rcodeAction struct {
	name   string
	rcode  int
	soaTTL uint32
}

func (a *rcodeAction) Name() string {
	return a.name
}

func (a *rcodeAction) Type() string {
	return "rcode"
}

func (a *rcodeAction) Perform(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	resp := new(dns.Msg)
	resp.SetRcode(req, a.rcode)
	resp.Authoritative = true
	if a.soaTTL > 0 && len(req.Question) > 0 {
		resp.Ns = append(resp.Ns, a.soa(req.Question[0]))
	}
	logutil.GetLogger(ctx).Debug("rcode action reply", zap.String("action", a.name),
		zap.String("rcode", dns.RcodeToString[a.rcode]))
	return resp, nil
}

func (a *rcodeAction) soa(q dns.Question) dns.RR {
	return &dns.SOA{
		Hdr: dns.RR_Header{
			Name:   dns.Fqdn(q.Name),
			Rrtype: dns.TypeSOA,
			Class:  dns.ClassINET,
			Ttl:    a.soaTTL,
		},
		Ns:      soaMName,
		Mbox:    soaRName,
		Serial:  1,
		Refresh: 3600,
		Retry:   600,
		Expire:  86400,
		Minttl:  a.soaTTL,
	}
}

func parseRcode(c *config) (int, error) {
	if c.Name == "" {
		if c.Code < 0 || c.Code > maxRcode {
			return 0, fmt.Errorf("invalid rcode:%d", c.Code)
		}
		return c.Code, nil
	}
	code, ok := dns.StringToRcode[strings.ToUpper(strings.TrimSpace(c.Name))]
	if !ok {
		return 0, fmt.Errorf("unknown rcode name:%s", c.Name)
	}
	return code, nil
}

func createRcodeAction(name string, args interface{}) (action.IDNSAction, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	code, err := parseRcode(c)
	if err != nil {
		return nil, fmt.Errorf("rcode action:%s %w", name, err)
	}
	return &rcodeAction{name: name, rcode: code, soaTTL: c.SOATTL}, nil
}

func init() {
	action.Register("rcode", createRcodeAction)
}
