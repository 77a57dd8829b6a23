package host

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/sieve/internal/action"
	"github.com/xxxsen/sieve/internal/affix"
	"github.com/xxxsen/sieve/internal/matcher"
	"github.com/xxxsen/sieve/internal/source"
	"go.uber.org/zap"
)

const (
	defaultHostRecordTTL = 5
	wildcardPrefix       = "*."
)

type hostRecord struct {
	ipv4 []net.IP
	ipv6 []net.IP
}

type hostAction struct {
	name    string
	records map[string]*hostRecord
	// wildcard records keyed by ".example.com"
	wildcards map[string]*hostRecord
	wildcard  *affix.Matcher
}

func (h *hostAction) Name() string {
	return h.name
}

func (h *hostAction) Type() string {
	return "host"
}

// lookup prefers an exact record, then the most specific wildcard.
func (h *hostAction) lookup(domain string) (*hostRecord, string, bool) {
	if record, ok := h.records[domain]; ok {
		return record, domain, true
	}
	suffix, ok := h.wildcard.LongestMatch(domain)
	if !ok {
		return nil, "", false
	}
	return h.wildcards[suffix], "*" + suffix, true
}

func (h *hostAction) Perform(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	if req == nil {
		return nil, fmt.Errorf("dns request is nil")
	}

	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Authoritative = true

	for _, question := range req.Question {
		domain := matcher.NormalizeDomain(question.Name)
		record, key, ok := h.lookup(domain)
		if !ok {
			continue
		}
		logutil.GetLogger(ctx).Debug("host record hit", zap.String("action", h.name),
			zap.String("domain", domain), zap.String("record", key))
		switch question.Qtype {
		case dns.TypeA:
			addIPv4Answers(resp, question, record.ipv4)
		case dns.TypeAAAA:
			addIPv6Answers(resp, question, record.ipv6)
		case dns.TypeANY:
			addIPv4Answers(resp, question, record.ipv4)
			addIPv6Answers(resp, question, record.ipv6)
		}
	}

	if len(resp.Answer) == 0 {
		return nil, fmt.Errorf("no host record matched request")
	}
	return resp, nil
}

func addIPv4Answers(resp *dns.Msg, question dns.Question, ips []net.IP) {
	for _, ip := range ips {
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{
				Name:   question.Name,
				Rrtype: dns.TypeA,
				Class:  question.Qclass,
				Ttl:    defaultHostRecordTTL,
			},
			A: ip,
		})
	}
}

func addIPv6Answers(resp *dns.Msg, question dns.Question, ips []net.IP) {
	for _, ip := range ips {
		resp.Answer = append(resp.Answer, &dns.AAAA{
			Hdr: dns.RR_Header{
				Name:   question.Name,
				Rrtype: dns.TypeAAAA,
				Class:  question.Qclass,
				Ttl:    defaultHostRecordTTL,
			},
			AAAA: ip,
		})
	}
}

func parseIPList(list string) (*hostRecord, error) {
	entry := &hostRecord{}
	for rawIP := range strings.SplitSeq(list, ",") {
		addr := strings.TrimSpace(rawIP)
		if addr == "" {
			return nil, fmt.Errorf("empty ip")
		}
		ip := net.ParseIP(addr)
		if ip == nil {
			return nil, fmt.Errorf("invalid ip:%s", addr)
		}
		if ip4 := ip.To4(); ip4 != nil {
			entry.ipv4 = append(entry.ipv4, ip4)
			continue
		}
		entry.ipv6 = append(entry.ipv6, ip.To16())
	}
	return entry, nil
}

func newHostAction(name string, rawRecords map[string]string) (action.IDNSAction, error) {
	if len(rawRecords) == 0 {
		return nil, fmt.Errorf("host action:%s has no valid records", name)
	}
	h := &hostAction{
		name:      name,
		records:   make(map[string]*hostRecord, len(rawRecords)),
		wildcards: make(map[string]*hostRecord),
	}
	for domain, ipList := range rawRecords {
		entry, err := parseIPList(ipList)
		if err != nil {
			return nil, fmt.Errorf("host action:%s domain:%s, err:%w", name, domain, err)
		}
		if strings.HasPrefix(domain, wildcardPrefix) {
			h.wildcards[domain[1:]] = entry
			continue
		}
		h.records[domain] = entry
	}
	suffixes := make([]string, 0, len(h.wildcards))
	for suffix := range h.wildcards {
		suffixes = append(suffixes, suffix)
	}
	h.wildcard = affix.NewSuffixMatcher(suffixes)
	return h, nil
}

func createHostAction(name string, args interface{}) (action.IDNSAction, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}

	rawRecords := make(map[string]string)
	for domainKey, ipList := range c.Records {
		domain := normalizeHostKey(domainKey)
		if domain == "" {
			return nil, fmt.Errorf("host action:%s has invalid domain:%q", name, domainKey)
		}
		rawRecords[domain] = appendIPList(rawRecords[domain], ipList)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	lines, err := source.LoadAll(ctx, c.Files)
	if err != nil {
		return nil, fmt.Errorf("host action:%s load files: %w", name, err)
	}
	fileRecords, err := parseHostLines(lines)
	if err != nil {
		return nil, fmt.Errorf("host action:%s: %w", name, err)
	}
	for domain, ipList := range fileRecords {
		rawRecords[domain] = appendIPList(rawRecords[domain], ipList)
	}
	return newHostAction(name, rawRecords)
}

func normalizeHostKey(key string) string {
	d := matcher.NormalizeDomain(key)
	if d == "*" || d == wildcardPrefix {
		return ""
	}
	return d
}

func init() {
	action.Register("host", createHostAction)
}

func appendIPList(existing, add string) string {
	add = strings.TrimSpace(add)
	if add == "" {
		return existing
	}
	if existing == "" {
		return add
	}
	return existing + "," + add
}

// parseHostLines reads "domain ip[,ip] [ip...]" lines.
func parseHostLines(lines []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("invalid host line:%q", line)
		}
		domain := normalizeHostKey(fields[0])
		if domain == "" {
			return nil, fmt.Errorf("invalid domain in host line:%q", line)
		}
		var ips []string
		for _, token := range fields[1:] {
			for part := range strings.SplitSeq(token, ",") {
				if part = strings.TrimSpace(part); part != "" {
					ips = append(ips, part)
				}
			}
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("no ip specified in host line:%q", line)
		}
		result[domain] = appendIPList(result[domain], strings.Join(ips, ","))
	}
	return result, nil
}
