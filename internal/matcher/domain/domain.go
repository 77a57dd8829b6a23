package domain

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/sieve/internal/affix"
	"github.com/xxxsen/sieve/internal/matcher"
	"github.com/xxxsen/sieve/internal/source"
	"go.uber.org/zap"
)

const sourceLoadTimeout = 30 * time.Second

type domainMatcher struct {
	name string
	full map[string]struct{}
	// suffix holds suffix and exclude rules as ".value" so that a match
	// always starts on a label boundary.
	suffix   *affix.Matcher
	excluded map[string]struct{}
	prefix   *affix.Matcher
	kw       *keywordAutomaton
	reg      []*regexp.Regexp
}

func (d *domainMatcher) Name() string {
	return d.name
}

func (d *domainMatcher) Type() string {
	return "domain"
}

func (d *domainMatcher) Match(ctx context.Context, req *dns.Msg) (bool, error) {
	name, ok := matcher.QuestionDomain(req)
	if !ok {
		return false, nil
	}
	rule, ok := d.lookup(name)
	if ok {
		logutil.GetLogger(ctx).Debug("domain rule hit", zap.String("matcher", d.name),
			zap.String("domain", name), zap.String("rule", rule))
	}
	return ok, nil
}

// lookup returns the rule that matched name. A full rule wins, then the most
// specific suffix rule decides: when it is an exclude rule nothing else is
// consulted.
func (d *domainMatcher) lookup(name string) (string, bool) {
	if _, ok := d.full[name]; ok {
		return kindFull + ":" + name, true
	}
	if hit, ok := d.suffix.LongestMatch("." + name); ok {
		if _, excluded := d.excluded[hit]; excluded {
			return "", false
		}
		return kindSuffix + ":" + hit[1:], true
	}
	if hit, ok := d.prefix.ShortestMatch(name); ok {
		return kindPrefix + ":" + hit, true
	}
	if d.kw.match(name) {
		return kindKeyword, true
	}
	for _, reg := range d.reg {
		if reg.MatchString(name) {
			return kindRegexp + ":" + reg.String(), true
		}
	}
	return "", false
}

func newDomainMatcher(name string, drs []string) (matcher.IDNSMatcher, error) {
	rs, err := parseRules(drs)
	if err != nil {
		return nil, err
	}
	d := &domainMatcher{
		name:     name,
		full:     make(map[string]struct{}, len(rs.full)),
		excluded: make(map[string]struct{}, len(rs.exclude)),
		prefix:   affix.NewPrefixMatcher(rs.prefix),
		kw:       newKeywordAutomaton(rs.keyword),
		reg:      rs.reg,
	}
	for _, item := range rs.full {
		d.full[item] = struct{}{}
	}
	suffixes := make([]string, 0, len(rs.suffix)+len(rs.exclude))
	for _, item := range rs.suffix {
		suffixes = append(suffixes, "."+item)
	}
	for _, item := range rs.exclude {
		suffixes = append(suffixes, "."+item)
		d.excluded["."+item] = struct{}{}
	}
	d.suffix = affix.NewSuffixMatcher(suffixes)
	return d, nil
}

func createDomainMatcher(name string, args interface{}) (matcher.IDNSMatcher, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	domains := make([]string, 0, len(c.Domains))
	domains = append(domains, c.Domains...)

	ctx, cancel := context.WithTimeout(context.Background(), sourceLoadTimeout)
	defer cancel()
	links := make([]string, 0, len(c.Files)+len(c.Sources))
	links = append(links, c.Files...)
	links = append(links, c.Sources...)
	loaded, err := source.LoadAll(ctx, links)
	if err != nil {
		return nil, fmt.Errorf("domain matcher:%s load rules: %w", name, err)
	}
	domains = append(domains, loaded...)
	if len(domains) == 0 {
		return nil, fmt.Errorf("domain matcher:%s has no rules", name)
	}
	m, err := newDomainMatcher(name, domains)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("domain matcher built", zap.String("name", name),
		zap.Int("rule_count", len(domains)))
	return m, nil
}

func init() {
	matcher.Register("domain", createDomainMatcher)
}
