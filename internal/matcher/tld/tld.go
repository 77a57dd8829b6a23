// Package tld classifies query names by their effective top level domain.
package tld

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/sieve/internal/affix"
	"github.com/xxxsen/sieve/internal/matcher"
	"github.com/xxxsen/sieve/internal/source"
	"go.uber.org/zap"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

type tldMatcher struct {
	name      string
	suffixes  *affix.Matcher
	icannOnly bool
}

func (m *tldMatcher) Name() string {
	return m.name
}

func (m *tldMatcher) Type() string {
	return "tld"
}

func (m *tldMatcher) Match(ctx context.Context, req *dns.Msg) (bool, error) {
	name, ok := matcher.QuestionDomain(req)
	if !ok {
		return false, nil
	}
	etld, ok := m.classify(name)
	if !ok {
		return false, nil
	}
	logutil.GetLogger(ctx).Debug("tld rule hit", zap.String("matcher", m.name),
		zap.String("domain", name), zap.String("etld", etld))
	return true, nil
}

// classify returns the effective TLD of name when one of the configured
// suffixes covers it on a label boundary.
func (m *tldMatcher) classify(name string) (string, bool) {
	etld, icann := publicsuffix.PublicSuffix(name)
	if m.icannOnly && !icann {
		// private registries (e.g. github.io) fall back to their ICANN parent
		idx := strings.IndexByte(etld, '.')
		if idx < 0 {
			return "", false
		}
		etld = etld[idx+1:]
	}
	if !m.suffixes.Matches("." + etld) {
		return "", false
	}
	return etld, true
}

func newTLDMatcher(name string, suffixes []string, icannOnly bool) (matcher.IDNSMatcher, error) {
	patterns := make([]string, 0, len(suffixes))
	for _, item := range suffixes {
		v := strings.TrimPrefix(matcher.NormalizeDomain(item), ".")
		if v == "" {
			return nil, fmt.Errorf("tld matcher:%s has empty suffix", name)
		}
		ascii, err := idna.ToASCII(v)
		if err != nil {
			return nil, fmt.Errorf("tld matcher:%s invalid suffix:%s, err:%w", name, item, err)
		}
		patterns = append(patterns, "."+ascii)
	}
	return &tldMatcher{
		name:      name,
		suffixes:  affix.NewSuffixMatcher(patterns),
		icannOnly: icannOnly,
	}, nil
}

func createTLDMatcher(name string, args interface{}) (matcher.IDNSMatcher, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	suffixes := append([]string(nil), c.Suffixes...)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	loaded, err := source.LoadAll(ctx, c.Sources)
	if err != nil {
		return nil, fmt.Errorf("tld matcher:%s load suffixes: %w", name, err)
	}
	suffixes = append(suffixes, loaded...)
	if len(suffixes) == 0 {
		return nil, fmt.Errorf("tld matcher:%s requires suffixes", name)
	}
	return newTLDMatcher(name, suffixes, c.ICANNOnly)
}

func init() {
	matcher.Register("tld", createTLDMatcher)
}
