package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xxxsen/sieve/internal/matcher"
	"golang.org/x/net/idna"
)

const (
	kindSuffix  = "suffix"
	kindExclude = "exclude"
	kindPrefix  = "prefix"
	kindFull    = "full"
	kindKeyword = "keyword"
	kindRegexp  = "regexp"
)

type ruleSet struct {
	suffix  []string
	exclude []string
	prefix  []string
	full    []string
	keyword []string
	reg     []*regexp.Regexp
}

// parseRules splits "kind:value" rules. A rule without kind is a suffix rule.
func parseRules(drs []string) (*ruleSet, error) {
	rs := &ruleSet{}
	for _, dr := range drs {
		dr = strings.TrimSpace(dr)
		if len(dr) == 0 {
			return nil, fmt.Errorf("nil domain found")
		}
		kind, data, ok := strings.Cut(dr, ":")
		if !ok {
			kind, data = kindSuffix, dr
		}
		if data == "" {
			return nil, fmt.Errorf("empty value in domain rule:%s", dr)
		}
		if kind == kindRegexp {
			exp, err := regexp.Compile(data)
			if err != nil {
				return nil, fmt.Errorf("compile domain regexp %s: %w", data, err)
			}
			rs.reg = append(rs.reg, exp)
			continue
		}
		value := matcher.NormalizeDomain(data)
		if value == "" {
			return nil, fmt.Errorf("empty value in domain rule:%s", dr)
		}
		var err error
		switch kind {
		case kindSuffix, kindExclude, kindFull:
			// whole labels only, so internationalised names can be converted
			value, err = toASCII(strings.TrimPrefix(value, "."))
			if err != nil {
				return nil, fmt.Errorf("invalid domain rule:%s, err:%w", dr, err)
			}
		}
		switch kind {
		case kindSuffix:
			rs.suffix = append(rs.suffix, value)
		case kindExclude:
			rs.exclude = append(rs.exclude, value)
		case kindFull:
			rs.full = append(rs.full, value)
		case kindPrefix:
			rs.prefix = append(rs.prefix, value)
		case kindKeyword:
			rs.keyword = append(rs.keyword, value)
		default:
			return nil, fmt.Errorf("unknow domain rule kind:%s", kind)
		}
	}
	return rs, nil
}

// toASCII converts internationalised labels to punycode, the form names
// arrive in on the wire.
func toASCII(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("empty domain")
	}
	return idna.ToASCII(v)
}
