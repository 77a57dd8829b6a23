// Package geosite builds domain matchers from v2ray geosite.dat categories.
package geosite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/sieve/internal/matcher"
	"go.uber.org/zap"
)

type domainType int

// Domain.Type values; rootDomain covers the name and all of its subdomains.
const (
	domainPlain domainType = iota
	domainRegex
	domainRoot
	domainFull
)

type geoDomain struct {
	typ   domainType
	value string
	attrs map[string]struct{}
}

func (d geoDomain) hasAttr(attr string) bool {
	_, ok := d.attrs[attr]
	return ok
}

// rule converts d into a domain matcher rule. Excluded lists only contribute
// their root domains, as exclude rules.
func (d geoDomain) rule(exclude bool) (string, bool) {
	if exclude {
		return "exclude:" + d.value, d.typ == domainRoot
	}
	switch d.typ {
	case domainPlain:
		return "keyword:" + d.value, true
	case domainRegex:
		return "regexp:" + d.value, true
	case domainRoot:
		return "suffix:" + d.value, true
	case domainFull:
		return "full:" + d.value, true
	}
	return "", false
}

// category is one entry of the categories option: "[-]name[@[!]attr]".
type category struct {
	name       string
	attr       string
	attrNegate bool
	exclude    bool
}

func parseCategory(s string) category {
	s = strings.ToLower(strings.TrimSpace(s))
	c := category{}
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		c.exclude = true
		s = rest
	}
	name, attr, _ := strings.Cut(s, "@")
	c.name = strings.TrimSpace(name)
	attr = strings.TrimSpace(attr)
	if rest, ok := strings.CutPrefix(attr, "!"); ok {
		c.attrNegate = true
		attr = strings.TrimSpace(rest)
	}
	c.attr = attr
	return c
}

func (c category) accept(d geoDomain) bool {
	if c.attr == "" {
		return true
	}
	return d.hasAttr(c.attr) != c.attrNegate
}

// geosite files are large and commonly shared by several matchers.
var loaded sync.Map // clean path -> map[string][]geoDomain

func loadFile(path string) (map[string][]geoDomain, error) {
	path = filepath.Clean(path)
	if v, ok := loaded.Load(path); ok {
		return v.(map[string][]geoDomain), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geosite file %s: %w", path, err)
	}
	lists, err := parseGeoSiteList(data)
	if err != nil {
		return nil, fmt.Errorf("parse geosite file %s: %w", path, err)
	}
	v, _ := loaded.LoadOrStore(path, lists)
	return v.(map[string][]geoDomain), nil
}

func selectRules(lists map[string][]geoDomain, categories []string) ([]string, error) {
	var rules []string
	seen := make(map[string]struct{})
	for _, raw := range categories {
		c := parseCategory(raw)
		if c.name == "" {
			continue
		}
		domains, ok := lists[c.name]
		if !ok {
			return nil, fmt.Errorf("geosite list %s not found", c.name)
		}
		for _, d := range domains {
			if !c.accept(d) {
				continue
			}
			rule, ok := d.rule(c.exclude)
			if !ok {
				continue
			}
			if _, dup := seen[rule]; dup {
				continue
			}
			seen[rule] = struct{}{}
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

func createGeositeMatcher(name string, args interface{}) (matcher.IDNSMatcher, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	if c.File == "" || len(c.Categories) == 0 {
		return nil, fmt.Errorf("geosite matcher:%s requires file and categories", name)
	}
	lists, err := loadFile(c.File)
	if err != nil {
		return nil, err
	}
	rules, err := selectRules(lists, c.Categories)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("geosite matcher:%s selected no domains", name)
	}
	logutil.GetLogger(context.Background()).Info("geosite rules selected", zap.String("name", name),
		zap.Strings("categories", c.Categories), zap.Int("rule_count", len(rules)))
	return matcher.MakeMatcher("domain", name, map[string]interface{}{"domains": rules})
}

func init() {
	matcher.Register("geosite", createGeositeMatcher)
}
