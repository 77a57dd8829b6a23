// Package affix answers whether any of a fixed set of patterns is a prefix or
// a suffix of a query string, and which matching pattern is the shortest or
// the longest.
//
// A Matcher is built once and never mutated afterwards, so it can be shared
// between goroutines without locking. Patterns and queries are compared byte
// by byte; callers fold case or normalise encodings before building and
// querying. Empty patterns never match anything.
package affix

import (
	"iter"
	"slices"

	"github.com/xxxsen/sieve/internal/trie"
)

// Option configures matcher construction.
type Option = trie.Option

// WithDenseNodes trades memory for lookup speed, see trie.WithDenseNodes.
func WithDenseNodes() Option {
	return trie.WithDenseNodes()
}

// Matcher matches query strings against a pattern set anchored at one end.
type Matcher struct {
	t *trie.Trie
}

// New builds a matcher anchored by dir from an ordered pattern list.
func New(dir trie.Direction, patterns []string, opts ...Option) *Matcher {
	return Collect(dir, slices.Values(patterns), opts...)
}

// Collect builds a matcher from any pattern sequence, e.g. maps.Keys of a set.
func Collect(dir trie.Direction, patterns iter.Seq[string], opts ...Option) *Matcher {
	t := trie.New(dir, opts...)
	for p := range patterns {
		t.Insert(p)
	}
	return &Matcher{t: t}
}

// NewPrefixMatcher matches queries that start with one of patterns.
func NewPrefixMatcher(patterns []string, opts ...Option) *Matcher {
	return New(trie.Forward, patterns, opts...)
}

// NewSuffixMatcher matches queries that end with one of patterns.
func NewSuffixMatcher(patterns []string, opts ...Option) *Matcher {
	return New(trie.Backward, patterns, opts...)
}

// Matches reports whether some pattern is an affix of s.
func (m *Matcher) Matches(s string) bool {
	found := false
	m.t.Walk(s, func(int) bool {
		found = true
		return false
	})
	return found
}

// ShortestMatch returns the shortest pattern that is an affix of s.
func (m *Matcher) ShortestMatch(s string) (string, bool) {
	n := 0
	m.t.Walk(s, func(l int) bool {
		n = l
		return false
	})
	if n == 0 {
		return "", false
	}
	return m.t.Direction().Affix(s, n), true
}

// LongestMatch returns the longest pattern that is an affix of s.
func (m *Matcher) LongestMatch(s string) (string, bool) {
	n := 0
	m.t.Walk(s, func(l int) bool {
		n = l
		return true
	})
	if n == 0 {
		return "", false
	}
	return m.t.Direction().Affix(s, n), true
}

// Direction reports which end of the query the matcher is anchored at.
func (m *Matcher) Direction() trie.Direction {
	return m.t.Direction()
}

// Len returns the number of distinct non-empty patterns.
func (m *Matcher) Len() int {
	return m.t.Len()
}

// Nodes returns the number of trie nodes backing the matcher.
func (m *Matcher) Nodes() int {
	return m.t.Nodes()
}
