package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatcher struct {
	name   string
	result bool
	err    error
	calls  *int
}

func (f fakeMatcher) Name() string {
	return f.name
}

func (f fakeMatcher) Type() string {
	return "fake"
}

func (f fakeMatcher) Match(ctx context.Context, req *dns.Msg) (bool, error) {
	if f.calls != nil {
		*f.calls++
	}
	return f.result, f.err
}

func fakeRegistry() map[string]IDNSMatcher {
	return map[string]IDNSMatcher{
		"yes":  fakeMatcher{name: "yes", result: true},
		"no":   fakeMatcher{name: "no", result: false},
		"also": fakeMatcher{name: "also", result: true},
	}
}

func TestBuildExpressionMatcher(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"yes", true},
		{"no", false},
		{"yes && !no", true},
		{"no || yes && also", true},
		{"(no || yes) && no", false},
		{"yes and not no", true},
		{"Upper || yes", true},
		{"!!yes", true},
		{"not(no)", true},
		{"no OR (yes AND NOT also)", false},
		{"yes&&also", true},
	}
	registry := fakeRegistry()
	registry["Upper"] = fakeMatcher{name: "upper", result: false}
	for _, tt := range tests {
		m, err := BuildExpressionMatcher(tt.expr, registry)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, "expression", m.Type())
		assert.Equal(t, tt.expr, m.Name())
		ok, err := m.Match(context.Background(), &dns.Msg{})
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, ok, tt.expr)
	}
}

func TestBuildExpressionMatcherErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"missing",
		"(yes",
		"yes)",
		"yes &&",
		"|| yes",
		"yes no",
		"!",
		"()",
	} {
		_, err := BuildExpressionMatcher(expr, fakeRegistry())
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestCheckName(t *testing.T) {
	for _, name := range []string{"ads", "geo:cn", "qtype-aaaa", "notary", "android"} {
		assert.NoError(t, CheckName(name), name)
	}
	for _, name := range []string{"not", "And", "OR", "a b", "(x)", "!x", "a&&b", "a||b"} {
		assert.Error(t, CheckName(name), name)
	}
}

func TestReservedNameIsNeverReferenced(t *testing.T) {
	reg := fakeRegistry()
	reg["not"] = fakeMatcher{name: "not", result: true}
	_, err := BuildExpressionMatcher("not", reg)
	assert.Error(t, err, "a lone keyword is parsed as an operator")
}

func TestExpressionShortCircuit(t *testing.T) {
	var calls int
	registry := fakeRegistry()
	registry["counted"] = fakeMatcher{name: "counted", result: true, calls: &calls}

	for _, expr := range []string{"no && counted", "yes || counted"} {
		m, err := BuildExpressionMatcher(expr, registry)
		require.NoError(t, err)
		_, err = m.Match(context.Background(), &dns.Msg{})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, calls)
}

func TestExpressionErrorPropagates(t *testing.T) {
	registry := fakeRegistry()
	registry["broken"] = fakeMatcher{name: "broken", err: errors.New("boom")}
	for _, expr := range []string{"broken", "!broken", "yes && broken", "no || broken"} {
		m, err := BuildExpressionMatcher(expr, registry)
		require.NoError(t, err)
		ok, err := m.Match(context.Background(), &dns.Msg{})
		assert.Error(t, err, expr)
		assert.False(t, ok, expr)
	}
}

func TestConstMatchers(t *testing.T) {
	anyM, err := MakeMatcher("any", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "any", anyM.Name())
	ok, _ := anyM.Match(context.Background(), nil)
	assert.True(t, ok)

	noneM, err := MakeMatcher("none", "never", nil)
	require.NoError(t, err)
	assert.Equal(t, "never", noneM.Name())
	ok, _ = noneM.Match(context.Background(), nil)
	assert.False(t, ok)
}
