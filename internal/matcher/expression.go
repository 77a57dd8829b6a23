package matcher

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/miekg/dns"
)

var reservedNames = []string{"and", "or", "not"}

// CheckName returns an error when name can not be referenced from an
// expression: the keywords and, or, not (any case) and names containing
// whitespace, parentheses, '!', "&&" or "||".
func CheckName(name string) error {
	for _, kw := range reservedNames {
		if strings.EqualFold(name, kw) {
			return fmt.Errorf("matcher name %s is a reserved operator", name)
		}
	}
	if tks := tokenize(name); len(tks) != 1 || tks[0] != name {
		return fmt.Errorf("matcher name %q contains operator characters", name)
	}
	return nil
}

// BuildExpressionMatcher compiles a boolean expression over named matchers.
// Operators are &&, || and ! (or and, or, not, matched case-insensitively, so
// matchers can not use those names, see CheckName). Precedence is
// not > and > or, parentheses group.
func BuildExpressionMatcher(expr string, registry map[string]IDNSMatcher) (IDNSMatcher, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty matcher expression")
	}
	p := &exprParser{tokens: tokenize(expr), registry: registry}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", expr, err)
	}
	if tk, ok := p.peek(); ok {
		return nil, fmt.Errorf("parse expression %q: unexpected %q", expr, tk)
	}
	return &expressionMatcher{raw: expr, root: root}, nil
}

// tokenize splits on whitespace and on the operator characters.
func tokenize(expr string) []string {
	var (
		tokens []string
		sb     strings.Builder
	)
	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '(' || c == ')' || c == '!':
			flush()
			tokens = append(tokens, string(c))
		case (c == '&' || c == '|') && i+1 < len(expr) && expr[i+1] == c:
			flush()
			tokens = append(tokens, expr[i:i+2])
			i++
		case unicode.IsSpace(rune(c)):
			flush()
		default:
			sb.WriteByte(c)
		}
	}
	flush()
	return tokens
}

type exprParser struct {
	tokens   []string
	pos      int
	registry map[string]IDNSMatcher
}

func (p *exprParser) peek() (string, bool) {
	if p.pos >= len(p.tokens) {
		return "", false
	}
	return p.tokens[p.pos], true
}

func (p *exprParser) accept(ops ...string) bool {
	tk, ok := p.peek()
	if !ok {
		return false
	}
	for _, op := range ops {
		if strings.EqualFold(tk, op) {
			p.pos++
			return true
		}
	}
	return false
}

func (p *exprParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("||", "or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept("&&", "and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (exprNode, error) {
	if p.accept("!", "not") {
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{child}, nil
	}
	tk, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	if tk == "(" {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(")") {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	}
	switch strings.ToLower(tk) {
	case ")", "&&", "||", "and", "or":
		return nil, fmt.Errorf("unexpected %q", tk)
	}
	p.pos++
	m, ok := p.registry[tk]
	if !ok {
		return nil, fmt.Errorf("matcher %s not found", tk)
	}
	return leafNode{m}, nil
}

type exprNode interface {
	eval(ctx context.Context, req *dns.Msg) (bool, error)
}

type leafNode struct{ m IDNSMatcher }

func (n leafNode) eval(ctx context.Context, req *dns.Msg) (bool, error) {
	return n.m.Match(ctx, req)
}

type notNode struct{ child exprNode }

func (n notNode) eval(ctx context.Context, req *dns.Msg) (bool, error) {
	ok, err := n.child.eval(ctx, req)
	return !ok && err == nil, err
}

type andNode struct{ left, right exprNode }

func (n andNode) eval(ctx context.Context, req *dns.Msg) (bool, error) {
	ok, err := n.left.eval(ctx, req)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx, req)
}

type orNode struct{ left, right exprNode }

func (n orNode) eval(ctx context.Context, req *dns.Msg) (bool, error) {
	ok, err := n.left.eval(ctx, req)
	if err != nil || ok {
		return ok && err == nil, err
	}
	return n.right.eval(ctx, req)
}

type expressionMatcher struct {
	raw  string
	root exprNode
}

func (e *expressionMatcher) Name() string {
	return e.raw
}

func (e *expressionMatcher) Type() string {
	return "expression"
}

func (e *expressionMatcher) Match(ctx context.Context, req *dns.Msg) (bool, error) {
	return e.root.eval(ctx, req)
}
