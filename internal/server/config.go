package server

import (
	"time"

	"github.com/xxxsen/sieve/internal/rule"
)

const (
	defaultBind    = ":53"
	defaultTimeout = 10 * time.Second
)

// Option configures the DNS server.
type Option func(*config)

type config struct {
	bind    string
	re      rule.IDNSRuleEngine
	timeout time.Duration
}

// WithBind configures the bind address, shared by udp and tcp.
func WithBind(bind string) Option {
	return func(c *config) {
		c.bind = bind
	}
}

func WithRuleEngine(re rule.IDNSRuleEngine) Option {
	return func(c *config) {
		c.re = re
	}
}

// WithTimeout bounds the time spent on one request.
func WithTimeout(t time.Duration) Option {
	return func(c *config) {
		c.timeout = t
	}
}
