package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Server answers udp and tcp queries with the configured rule engine.
type Server struct {
	c         *config
	udpServer *dns.Server
	tcpServer *dns.Server
	seq       atomic.Uint64
}

func New(opts ...Option) (*Server, error) {
	c := &config{
		bind:    defaultBind,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.re == nil {
		return nil, fmt.Errorf("no rule engine found")
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	s := &Server{c: c}
	handler := dns.HandlerFunc(s.ServeDNS)
	s.udpServer = &dns.Server{Addr: c.bind, Net: "udp", Handler: handler}
	s.tcpServer = &dns.Server{Addr: c.bind, Net: "tcp", Handler: handler}
	return s, nil
}

// Start serves until ctx is done or one of the listeners fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 2)
	for _, srv := range []*dns.Server{s.udpServer, s.tcpServer} {
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("listen %s/%s: %w", srv.Net, srv.Addr, err)
			}
		}()
	}
	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errCh:
	}
	s.shutdown()
	return err
}

func (s *Server) shutdown() {
	_ = s.udpServer.Shutdown()
	_ = s.tcpServer.Shutdown()
}

// ServeDNS handles one request. Engine failures and panics become SERVFAIL.
func (s *Server) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), s.c.timeout)
	defer cancel()
	logger := logutil.GetLogger(ctx).With(zap.Uint64("seq", s.seq.Add(1)),
		zap.String("client", clientAddr(w)))
	if len(req.Question) > 0 {
		q := req.Question[0]
		logger = logger.With(zap.String("domain", q.Name), zap.String("qtype", dns.TypeToString[q.Qtype]))
	}

	resp := s.handle(ctx, logger, req)
	resp.Id = req.Id
	if len(resp.Question) == 0 {
		resp.Question = req.Question
	}
	resp.RecursionAvailable = true
	resp.Compress = true
	if err := w.WriteMsg(resp); err != nil {
		logger.Error("write dns response failed", zap.Error(err))
	}
}

func (s *Server) handle(ctx context.Context, logger *zap.Logger, req *dns.Msg) (resp *dns.Msg) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic recovered while handling dns request", zap.Any("panic", r))
			resp = failure(req, dns.RcodeServerFailure)
		}
	}()
	if req.Opcode != dns.OpcodeQuery || len(req.Question) == 0 {
		return failure(req, dns.RcodeNotImplemented)
	}
	res, err := s.c.re.Execute(ctx, req.Copy())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error("handle dns request timeout", zap.Duration("timeout", s.c.timeout))
		} else {
			logger.Error("handle dns request failed", zap.Error(err))
		}
		return failure(req, dns.RcodeServerFailure)
	}
	if res == nil {
		return failure(req, dns.RcodeServerFailure)
	}
	logger.Debug("handle dns request succ", zap.String("rcode", dns.RcodeToString[res.Rcode]),
		zap.Int("answer_count", len(res.Answer)))
	return res
}

func failure(req *dns.Msg, code int) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetRcode(req, code)
	return msg
}

func clientAddr(w dns.ResponseWriter) string {
	addr := w.RemoteAddr()
	if addr == nil {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr.String()); err == nil {
		return host
	}
	return addr.String()
}
