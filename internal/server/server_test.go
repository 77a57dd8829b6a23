package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFunc func(ctx context.Context, req *dns.Msg) (*dns.Msg, error)

func (f engineFunc) Execute(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	return f(ctx, req)
}

type recordWriter struct {
	msg *dns.Msg
}

func (w *recordWriter) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 53}
}

func (w *recordWriter) RemoteAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(192, 0, 2, 10), Port: 40000}
}

func (w *recordWriter) WriteMsg(m *dns.Msg) error {
	w.msg = m
	return nil
}

func (w *recordWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *recordWriter) Close() error                { return nil }
func (w *recordWriter) TsigStatus() error           { return nil }
func (w *recordWriter) TsigTimersOnly(bool)         {}
func (w *recordWriter) Hijack()                     {}

func serve(t *testing.T, s *Server, req *dns.Msg) *dns.Msg {
	w := &recordWriter{}
	s.ServeDNS(w, req)
	require.NotNil(t, w.msg)
	return w.msg
}

func newQuestion(id uint16) *dns.Msg {
	req := new(dns.Msg)
	req.SetQuestion("example.com.", dns.TypeA)
	req.Id = id
	return req
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(WithBind(":0"))
	assert.Error(t, err)
}

func TestServeDNSAnswer(t *testing.T) {
	s, err := New(WithRuleEngine(engineFunc(func(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		rr, _ := dns.NewRR("example.com. 60 IN A 192.0.2.1")
		resp.Answer = append(resp.Answer, rr)
		resp.Id = 1 // overwritten with the request id
		return resp, nil
	})))
	require.NoError(t, err)

	resp := serve(t, s, newQuestion(77))
	assert.Equal(t, uint16(77), resp.Id)
	assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
	assert.True(t, resp.RecursionAvailable)
	require.Len(t, resp.Answer, 1)
}

func TestServeDNSFailures(t *testing.T) {
	tests := []struct {
		name  string
		re    engineFunc
		req   *dns.Msg
		rcode int
	}{
		{
			name: "engine error",
			re: func(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
				return nil, errors.New("upstream down")
			},
			req:   newQuestion(1),
			rcode: dns.RcodeServerFailure,
		},
		{
			name: "panic",
			re: func(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
				panic("boom")
			},
			req:   newQuestion(2),
			rcode: dns.RcodeServerFailure,
		},
		{
			name: "nil response",
			re: func(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
				return nil, nil
			},
			req:   newQuestion(3),
			rcode: dns.RcodeServerFailure,
		},
		{
			name: "no question",
			re: func(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
				t.Fatalf("engine must not run without question")
				return nil, nil
			},
			req:   &dns.Msg{MsgHdr: dns.MsgHdr{Id: 4}},
			rcode: dns.RcodeNotImplemented,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(WithRuleEngine(tt.re))
			require.NoError(t, err)
			resp := serve(t, s, tt.req)
			assert.Equal(t, tt.rcode, resp.Rcode)
			assert.Equal(t, tt.req.Id, resp.Id)
		})
	}
}

func TestServeDNSTimeout(t *testing.T) {
	s, err := New(WithTimeout(20*time.Millisecond),
		WithRuleEngine(engineFunc(func(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})))
	require.NoError(t, err)
	resp := serve(t, s, newQuestion(5))
	assert.Equal(t, dns.RcodeServerFailure, resp.Rcode)
}

func TestStartStopsOnCancel(t *testing.T) {
	s, err := New(WithBind("127.0.0.1:0"), WithRuleEngine(engineFunc(func(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
		return nil, errors.New("unused")
	})))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
