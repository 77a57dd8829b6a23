package rcode

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuestion() *dns.Msg {
	req := new(dns.Msg)
	req.SetQuestion("ads.example.com.", dns.TypeA)
	return req
}

func TestRcodeActionPerform(t *testing.T) {
	tests := []struct {
		args  map[string]interface{}
		rcode int
	}{
		{map[string]interface{}{"code": dns.RcodeRefused}, dns.RcodeRefused},
		{map[string]interface{}{"name": "nxdomain"}, dns.RcodeNameError},
		{map[string]interface{}{"name": " ServFail ", "code": 5}, dns.RcodeServerFailure},
		{nil, dns.RcodeSuccess},
	}
	for _, tt := range tests {
		act, err := createRcodeAction("test", tt.args)
		require.NoError(t, err)
		assert.Equal(t, "rcode", act.Type())
		req := newQuestion()
		resp, err := act.Perform(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, tt.rcode, resp.Rcode)
		assert.Equal(t, req.Id, resp.Id)
		assert.True(t, resp.Authoritative)
		assert.Empty(t, resp.Answer)
		assert.Empty(t, resp.Ns)
	}
}

func TestRcodeActionInvalid(t *testing.T) {
	for _, args := range []map[string]interface{}{
		{"code": -1},
		{"code": maxRcode + 1},
		{"name": "NOPE"},
	} {
		_, err := createRcodeAction("invalid", args)
		assert.Error(t, err, "%v", args)
	}
}

func TestRcodeActionSOA(t *testing.T) {
	act, err := createRcodeAction("block", map[string]interface{}{"name": "NXDOMAIN", "soa_ttl": 300})
	require.NoError(t, err)
	resp, err := act.Perform(context.Background(), newQuestion())
	require.NoError(t, err)
	require.Len(t, resp.Ns, 1)
	soa, ok := resp.Ns[0].(*dns.SOA)
	require.True(t, ok)
	assert.Equal(t, "ads.example.com.", soa.Hdr.Name)
	assert.Equal(t, uint32(300), soa.Minttl)
	assert.Equal(t, uint32(300), soa.Hdr.Ttl)
}
