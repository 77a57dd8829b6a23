package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
timeout: 3000
resource:
  matcher:
    - name: ads
      type: domain
      data:
        domains:
          - suffix:doubleclick.net
          - exclude:ok.doubleclick.net
  action:
    - name: block
      type: rcode
      data:
        name: NXDOMAIN
    - name: upstream
      type: forward
      data:
        server_list: ["udp://1.1.1.1"]
rules:
  - remark: block ads
    match: ads
    action: block
  - action: upstream
cache:
  size: 1000
  lazy: true
pprof:
  enable: true
  bind: 127.0.0.1:6060
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultBind, cfg.Bind)
	assert.Equal(t, int64(3000), cfg.Timeout)
	require.Len(t, cfg.Resource.Matcher, 1)
	assert.Equal(t, "domain", cfg.Resource.Matcher[0].Type)
	require.Len(t, cfg.Rules, 2)
	assert.Equal(t, "ads", cfg.Rules[0].Match)
	assert.Empty(t, cfg.Rules[1].Match)
	assert.True(t, cfg.Cache.Lazy)
	assert.True(t, cfg.Pprof.Enable)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "rules: [",
		"no rules":        "bind: \":5353\"\n",
		"rule no action":  "rules:\n  - match: any\n",
		"duplicate names": "resource:\n  action:\n    - {name: a, type: rcode}\n    - {name: a, type: rcode}\nrules:\n  - action: a\n",
		"unnamed matcher": "resource:\n  matcher:\n    - {type: domain}\nrules:\n  - action: a\n",
		"persist no file": "cache:\n  persist: true\nrules:\n  - action: a\n",
		"reserved not":    "resource:\n  matcher:\n    - {name: not, type: domain}\nrules:\n  - action: a\n",
		"reserved And":    "resource:\n  matcher:\n    - {name: And, type: domain}\nrules:\n  - action: a\n",
		"operator chars":  "resource:\n  matcher:\n    - {name: \"a||b\", type: domain}\nrules:\n  - action: a\n",
	}
	for name, data := range tests {
		_, err := Parse([]byte(data))
		assert.Error(t, err, name)
	}
}
