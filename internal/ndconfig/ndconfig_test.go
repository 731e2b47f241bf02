package ndconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndproxy6/ndppd/internal/ndconfig"
)

func writeConfig(t *testing.T, contents string) (path string) {
	t.Helper()

	dir := t.TempDir()
	path = filepath.Join(dir, "ndppd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoad_minimal(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    rules:
      - cidr: "2001:db8::/64"
        static: true
`)

	cfg, err := ndconfig.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Proxies, 1)

	p := cfg.Proxies[0]
	assert.Equal(t, "eth0", p.Interface)
	require.Len(t, p.Rules, 1)
	assert.Equal(t, "2001:db8::/64", p.Rules[0].Cidr)
	assert.True(t, p.Rules[0].Static)
}

func TestLoad_deadtimeDefaultsToTTL(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    ttl: 60000
    rules:
      - cidr: "::/0"
        auto: true
`)

	cfg, err := ndconfig.Load(path)
	require.NoError(t, err)

	params := cfg.Proxies[0].ToParams()
	assert.Equal(t, 60*time.Second, params.TTL)
	assert.Equal(t, 60*time.Second, params.Deadtime)
}

func TestLoad_deadtimeDefaultsToResolvedTTLWhenBothOmitted(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    rules:
      - cidr: "::/0"
        auto: true
`)

	cfg, err := ndconfig.Load(path)
	require.NoError(t, err)

	params := cfg.Proxies[0].ToParams()
	assert.Equal(t, 30*time.Second, params.TTL)
	assert.Equal(t, 30*time.Second, params.Deadtime)
}

func TestLoad_deadtimeExplicitOverridesTTL(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    ttl: 60000
    deadtime: 1000
    rules:
      - cidr: "::/0"
        auto: true
`)

	cfg, err := ndconfig.Load(path)
	require.NoError(t, err)

	params := cfg.Proxies[0].ToParams()
	assert.Equal(t, time.Second, params.Deadtime)
}

func TestLoad_missingInterface(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - rules:
      - cidr: "::/0"
        static: true
`)

	_, err := ndconfig.Load(path)
	assert.Error(t, err)
}

func TestLoad_noRules(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    rules: []
`)

	_, err := ndconfig.Load(path)
	assert.Error(t, err)
}

func TestLoad_ambiguousMode(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    rules:
      - cidr: "::/0"
        static: true
        auto: true
`)

	_, err := ndconfig.Load(path)
	assert.Error(t, err)
}

func TestLoad_noMode(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    rules:
      - cidr: "::/0"
`)

	_, err := ndconfig.Load(path)
	assert.Error(t, err)
}

func TestLoad_ifaceName(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    rules:
      - cidr: "::/0"
        iface: eth1
`)

	cfg, err := ndconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "eth1", cfg.Proxies[0].Rules[0].Iface)
}

func TestLoad_duplicateInterface(t *testing.T) {
	path := writeConfig(t, `
proxies:
  - interface: eth0
    rules:
      - cidr: "::/0"
        static: true
  - interface: eth0
    rules:
      - cidr: "2001:db8::/64"
        static: true
`)

	_, err := ndconfig.Load(path)
	assert.Error(t, err)
}

func TestLoad_badYAML(t *testing.T) {
	path := writeConfig(t, "not: [valid")

	_, err := ndconfig.Load(path)
	assert.Error(t, err)
}

func TestLoad_missingFile(t *testing.T) {
	_, err := ndconfig.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProxyConfig_ToParams_defaults(t *testing.T) {
	p := &ndconfig.ProxyConfig{Interface: "eth0"}
	params := p.ToParams()

	assert.True(t, params.Router)
	assert.True(t, params.Keepalive)
	assert.Equal(t, 3, params.Retries)
	assert.Equal(t, 500*time.Millisecond, params.Timeout)
}
