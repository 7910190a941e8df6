package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, lvl)

	l, err := cfg.CreatedLayout()
	require.NoError(t, err)
	require.Equal(t, event.LayoutAllowedWorkers, l)
}

func TestLoad(t *testing.T) {
	contract := util.Uint160{1, 2, 3}
	data := `
logger:
  level: debug
rpc:
  endpoint: http://localhost:30333
  request_timeout: 1m
contract:
  address: ` + address.Uint160ToString(contract) + `
content_store:
  upload_endpoint: https://store.example/upload
  gateway_endpoint: https://store.example
  secret: s3cr3t
events:
  created_layout: ` + event.LayoutWhitelistFlag.String() + `
resolve:
  concurrency: 2
`
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))

	cfg, err := Load(p)
	require.NoError(t, err)

	require.Equal(t, "http://localhost:30333", cfg.RPC.Endpoint)
	require.Equal(t, time.Minute, cfg.RPC.RequestTimeout)
	require.Equal(t, 5*time.Second, cfg.RPC.DialTimeout)
	require.Equal(t, "X-Secret", cfg.ContentStore.SecretHeader)
	require.Equal(t, "s3cr3t", cfg.ContentStore.Secret)
	require.Equal(t, 1024, cfg.Cache.MemorySize)
	require.Equal(t, 2, cfg.Resolve.Concurrency)

	h, err := cfg.ContractHash()
	require.NoError(t, err)
	require.Equal(t, contract, h)

	l, err := cfg.CreatedLayout()
	require.NoError(t, err)
	require.Equal(t, event.LayoutWhitelistFlag, l)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestContractHash(t *testing.T) {
	contract := util.Uint160{0xaa, 0xbb}
	cfg := Default()

	cfg.Contract.Address = contract.StringLE()
	h, err := cfg.ContractHash()
	require.NoError(t, err)
	require.Equal(t, contract, h)

	cfg.Contract.Address = "not a contract"
	require.Error(t, cfg.Validate())
}

func TestParseInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"yaml":        "logger: [",
		"level":       "logger:\n  level: loud",
		"layout":      "events:\n  created_layout: v3",
		"cache size":  "cache:\n  memory_size: 0",
		"concurrency": "resolve:\n  concurrency: -1",
		"timeout":     "content_store:\n  timeout: -1s",
	} {
		_, err := Parse([]byte(data))
		require.Error(t, err, name)
	}
}
