package launcher

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"
)

func makeContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("config", "", "")
	set.String("datadir", "", "")
	set.String("log.format", "", "")
	set.Int("log.verbosity", 0, "")
	set.String("preset", "", "")
	set.String("rpc.url", "", "")
	set.String("harvest.cron", "", "")
	set.String("db.path", "", "")

	for k, v := range args {
		require.NoError(t, set.Set(k, v))
	}
	return cli.NewContext(nil, set, nil)
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, "fake", cfg.Vault.Preset)
	assert.Equal(t, 4, cfg.Node.Logging.Verbosity)
	assert.Equal(t, "text", cfg.Node.Logging.Format)
	assert.Contains(t, cfg.Node.DataDir, ".lpvault")
	assert.Empty(t, cfg.Schedule.HarvestCron, "preset cadence applies by default")
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
node:
  datadir: `+dir+`
  logging:
    verbosity: 5
    format: json
vault:
  preset: main
schedule:
  harvest_cron: "0 0 * * * *"
`), 0o644))

	cfg, err := MakeAllConfigs(makeContext(t, map[string]string{"config": file}))
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Vault.Preset)
	assert.Equal(t, 5, cfg.Node.Logging.Verbosity)
	assert.Equal(t, "json", cfg.Node.Logging.Format)
	assert.Equal(t, "0 0 * * * *", cfg.Schedule.HarvestCron)
}

func TestCLIFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
node:
  datadir: `+dir+`
vault:
  preset: main
  rpc_url: http://file:8545
`), 0o644))

	cfg, err := MakeAllConfigs(makeContext(t, map[string]string{
		"config":  file,
		"preset":  "fake",
		"rpc.url": "http://flag:8545",
	}))
	require.NoError(t, err)

	assert.Equal(t, "fake", cfg.Vault.Preset)
	assert.Equal(t, "http://flag:8545", cfg.Vault.RPCURL)
}

func TestMissingConfigFileFails(t *testing.T) {
	_, err := MakeAllConfigs(makeContext(t, map[string]string{
		"config": filepath.Join(t.TempDir(), "nope.yaml"),
	}))
	require.Error(t, err)
}
