package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photon-storage/photon-settlement/chain/evm"
	"github.com/photon-storage/photon-settlement/price"
)

const sampleConfig = `
mysql:
  master:
    host: 127.0.0.1
    port: 3306
    username: settlement
    password: from-file
    db_name: settlement
api:
  port: 9090
solana:
  rpc_endpoint: https://api.devnet.solana.com
  program_id: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
filecoin:
  enabled: true
  network: calibration
pricing:
  rate_per_byte_per_day: 0.0000000001
  min_duration_days: 30
keeper:
  refresh_interval: 600
`

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, Load(writeConfig(t, sampleConfig), cfg))

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "from-file", cfg.MySQL.Master.Password)
	assert.Equal(t, 32, cfg.MySQL.ConnCfg.MaxOpenConns)
	assert.Equal(t, price.SOLUSDFeedID, cfg.Price.FeedID)
	assert.Equal(t, uint64(60), cfg.Price.TTLSeconds)
	assert.Equal(t, evm.FilecoinCalibrationRPC, cfg.Filecoin.RPCEndpoint)
	assert.Equal(t, evm.USDFCCalibration, cfg.Filecoin.TokenContract)
	assert.Equal(t, uint64(5), cfg.Filecoin.PollIntervalSeconds)
	assert.Equal(t, uint64(120), cfg.Filecoin.TimeoutSeconds)
	assert.Equal(t, uint64(600), cfg.Keeper.RefreshInterval)
	assert.Equal(t, uint64(7), cfg.Keeper.WarningWindowDays)

	defaults := cfg.PricingDefaults()
	assert.Equal(t, uint32(30), defaults.MinDurationDays)
	assert.Equal(t, 1e-10, defaults.RatePerBytePerDay)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SETTLEMENT_MYSQL_PASSWORD", "from-env")
	t.Setenv("SETTLEMENT_ADMIN_KEYPAIR_PATH", "/run/secrets/admin.json")

	cfg := &Config{}
	require.NoError(t, Load(writeConfig(t, sampleConfig), cfg))
	assert.Equal(t, "from-env", cfg.MySQL.Master.Password)
	assert.Equal(t, "/run/secrets/admin.json", cfg.Solana.AdminKeypairPath)
}

func TestLoadErrors(t *testing.T) {
	assert.Error(t, Load("", &Config{}))
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &Config{}))
	assert.Error(t, Load(writeConfig(t, "api:\n  prot: 1\n"), &Config{}))
}
