package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
Admin = "0x0000000000000000000000000000000000000001"
Oracle = "0x0000000000000000000000000000000000000002"
Backstop = "0x0000000000000000000000000000000000000003"
Emitter = "0x0000000000000000000000000000000000000004"
USDCToken = "0x0000000000000000000000000000000000000005"
BackstopToken = "0x0000000000000000000000000000000000000006"
BstopRateBps = 2000

[[reserve]]
Asset = "0x0000000000000000000000000000000000000007"
Decimals = 7
CFactor = 9000000
LFactor = 9500000
Util = 7000000
MaxUtil = 9500000
R1 = 500000
R2 = 1000000
R3 = 10000000
Reactivity = 20
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o600))
	return path
}

func TestLoadDecodesReservesAndAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)
	require.EqualValues(t, 12, cfg.MaxPositions)
	require.Len(t, cfg.Reserves, 1)
	require.EqualValues(t, 7, cfg.Reserves[0].Decimals)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestToPoolConfigParsesAddressesAndStartsInSetup(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)

	poolCfg := cfg.ToPoolConfig()
	require.EqualValues(t, 6, poolCfg.Status) // StatusSetup
	require.EqualValues(t, 2000, poolCfg.BstopRateBps)

	var zero [20]byte
	require.NotEqual(t, zero, [20]byte(poolCfg.Admin))
}

func TestToReserveConfigsPreservesFileOrderAndFields(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)

	reserves := cfg.ToReserveConfigs()
	require.Len(t, reserves, 1)
	require.EqualValues(t, 1_000_000, reserves[0].Config.R2)

	var zero [20]byte
	require.NotEqual(t, zero, [20]byte(reserves[0].Asset))
}

func TestEnsureDefaultsLeavesExplicitMaxPositionsAlone(t *testing.T) {
	cfg := &PoolConfig{MaxPositions: 5}
	cfg.EnsureDefaults()
	require.EqualValues(t, 5, cfg.MaxPositions)
}
