// Package config loads a pool's admin-controlled configuration from TOML,
// grounded on native/lending/config.go's toml-tagged Config/EnsureDefaults
// pattern.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/nhbchain/lendpool/pool"
)

// PoolConfig is the on-disk shape of a pool's Config plus its reserve set,
// decoded with addresses and scaled values as plain strings/integers so the
// file stays human-editable.
type PoolConfig struct {
	Admin         string `toml:"Admin"`
	Oracle        string `toml:"Oracle"`
	Backstop      string `toml:"Backstop"`
	Emitter       string `toml:"Emitter"`
	USDCToken     string `toml:"USDCToken"`
	BackstopToken string `toml:"BackstopToken"`
	// USDCDecimals/BackstopTokenDecimals default to 7 (the common
	// Stellar-style scale the rest of this config uses) but are overridable
	// since deployments may peg USDC at its native 6 decimals.
	USDCDecimals          uint32 `toml:"USDCDecimals"`
	BackstopTokenDecimals uint32 `toml:"BackstopTokenDecimals"`
	BstopRateBps          uint64 `toml:"BstopRateBps"`
	MaxPositions          uint32 `toml:"MaxPositions"`

	Reserves []ReserveConfig `toml:"reserve"`
}

// ReserveConfig is the on-disk shape of a single reserve's risk parameters.
type ReserveConfig struct {
	Asset      string `toml:"Asset"`
	Decimals   uint32 `toml:"Decimals"`
	CFactor    uint64 `toml:"CFactor"`
	LFactor    uint64 `toml:"LFactor"`
	Util       uint64 `toml:"Util"`
	MaxUtil    uint64 `toml:"MaxUtil"`
	R1         uint64 `toml:"R1"`
	R2         uint64 `toml:"R2"`
	R3         uint64 `toml:"R3"`
	Reactivity uint64 `toml:"Reactivity"`
}

// Load decodes a PoolConfig from a TOML file at path.
func Load(path string) (*PoolConfig, error) {
	var cfg PoolConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.EnsureDefaults()
	return &cfg, nil
}

// EnsureDefaults backfills MaxPositions (12) and the USDC/backstop-token
// decimals (7) when unset, mirroring
// native/lending/config.go's nil-guarding style, adapted to this module's
// scalar (rather than *big.Int) fields.
func (c *PoolConfig) EnsureDefaults() {
	if c.MaxPositions == 0 {
		c.MaxPositions = 12
	}
	if c.USDCDecimals == 0 {
		c.USDCDecimals = 7
	}
	if c.BackstopTokenDecimals == 0 {
		c.BackstopTokenDecimals = 7
	}
}

func parseAddress(s string) pool.Address {
	return common.HexToAddress(s)
}

// ToPoolConfig converts the on-disk shape into the engine's pool.Config.
func (c *PoolConfig) ToPoolConfig() pool.Config {
	return pool.Config{
		Admin:                 parseAddress(c.Admin),
		Oracle:                parseAddress(c.Oracle),
		Backstop:              parseAddress(c.Backstop),
		Emitter:               parseAddress(c.Emitter),
		USDCToken:             parseAddress(c.USDCToken),
		BackstopToken:         parseAddress(c.BackstopToken),
		USDCDecimals:          c.USDCDecimals,
		BackstopTokenDecimals: c.BackstopTokenDecimals,
		BstopRateBps:          c.BstopRateBps,
		Status:                pool.StatusSetup,
		MaxPositions:          c.MaxPositions,
	}
}

// ToReserveConfigs converts the on-disk reserve list into engine
// ReserveConfig values paired with their underlying asset address, in file
// order (the caller assigns indices via Pool.InitReserve).
func (c *PoolConfig) ToReserveConfigs() []struct {
	Asset  pool.Address
	Config pool.ReserveConfig
} {
	out := make([]struct {
		Asset  pool.Address
		Config pool.ReserveConfig
	}, 0, len(c.Reserves))
	for _, r := range c.Reserves {
		out = append(out, struct {
			Asset  pool.Address
			Config pool.ReserveConfig
		}{
			Asset: parseAddress(r.Asset),
			Config: pool.ReserveConfig{
				Decimals:   r.Decimals,
				CFactor:    r.CFactor,
				LFactor:    r.LFactor,
				Util:       r.Util,
				MaxUtil:    r.MaxUtil,
				R1:         r.R1,
				R2:         r.R2,
				R3:         r.R3,
				Reactivity: r.Reactivity,
			},
		})
	}
	return out
}
