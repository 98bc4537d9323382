package pool

import "math/big"

// Emissions implements the lazy per-token accrual index of spec §4.2: each
// (reserve, role) token_id accumulates an emitted-per-share index over time,
// and a user's accrued balance is only realized when their snapshot is
// reconciled against the current index (on position mutation or claim, see
// user.go's reconcileEmissions). Grounded on native/lending/engine.go's
// lazy accrueInterest pattern, generalized from a single debt index to one
// index per (reserve, role) pair.

// Accrue advances data's index to min(now, cfg.Expiration) given the
// token_id's current total outstanding shares (b-token or d-token supply,
// depending on the role half of the token_id).
func Accrue(data *ReserveEmissionsData, cfg *ReserveEmissionsConfig, totalShares *big.Int, now uint64) {
	if data.Index == nil {
		data.Index = big.NewInt(0)
	}
	effectiveNow := now
	if cfg.Expiration > 0 && effectiveNow > cfg.Expiration {
		effectiveNow = cfg.Expiration
	}
	if effectiveNow > data.LastTime && totalShares.Sign() > 0 && cfg.Eps > 0 {
		dt := effectiveNow - data.LastTime
		emitted := new(big.Int).Mul(new(big.Int).SetUint64(cfg.Eps), new(big.Int).SetUint64(dt))
		deltaIndex := new(big.Int).Quo(emitted, totalShares)
		data.Index = new(big.Int).Add(data.Index, deltaIndex)
	}
	data.LastTime = now
}

// Emissions gulp cycle constants (spec §4.2): the emitter's distribution to
// this pool is split 70/30 between the backstop and the pool's own
// reward-zone reserves, each reward-zone emissions config running for a
// fixed 7-day window.
const (
	BackstopGulpShareBps  = 7000
	RewardZoneGulpShareBp = 3000
	bpsScale              = 10000
	GulpExpirationWindow  = 7 * 24 * 3600
)

// GulpEmissions splits the emitter's latest distribution to this pool
// between the backstop (returned directly, for the caller to credit) and
// the pool's own reward-zone reserves (weighted by reserveWeightsBps, which
// must sum to <= bpsScale). A reserve whose existing config has not yet
// expired keeps its expiration unchanged rather than being bumped to
// now+window every cycle — gulping tops up the emission rate for the
// remainder of an in-flight window instead of restarting the clock.
func GulpEmissions(now uint64, emitterAmount *big.Int, reserveWeightsBps map[uint64]uint64, existing map[uint64]*ReserveEmissionsConfig) (backstopAmount *big.Int, updated map[uint64]*ReserveEmissionsConfig) {
	backstopAmount = FloorMul(emitterAmount, big.NewInt(BackstopGulpShareBps), big.NewInt(bpsScale))
	rewardZoneAmount := new(big.Int).Sub(emitterAmount, backstopAmount)

	updated = make(map[uint64]*ReserveEmissionsConfig, len(reserveWeightsBps))
	for tokenID, weightBps := range reserveWeightsBps {
		share := FloorMul(rewardZoneAmount, new(big.Int).SetUint64(weightBps), big.NewInt(bpsScale))
		eps := FloorDiv(share, EmissionsEpsScalar, big.NewInt(GulpExpirationWindow))

		cfg := &ReserveEmissionsConfig{Eps: eps.Uint64()}
		if prior, ok := existing[tokenID]; ok && prior.Expiration > now {
			cfg.Expiration = prior.Expiration
		} else {
			cfg.Expiration = now + GulpExpirationWindow
		}
		updated[tokenID] = cfg
	}
	return backstopAmount, updated
}
