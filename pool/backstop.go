package pool

import "math/big"

// Backstop is the external backstop-module collaborator (spec §6's
// pool_data): it tracks this pool's backstop-token deposit composition
// (blnd, usdc, and LP tokens) and the fraction of LP tokens currently
// queued for withdrawal (q4w), all consulted by the permissionless
// pool-status transition (status.go) and by bad-debt auction sizing
// (auction.go).
type Backstop interface {
	// PoolData returns the backstop's current BLND and USDC balances
	// backing this pool (base-currency units, PriceScalar-scaled), the
	// backstop LP-token balance deposited against this pool, and the
	// percent of those LP tokens currently queued for withdrawal
	// (FactorScalar-scaled).
	PoolData(pool Address) (blnd, usdc, tokens *big.Int, q4wPct uint64, err error)
}

// Emitter is the external token-emission collaborator (spec §6): it tracks
// a global emission schedule and periodically distributes this pool's
// share to it, which GulpEmissions (emissions.go) pulls in and splits
// between the backstop and the pool's own reward-zone reserves.
type Emitter interface {
	LastDistribution(pool Address) (amount *big.Int, at uint64, err error)
}
