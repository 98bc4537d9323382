package pool

import "math/big"

// Pool status state machine (spec §4.7). The three Admin* statuses (0,2,4)
// are explicit admin holds; SetStatus enters Admin-Active, Admin-On-Ice,
// On-Ice or Admin-Frozen under backstop-health guards while UpdateStatus walks the natural ladder
// (Active/OnIce/Frozen) permissionlessly using the same backstop-health
// measurements, treating Setup and Admin-Frozen as admin-only exits.
// Grounded on original_source/pool/src/pool/status.rs's
// execute_set_pool_status / execute_update_pool_status /
// calc_pool_backstop_threshold.

// q4w percent thresholds (1e7 scale) used throughout the transition table.
const (
	q4wActiveCeiling = 5_000_000 // 50%: set_status(0) and update_status from Admin-Active
	q4wIceCeiling    = 7_500_000 // 75%: set_status(2/3) and update_status from Admin-On-Ice
	q4wFreezeFloor   = 6_000_000 // 60%: update_status natural-ladder freeze point
	q4wOnIceFloor    = 3_000_000 // 30%: update_status natural-ladder on-ice point
)

// backstopThresholdConstant is 200_000^5, the saturating product constant
// the raw blnd^4*usdc product is measured against (calc_pool_backstop_threshold).
var backstopThresholdConstant = new(big.Int).Exp(big.NewInt(200_000), big.NewInt(5), nil)

// calcPoolBackstopThreshold implements calc_pool_backstop_threshold: floor
// blnd/usdc to whole units, raise to the pool's product-constant, and scale
// back to 1e7 points such that 1e7 (PriceScalar) represents 100%. The
// original uses saturating_mul over i128 to avoid overflow; big.Int has no
// fixed width, so no saturation is needed here.
func calcPoolBackstopThreshold(blnd, usdc *big.Int) *big.Int {
	balBlnd := new(big.Int).Div(zeroIfNil(blnd), PriceScalar)
	balUsdc := new(big.Int).Div(zeroIfNil(usdc), PriceScalar)
	productConstant := new(big.Int).Exp(balBlnd, big.NewInt(4), nil)
	productConstant.Mul(productConstant, balUsdc)
	productConstant.Mul(productConstant, PriceScalar)
	return productConstant.Div(productConstant, backstopThresholdConstant)
}

func metBackstopThreshold(blnd, usdc *big.Int) bool {
	return calcPoolBackstopThreshold(blnd, usdc).Cmp(PriceScalar) >= 0
}

// SetStatus is the admin-only transition (execute_set_pool_status): the
// target status gates on the pool's current backstop health, not its prior
// status. Callers must verify admin authorization before calling this.
func SetStatus(cfg *Config, next Status, blnd, usdc *big.Int, q4wPct uint64) error {
	switch next {
	case StatusAdminActive:
		if !metBackstopThreshold(blnd, usdc) || q4wPct >= q4wActiveCeiling {
			return ErrStatusNotAllowed
		}
	case StatusAdminOnIce, StatusOnIce:
		if q4wPct >= q4wIceCeiling {
			return ErrStatusNotAllowed
		}
	case StatusAdminFrozen:
		// Admin may always freeze the pool.
	default:
		return ErrBadRequest
	}
	cfg.Status = next
	return nil
}

// UpdateStatus is the permissionless transition (execute_update_pool_status):
// it walks the natural ladder (Active/OnIce/Frozen) according to current
// backstop health, rejecting when the pool is held in Setup or Admin-Frozen
// (admin-only exits).
func UpdateStatus(cfg *Config, blnd, usdc *big.Int, q4wPct uint64) error {
	met := metBackstopThreshold(blnd, usdc)
	switch cfg.Status {
	case StatusSetup, StatusAdminFrozen:
		return ErrStatusNotAllowed
	case StatusAdminOnIce:
		if q4wPct >= q4wIceCeiling {
			cfg.Status = StatusFrozen
		}
	case StatusAdminActive:
		if !met || q4wPct >= q4wActiveCeiling {
			cfg.Status = StatusOnIce
		}
	default:
		switch {
		case q4wPct >= q4wFreezeFloor:
			cfg.Status = StatusFrozen
		case q4wPct >= q4wOnIceFloor || !met:
			cfg.Status = StatusOnIce
		default:
			cfg.Status = StatusActive
		}
	}
	return nil
}

// requestAllowedStatuses enumerates, per request kind, the statuses under
// which the pipeline may execute it (spec §4.7's disabled-operations
// table): borrowing is gated separately from new supply (only Active
// allows new borrows, while Admin-Active/Admin-On-Ice also allow new
// supply); withdrawals and repayment stay open through Frozen; auction
// fills and liquidation-auction cancellation close once the pool is
// Frozen; Setup blocks every user action.
func requestAllowedStatuses(kind RequestKind) map[Status]bool {
	aboveOnIce := map[Status]bool{
		StatusAdminActive: true, StatusActive: true, StatusAdminOnIce: true,
	}
	aboveFrozen := map[Status]bool{
		StatusAdminActive: true, StatusActive: true,
		StatusAdminOnIce: true, StatusOnIce: true,
	}
	notSetup := map[Status]bool{
		StatusAdminActive: true, StatusActive: true,
		StatusAdminOnIce: true, StatusOnIce: true,
		StatusAdminFrozen: true, StatusFrozen: true,
	}
	switch kind {
	case RequestSupply, RequestSupplyCollateral:
		return aboveOnIce
	case RequestBorrow:
		return map[Status]bool{StatusActive: true}
	case RequestWithdraw, RequestWithdrawCollateral, RequestRepay:
		return notSetup
	default:
		// fill_user_liquidation, fill_bad_debt_auction, fill_interest_auction,
		// delete_liquidation_auction
		return aboveFrozen
	}
}

// CheckStatusAllows returns ErrStatusNotAllowed if kind may not run while
// the pool is in status s.
func CheckStatusAllows(s Status, kind RequestKind) error {
	if requestAllowedStatuses(kind)[s] {
		return nil
	}
	return ErrStatusNotAllowed
}
