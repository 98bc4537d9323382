package pool

import "math/big"

// Reserve pairs a reserve's immutable config with its mutable accounting
// state and implements the interest accrual, rate-curve, and conversion
// math of spec §4.1. Grounded on native/lending/interest.go's kinked-curve
// BorrowAPR (big.Rat-based rate math) and native/lending/engine.go's
// accrueInterest, generalized from the teacher's single global reserve to
// the three-slope curve spec.md describes around a configurable target
// utilization.
type Reserve struct {
	Config ReserveConfig
	Data   *ReserveData
}

var (
	ninetyFivePct = big.NewRat(95, 100)
	fivePct       = big.NewRat(5, 100)
	oneRat        = big.NewRat(1, 1)
	irModFloor    = big.NewRat(1, 10)
	irModCeil     = big.NewRat(10, 1)
)

func ratFromScaled(v uint64, scale *big.Int) *big.Rat {
	return new(big.Rat).SetFrac(new(big.Int).SetUint64(v), scale)
}

func ratFromScaledInt(v *big.Int, scale *big.Int) *big.Rat {
	if v == nil {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(v, scale)
}

// ratToScaledFloor converts a big.Rat into a big.Int at the given scale,
// truncating toward zero (floor for non-negative values).
func ratToScaledFloor(r *big.Rat, scale *big.Int) *big.Int {
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}

// TotalSuppliedUnderlying returns floor(b_supply * b_rate / 1e9).
func (r *Reserve) TotalSuppliedUnderlying() *big.Int {
	return FloorMul(r.Data.BSupply, r.Data.BRate, RateScalar)
}

// TotalBorrowedUnderlying returns floor(d_supply * d_rate / 1e9).
func (r *Reserve) TotalBorrowedUnderlying() *big.Int {
	return FloorMul(r.Data.DSupply, r.Data.DRate, RateScalar)
}

// Utilization returns d_supply_underlying / (d_supply_underlying +
// available_underlying), i.e. borrowed/supplied, as an exact fraction. Zero
// when there is no supply.
func (r *Reserve) Utilization() *big.Rat {
	supplied := r.TotalSuppliedUnderlying()
	if supplied.Sign() == 0 {
		return new(big.Rat)
	}
	borrowed := r.TotalBorrowedUnderlying()
	return new(big.Rat).SetFrac(borrowed, supplied)
}

// curveRate implements the three-slope curve of spec §4.1 step 1.
func (c ReserveConfig) curveRate(u *big.Rat) *big.Rat {
	util := ratFromScaled(c.Util, FactorScalar)
	r1 := ratFromScaled(c.R1, FactorScalar)
	r2 := ratFromScaled(c.R2, FactorScalar)
	r3 := ratFromScaled(c.R3, FactorScalar)

	switch {
	case util.Sign() > 0 && u.Cmp(util) <= 0:
		return new(big.Rat).Mul(r1, new(big.Rat).Quo(u, util))
	case u.Cmp(ninetyFivePct) <= 0:
		denom := new(big.Rat).Sub(ninetyFivePct, util)
		if denom.Sign() <= 0 {
			return new(big.Rat).Add(r1, r2)
		}
		frac := new(big.Rat).Quo(new(big.Rat).Sub(u, util), denom)
		return new(big.Rat).Add(r1, new(big.Rat).Mul(r2, frac))
	default:
		base := new(big.Rat).Add(r1, r2)
		frac := new(big.Rat).Quo(new(big.Rat).Sub(u, ninetyFivePct), fivePct)
		return new(big.Rat).Add(base, new(big.Rat).Mul(r3, frac))
	}
}

// Accrue advances the reserve's d_rate/b_rate/ir_mod to now, splitting the
// newly accrued interest between the backstop and suppliers per spec §4.1
// steps 2-6. It must be called before any read of b_rate/d_rate that needs
// to reflect current time (§4.1).
func (r *Reserve) Accrue(now uint64, bstopRateBps uint64) {
	r.Data.EnsureDefaults()
	if now <= r.Data.LastTime {
		return
	}
	dt := now - r.Data.LastTime

	u := r.Utilization()
	curIR := r.Config.curveRate(u)
	irModRat := ratFromScaledInt(r.Data.IRMod, RateScalar)
	ir := new(big.Rat).Mul(curIR, irModRat)

	oldDRate := cloneBig(r.Data.DRate)
	dRateRat := ratFromScaledInt(oldDRate, RateScalar)
	growth := new(big.Rat).Mul(ir, new(big.Rat).SetInt(new(big.Int).SetUint64(dt)))
	factor := new(big.Rat).Add(oneRat, growth)
	newDRateRat := new(big.Rat).Mul(dRateRat, factor)
	newDRate := ratToScaledFloor(newDRateRat, RateScalar)
	if newDRate.Cmp(oldDRate) < 0 {
		newDRate = oldDRate
	}
	r.Data.DRate = newDRate

	deltaRate := new(big.Int).Sub(newDRate, oldDRate)
	interest := FloorMul(r.Data.DSupply, deltaRate, RateScalar)

	if interest.Sign() > 0 {
		backstopShare := FloorMul(interest, new(big.Int).SetUint64(bstopRateBps), RateScalar)
		if backstopShare.Cmp(interest) > 0 {
			backstopShare = cloneBig(interest)
		}
		r.Data.BackstopCredit = new(big.Int).Add(r.Data.BackstopCredit, backstopShare)

		supplierShare := new(big.Int).Sub(interest, backstopShare)
		if supplierShare.Sign() > 0 && r.Data.BSupply.Sign() > 0 {
			deltaBRate := FloorDiv(supplierShare, RateScalar, r.Data.BSupply)
			r.Data.BRate = new(big.Int).Add(r.Data.BRate, deltaBRate)
		}
	}

	r.updateIRMod(u, dt)
	r.Data.LastTime = now
}

func (r *Reserve) updateIRMod(u *big.Rat, dt uint64) {
	util := ratFromScaled(r.Config.Util, FactorScalar)
	reactivityRat := new(big.Rat).SetFrac(new(big.Int).SetUint64(r.Config.Reactivity), RateScalar)

	delta := new(big.Rat).Sub(u, util)
	delta.Mul(delta, reactivityRat)
	delta.Mul(delta, new(big.Rat).SetInt(new(big.Int).SetUint64(dt)))

	irModRat := ratFromScaledInt(r.Data.IRMod, RateScalar)
	next := new(big.Rat).Add(irModRat, delta)
	if next.Cmp(irModFloor) < 0 {
		next = new(big.Rat).Set(irModFloor)
	}
	if next.Cmp(irModCeil) > 0 {
		next = new(big.Rat).Set(irModCeil)
	}
	r.Data.IRMod = ratToScaledFloor(next, RateScalar)
}

// CheckUtilizationCeiling enforces spec §4.1's "any action that increases
// d_supply must re-check u <= max_util".
func (r *Reserve) CheckUtilizationCeiling() error {
	supplied := r.TotalSuppliedUnderlying()
	if supplied.Sign() == 0 {
		return ErrInvalidUtilizationRate
	}
	borrowed := r.TotalBorrowedUnderlying()
	u := new(big.Rat).SetFrac(borrowed, supplied)
	maxUtil := ratFromScaled(r.Config.MaxUtil, FactorScalar)
	if u.Cmp(maxUtil) > 0 {
		return ErrInvalidUtilizationRate
	}
	return nil
}

// --- Conversions (spec §4.1 table; direction always favors the pool) ---

// UnderlyingToBTokensDeposit mints b-tokens for a deposit, floored.
func (r *Reserve) UnderlyingToBTokensDeposit(amount *big.Int) *big.Int {
	return FloorDiv(amount, RateScalar, r.Data.BRate)
}

// BTokensToUnderlyingWithdrawFull redeems b-tokens for underlying, floored.
func (r *Reserve) BTokensToUnderlyingWithdrawFull(bTokens *big.Int) *big.Int {
	return FloorMul(bTokens, r.Data.BRate, RateScalar)
}

// UnderlyingToBTokensWithdrawPartial burns b-tokens for a partial
// underlying withdrawal, ceiled so the pool is never short-changed.
func (r *Reserve) UnderlyingToBTokensWithdrawPartial(amount *big.Int) *big.Int {
	return CeilDiv(amount, RateScalar, r.Data.BRate)
}

// UnderlyingToDTokensBorrow mints d-tokens for a borrow, ceiled.
func (r *Reserve) UnderlyingToDTokensBorrow(amount *big.Int) *big.Int {
	return CeilDiv(amount, RateScalar, r.Data.DRate)
}

// DTokensToUnderlyingRepayFull computes the underlying owed to fully clear
// dTokens of debt, ceiled.
func (r *Reserve) DTokensToUnderlyingRepayFull(dTokens *big.Int) *big.Int {
	return CeilMul(dTokens, r.Data.DRate, RateScalar)
}

// UnderlyingToDTokensRepayPartial burns d-tokens for a partial repay,
// floored so the pool retains slightly more debt on rounding.
func (r *Reserve) UnderlyingToDTokensRepayPartial(amount *big.Int) *big.Int {
	return FloorDiv(amount, RateScalar, r.Data.DRate)
}

// AssetUnitsCollateral converts b-token collateral into underlying asset
// units for health valuation (spec §4.4): floor(b_tokens * b_rate / 1e9).
func (r *Reserve) AssetUnitsCollateral(bTokens *big.Int) *big.Int {
	return FloorMul(bTokens, r.Data.BRate, RateScalar)
}

// AssetUnitsLiability converts d-token liabilities into underlying asset
// units for health valuation (spec §4.4): ceil(d_tokens * d_rate / 1e9).
func (r *Reserve) AssetUnitsLiability(dTokens *big.Int) *big.Int {
	return CeilMul(dTokens, r.Data.DRate, RateScalar)
}
