package pool

import "math/big"

// Oracle is the external price-feed collaborator (spec §6). Prices are
// normalized to PriceScalar (1e7) regardless of the feed's native decimals.
type Oracle interface {
	GetPrice(asset Address, now uint64) (price *big.Int, ok bool)
}

// PositionHealth is the aggregate valuation of a user's book at a point in
// time (spec §4.4).
type PositionHealth struct {
	CollateralRaw  *big.Int // sum of collateral asset units, no factor applied
	CollateralBase *big.Int // sum of collateral asset units * price * c_factor
	LiabilityRaw   *big.Int // sum of liability asset units, no factor applied
	LiabilityBase  *big.Int // sum of liability asset units * price / l_factor
}

// HealthFactor returns CollateralBase / LiabilityBase as an exact fraction.
// A zero liability base (no debt) is treated as infinitely healthy and
// returns nil.
func (h *PositionHealth) HealthFactor() *big.Rat {
	if h.LiabilityBase.Sign() == 0 {
		return nil
	}
	return new(big.Rat).SetFrac(h.CollateralBase, h.LiabilityBase)
}

// ComputeHealth values a user's positions against current reserve rates and
// oracle prices, per spec §4.4. oracleMaxAge is not consulted: staleness is
// left to the Oracle, and a price it does not return (ok=false) for any
// reserve the user holds a position in aborts the whole call with
// ErrOracleStale, since partial valuation would misstate health.
func ComputeHealth(u *User, reserves map[uint32]*Reserve, oracle Oracle, now uint64, oracleMaxAge uint64) (*PositionHealth, error) {
	h := &PositionHealth{
		CollateralRaw:  big.NewInt(0),
		CollateralBase: big.NewInt(0),
		LiabilityRaw:   big.NewInt(0),
		LiabilityBase:  big.NewInt(0),
	}

	priceFor := func(idx uint32) (*big.Int, *Reserve, error) {
		r, ok := reserves[idx]
		if !ok {
			return nil, nil, ErrReserveNotFound
		}
		price, ok := oracle.GetPrice(r.Data.Asset, now)
		if !ok {
			return nil, nil, ErrOracleStale
		}
		return price, r, nil
	}
	_ = oracleMaxAge // staleness is the oracle collaborator's responsibility to enforce before returning ok=true

	for idx, bTokens := range u.Positions.Collateral {
		if bTokens.Sign() == 0 {
			continue
		}
		price, r, err := priceFor(idx)
		if err != nil {
			return nil, err
		}
		assetUnits := r.AssetUnitsCollateral(bTokens)
		h.CollateralRaw = new(big.Int).Add(h.CollateralRaw, assetUnits)
		value := FloorMul(assetUnits, price, r.Config.Scalar())
		weighted := FloorMul(value, new(big.Int).SetUint64(r.Config.CFactor), FactorScalar)
		h.CollateralBase = new(big.Int).Add(h.CollateralBase, weighted)
	}

	for idx, dTokens := range u.Positions.Liabilities {
		if dTokens.Sign() == 0 {
			continue
		}
		price, r, err := priceFor(idx)
		if err != nil {
			return nil, err
		}
		assetUnits := r.AssetUnitsLiability(dTokens)
		h.LiabilityRaw = new(big.Int).Add(h.LiabilityRaw, assetUnits)
		value := CeilMul(assetUnits, price, r.Config.Scalar())
		weighted := CeilDiv(value, FactorScalar, new(big.Int).SetUint64(r.Config.LFactor))
		h.LiabilityBase = new(big.Int).Add(h.LiabilityBase, weighted)
	}

	return h, nil
}

// CheckBorrowAllowed enforces spec §4.4's post-borrow health-factor floor.
func CheckBorrowAllowed(h *PositionHealth) error {
	hf := h.HealthFactor()
	if hf != nil && hf.Cmp(oneRat) < 0 {
		return ErrInvalidHf
	}
	return nil
}

// IsLiquidatable reports whether h's health factor is strictly below 1,
// the gate for opening a user-liquidation auction (spec §4.5).
func IsLiquidatable(h *PositionHealth) bool {
	hf := h.HealthFactor()
	return hf != nil && hf.Cmp(oneRat) < 0
}
