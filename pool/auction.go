package pool

import "math/big"

// Auction pricing schedule, block-linear over a fixed window, grounded on
// original_source/pool/src/auctions/auction.rs's scale_auction: the lot side
// ramps 0% -> 100% over the window's first half while the bid side holds at
// 100%, then the lot side holds at 100% while the bid side ramps 100% -> 0%
// over the second half. A fill scales the auction's *current* principal by
// the requested percent (ceil for bid, floor for lot) before applying the
// block modifier; the un-filled residual is decremented by the raw
// (un-modified) percent so later fills always re-price against the full
// block-linear schedule, never a stale modifier.
const (
	AuctionWindowBlocks = 400
	AuctionHalfBlocks   = 200
)

// auctionIncentiveScalar is the 1.4x (1e7 scale) sizing multiplier shared by
// the bad-debt and interest auctions (spec §4.5).
var auctionIncentiveScalar = big.NewInt(14_000_000)

// blockModifiers returns (lotModifierPct, bidModifierPct) for blockDelta
// blocks since the auction was created, each in [0,100].
func blockModifiers(blockDelta uint64) (lotPct, bidPct uint64) {
	switch {
	case blockDelta >= AuctionWindowBlocks:
		return 100, 0
	case blockDelta <= AuctionHalfBlocks:
		return blockDelta * 100 / AuctionHalfBlocks, 100
	default:
		second := blockDelta - AuctionHalfBlocks
		return 100, 100 - second*100/AuctionHalfBlocks
	}
}

// Fill computes the bid/lot owed for filling pctFill percent (1-100) of the
// auction's current principal at block `now`, and mutates the auction's
// stored principal down by the raw (un-modified) filled fraction. Returns
// ErrBadRequest for an out-of-range percent.
func (a *AuctionData) Fill(now uint64, pctFill uint64) (bidOwed, lotOwed map[Address]*big.Int, err error) {
	if pctFill == 0 || pctFill > 100 {
		return nil, nil, ErrBadRequest
	}
	if a.IsEmpty() {
		return nil, nil, ErrAuctionNotFound
	}

	blockDelta := uint64(0)
	if now > a.Block {
		blockDelta = now - a.Block
	}
	lotPct, bidPct := blockModifiers(blockDelta)

	bidOwed = make(map[Address]*big.Int, len(a.Bid))
	lotOwed = make(map[Address]*big.Int, len(a.Lot))

	for asset, full := range a.Bid {
		filled := PctCeil(full, pctFill)
		owed := PctCeil(filled, bidPct)
		bidOwed[asset] = owed
		remaining := new(big.Int).Sub(full, filled)
		if remaining.Sign() <= 0 {
			delete(a.Bid, asset)
		} else {
			a.Bid[asset] = remaining
		}
	}
	for asset, full := range a.Lot {
		filled := PctFloor(full, pctFill)
		owed := PctFloor(filled, lotPct)
		lotOwed[asset] = owed
		remaining := new(big.Int).Sub(full, filled)
		if remaining.Sign() <= 0 {
			delete(a.Lot, asset)
		} else {
			a.Lot[asset] = remaining
		}
	}
	return bidOwed, lotOwed, nil
}

// Liquidation incentive bounds (spec §4.5), [1.03, 1.15].
// CreateLiquidationAuction sizes its bid/lot toward the 1.03 lower bound; it
// does not check the resulting health factor against either bound, and
// maxPostLiquidationHF is not used.
var (
	minPostLiquidationHF = big.NewRat(103, 100)
	maxPostLiquidationHF = big.NewRat(115, 100)
)

// CreateLiquidationAuction builds the bid (liabilities to repay) and lot
// (collateral to sell) schedule for a single user-liquidation auction,
// sized so the user's post-fill health factor would land at the bottom of
// the incentive band. Returns ErrInvalidLiquidation if the user is not
// currently unhealthy.
func CreateLiquidationAuction(now uint64, h *PositionHealth, u *User, reserves map[uint32]*Reserve) (*AuctionData, error) {
	if !IsLiquidatable(h) {
		return nil, ErrInvalidLiquidation
	}

	// Liquidate proportionally across every held liability/collateral
	// reserve so a single-asset book empties in one auction, sized to the
	// minimum incentive (1.03); later fill-time block modifiers are what
	// actually move the effective price toward the 1.15 ceiling for later
	// fillers.
	numerator := new(big.Rat).Mul(new(big.Rat).SetInt(h.LiabilityBase), minPostLiquidationHF)
	target := new(big.Rat).Sub(numerator, new(big.Rat).SetInt(h.CollateralBase))
	denom := new(big.Rat).Sub(minPostLiquidationHF, oneRat)
	if denom.Sign() <= 0 {
		denom = big.NewRat(1, 100)
	}
	baseToTransfer := new(big.Rat).Quo(target, denom)
	if baseToTransfer.Sign() < 0 {
		baseToTransfer = new(big.Rat)
	}

	totalLiabilityBase := new(big.Rat).SetInt(h.LiabilityBase)
	totalCollateralBase := new(big.Rat).SetInt(h.CollateralBase)

	bid := make(map[Address]*big.Int)
	for idx, dTokens := range u.Positions.Liabilities {
		if dTokens.Sign() == 0 {
			continue
		}
		r := reserves[idx]
		share := reserveShareOfBase(r, dTokens, true)
		if totalLiabilityBase.Sign() == 0 {
			continue
		}
		portion := new(big.Rat).Quo(new(big.Rat).Mul(baseToTransfer, share), totalLiabilityBase)
		amt := ratToScaledFloor(portion, big.NewInt(1))
		if amt.Sign() > 0 {
			if amt.Cmp(dTokens) > 0 {
				amt = cloneBig(dTokens)
			}
			bid[r.Data.Asset] = amt
		}
	}

	lot := make(map[Address]*big.Int)
	for idx, bTokens := range u.Positions.Collateral {
		if bTokens.Sign() == 0 {
			continue
		}
		r := reserves[idx]
		share := reserveShareOfBase(r, bTokens, false)
		if totalCollateralBase.Sign() == 0 {
			continue
		}
		portion := new(big.Rat).Quo(new(big.Rat).Mul(baseToTransfer, share), totalCollateralBase)
		amt := ratToScaledFloor(portion, big.NewInt(1))
		if amt.Sign() > 0 {
			if amt.Cmp(bTokens) > 0 {
				amt = cloneBig(bTokens)
			}
			lot[r.Data.Asset] = amt
		}
	}

	return &AuctionData{Bid: bid, Lot: lot, Block: now + 1}, nil
}

func reserveShareOfBase(r *Reserve, tokens *big.Int, liability bool) *big.Rat {
	var units *big.Int
	if liability {
		units = r.AssetUnitsLiability(tokens)
	} else {
		units = r.AssetUnitsCollateral(tokens)
	}
	return new(big.Rat).SetInt(units)
}

// badDebtSocializationThreshold is the pool-backstop threshold (1e7 scale,
// per calcPoolBackstopThreshold) that ShouldSocializeBadDebt compares
// against, taken from bad_debt_auction.rs's fill_bad_debt_auction ("~5%" of
// the threshold product-constant). Kept as the exact literal the original
// uses. The bad-debt fill path (fillBadDebtAuction) calls neither
// ShouldSocializeBadDebt nor SocializeLoss: debt left on the backstop after
// a fill stays on the backstop.
var badDebtSocializationThreshold = big.NewInt(3)

// CreateBadDebtAuction builds the bid/lot schedule for clearing the
// backstop's residual debt after a liquidated user's collateral has been
// exhausted and the shortfall assigned to the backstop: bid = the
// backstop's d-token liabilities (at face value); lot = backstop-LP-token
// credit sized to 1.4x the oracle-priced debt value, capped at the
// backstop's actual token balance. Grounded on
// original_source/pool/src/auctions/bad_debt_auction.rs's
// create_bad_debt_auction_data, simplified to price the backstop token
// directly through the Oracle collaborator rather than re-deriving it from
// the Comet 80/20 USDC/BLND pool composition (this module's Oracle can
// price any asset address, so that indirection has no purpose here).
func CreateBadDebtAuction(now uint64, u *User, reserves map[uint32]*Reserve, oracle Oracle, oracleMaxAge uint64, backstopToken Address, backstopTokenScalar *big.Int, backstopTokensBalance *big.Int) (*AuctionData, error) {
	bid := make(map[Address]*big.Int)
	debtValue := big.NewInt(0)
	for idx, dTokens := range u.Positions.Liabilities {
		if dTokens.Sign() == 0 {
			continue
		}
		r, ok := reserves[idx]
		if !ok {
			return nil, ErrReserveNotFound
		}
		price, ok := oracle.GetPrice(r.Data.Asset, now)
		if !ok {
			return nil, ErrOracleStale
		}
		assetUnits := r.AssetUnitsLiability(dTokens)
		debtValue = new(big.Int).Add(debtValue, FloorMul(assetUnits, price, r.Config.Scalar()))
		bid[r.Data.Asset] = cloneBig(dTokens)
	}
	_ = oracleMaxAge // staleness is the oracle collaborator's responsibility
	if len(bid) == 0 || debtValue.Sign() == 0 {
		return nil, ErrInvalidLiquidation
	}

	backstopPrice, ok := oracle.GetPrice(backstopToken, now)
	if !ok {
		return nil, ErrOracleStale
	}
	incentiveValue := FloorMul(debtValue, auctionIncentiveScalar, PriceScalar)
	lotAmount := FloorDiv(incentiveValue, backstopTokenScalar, backstopPrice)
	if lotAmount.Cmp(backstopTokensBalance) > 0 {
		lotAmount = cloneBig(backstopTokensBalance)
	}
	lot := map[Address]*big.Int{}
	if lotAmount.Sign() > 0 {
		lot[backstopToken] = lotAmount
	}
	return &AuctionData{Bid: bid, Lot: lot, Block: now + 1}, nil
}

// ShouldSocializeBadDebt reports whether the backstop's pool-threshold
// product-constant (calcPoolBackstopThreshold) has fallen far enough that
// bad debt remaining on the backstop after a fill should be socialized
// across suppliers rather than left for another auction filler.
func ShouldSocializeBadDebt(blnd, usdc *big.Int) bool {
	threshold := calcPoolBackstopThreshold(blnd, usdc)
	return threshold.Cmp(badDebtSocializationThreshold) < 0
}

// SocializeLoss spreads an unrecovered debt amount across a reserve's
// b-token holders by reducing b_rate, per spec §4.5's bad-debt fallback:
// new_b_rate = b_rate - floor(lossUnderlying * 1e9 / b_supply).
func (r *Reserve) SocializeLoss(lossUnderlying *big.Int) {
	if r.Data.BSupply.Sign() == 0 {
		return
	}
	deltaBRate := FloorDiv(lossUnderlying, RateScalar, r.Data.BSupply)
	newRate := new(big.Int).Sub(r.Data.BRate, deltaBRate)
	if newRate.Sign() < 0 {
		newRate = big.NewInt(0)
	}
	r.Data.BRate = newRate
}

// CreateInterestAuction builds the bid/lot schedule for sweeping every
// reserve's accrued backstop_credit: lot = the unswept credit per reserve;
// bid (in USDC) = 1.4x the oracle-priced total interest value, letting any
// filler convert idle interest into USDC. Grounded on
// original_source/pool/src/auctions/backstop_interest_auction.rs.
func CreateInterestAuction(now uint64, reserves map[uint32]*Reserve, oracle Oracle, oracleMaxAge uint64, usdcToken Address, usdcScalar *big.Int) (*AuctionData, error) {
	lot := make(map[Address]*big.Int)
	totalInterestValue := big.NewInt(0)
	for _, r := range reserves {
		if r.Data.BackstopCredit.Sign() <= 0 {
			continue
		}
		price, ok := oracle.GetPrice(r.Data.Asset, now)
		if !ok {
			return nil, ErrOracleStale
		}
		lot[r.Data.Asset] = cloneBig(r.Data.BackstopCredit)
		totalInterestValue = new(big.Int).Add(totalInterestValue, FloorMul(r.Data.BackstopCredit, price, r.Config.Scalar()))
	}
	_ = oracleMaxAge // staleness is the oracle collaborator's responsibility
	if len(lot) == 0 {
		return nil, ErrInvalidLiquidation
	}

	usdcPrice, ok := oracle.GetPrice(usdcToken, now)
	if !ok {
		return nil, ErrOracleStale
	}
	incentiveValue := FloorMul(totalInterestValue, auctionIncentiveScalar, PriceScalar)
	bidAmount := FloorDiv(incentiveValue, usdcScalar, usdcPrice)
	bid := map[Address]*big.Int{usdcToken: bidAmount}
	return &AuctionData{Bid: bid, Lot: lot, Block: now + 1}, nil
}
