package pool

import "math/big"

// Submit pipeline (spec §4.3): an ordered list of Requests is applied
// sequentially against a shared reserve cache, accumulating net transfer
// obligations into an Actions rather than mutating any token balance
// directly — token movement is the outer harness's job (spec §1/§6).
// Grounded on native/lending/engine.go's single-entry Engine methods
// (Supply/Withdraw/Borrow/Repay/Liquidate), generalized from one call per
// action into a batched, order-sensitive list with a single end-of-batch
// health check.

// InterestAuctionSubject is the sentinel key interest auctions are stored
// under in SubmitInput.Auctions, since they aren't tied to a single user.
var InterestAuctionSubject = Address{}

// SubmitInput bundles everything Submit needs: the acting user's own
// positions, every other user referenced by a fill/delete request, the
// reserve cache, the asset->reserve-index lookup, emissions bookkeeping,
// and any in-flight auctions keyed by their subject address.
type SubmitInput struct {
	Now           uint64
	Config        *Config
	User          *User
	Users         map[Address]*User
	Reserves      map[uint32]*Reserve
	AssetIndex    map[Address]uint32
	EmissionsData map[uint64]*ReserveEmissionsData
	Auctions      map[Address]*AuctionData
	Oracle        Oracle
	OracleMaxAge  uint64
}

func (in *SubmitInput) emissionsFor(idx uint32, role Role) *ReserveEmissionsData {
	tokenID := TokenID(idx, role)
	d, ok := in.EmissionsData[tokenID]
	if !ok {
		d = &ReserveEmissionsData{Index: big.NewInt(0)}
		in.EmissionsData[tokenID] = d
	}
	return d
}

func (in *SubmitInput) reserveFor(asset Address) (uint32, *Reserve, error) {
	idx, ok := in.AssetIndex[asset]
	if !ok {
		return 0, nil, ErrReserveNotFound
	}
	r, ok := in.Reserves[idx]
	if !ok {
		return 0, nil, ErrReserveNotFound
	}
	r.Accrue(in.Now, in.Config.BstopRateBps)
	return idx, r, nil
}

// Submit applies requests in order and returns the aggregate net transfer
// actions together with the acting user's post-batch health (nil if no
// request in the batch required one).
func Submit(in *SubmitInput, requests []Request) (*Actions, *PositionHealth, error) {
	actions := newActions()
	needsHealthCheck := false

	for _, req := range requests {
		if err := CheckStatusAllows(in.Config.Status, req.Kind); err != nil {
			return nil, nil, err
		}
		if req.Amount != nil && req.Amount.Sign() < 0 {
			return nil, nil, ErrNegativeAmount
		}

		switch req.Kind {
		case RequestSupply:
			idx, r, err := in.reserveFor(req.Address)
			if err != nil {
				return nil, nil, err
			}
			bTokens := r.UnderlyingToBTokensDeposit(req.Amount)
			in.User.AddSupply(idx, bTokens, in.emissionsFor(idx, RoleSupply))
			r.Data.BSupply = new(big.Int).Add(r.Data.BSupply, bTokens)
			actions.addSpenderOwes(req.Address, req.Amount)

		case RequestWithdraw:
			idx, r, err := in.reserveFor(req.Address)
			if err != nil {
				return nil, nil, err
			}
			bTokens, underlyingOut, err := withdrawAmount(mapGet(in.User.Positions.Supply, idx), req.Amount, r, false)
			if err != nil {
				return nil, nil, err
			}
			if err := in.User.RemoveSupply(idx, bTokens, in.emissionsFor(idx, RoleSupply)); err != nil {
				return nil, nil, err
			}
			r.Data.BSupply = new(big.Int).Sub(r.Data.BSupply, bTokens)
			actions.addPoolOwes(req.Address, underlyingOut)

		case RequestSupplyCollateral:
			idx, r, err := in.reserveFor(req.Address)
			if err != nil {
				return nil, nil, err
			}
			bTokens := r.UnderlyingToBTokensDeposit(req.Amount)
			in.User.AddCollateral(idx, bTokens, in.emissionsFor(idx, RoleSupply))
			r.Data.BSupply = new(big.Int).Add(r.Data.BSupply, bTokens)
			actions.addSpenderOwes(req.Address, req.Amount)

		case RequestWithdrawCollateral:
			idx, r, err := in.reserveFor(req.Address)
			if err != nil {
				return nil, nil, err
			}
			bTokens, underlyingOut, err := withdrawAmount(mapGet(in.User.Positions.Collateral, idx), req.Amount, r, false)
			if err != nil {
				return nil, nil, err
			}
			if err := in.User.RemoveCollateral(idx, bTokens, in.emissionsFor(idx, RoleSupply)); err != nil {
				return nil, nil, err
			}
			r.Data.BSupply = new(big.Int).Sub(r.Data.BSupply, bTokens)
			actions.addPoolOwes(req.Address, underlyingOut)
			needsHealthCheck = true

		case RequestBorrow:
			idx, r, err := in.reserveFor(req.Address)
			if err != nil {
				return nil, nil, err
			}
			dTokens := r.UnderlyingToDTokensBorrow(req.Amount)
			r.Data.DSupply = new(big.Int).Add(r.Data.DSupply, dTokens)
			if err := r.CheckUtilizationCeiling(); err != nil {
				return nil, nil, err
			}
			in.User.AddLiabilities(idx, dTokens, in.emissionsFor(idx, RoleDebt))
			actions.addPoolOwes(req.Address, req.Amount)
			needsHealthCheck = true

		case RequestRepay:
			idx, r, err := in.reserveFor(req.Address)
			if err != nil {
				return nil, nil, err
			}
			dTokens, underlyingIn, err := withdrawAmount(mapGet(in.User.Positions.Liabilities, idx), req.Amount, r, true)
			if err != nil {
				return nil, nil, err
			}
			if err := in.User.RemoveLiabilities(idx, dTokens, in.emissionsFor(idx, RoleDebt)); err != nil {
				return nil, nil, err
			}
			r.Data.DSupply = new(big.Int).Sub(r.Data.DSupply, dTokens)
			actions.addSpenderOwes(req.Address, underlyingIn)

		case RequestFillUserLiquidation:
			if err := in.fillUserLiquidation(req, actions); err != nil {
				return nil, nil, err
			}
			needsHealthCheck = true

		case RequestFillBadDebtAuction:
			if err := in.fillBadDebtAuction(req, actions); err != nil {
				return nil, nil, err
			}
			needsHealthCheck = true

		case RequestFillInterestAuction:
			if err := in.fillInterestAuction(req, actions); err != nil {
				return nil, nil, err
			}

		case RequestDeleteLiquidationAuction:
			if err := in.deleteLiquidationAuction(req); err != nil {
				return nil, nil, err
			}

		default:
			return nil, nil, ErrBadRequest
		}
	}

	if err := in.User.CheckMaxPositions(in.Config.MaxPositions); err != nil {
		return nil, nil, err
	}

	var health *PositionHealth
	if needsHealthCheck {
		h, err := ComputeHealth(in.User, in.Reserves, in.Oracle, in.Now, in.OracleMaxAge)
		if err != nil {
			return nil, nil, err
		}
		if err := CheckBorrowAllowed(h); err != nil {
			return nil, nil, err
		}
		health = h
	}

	return actions, health, nil
}

// withdrawAmount resolves a request expressed in underlying units against a
// held share balance, choosing the full-balance conversion (floor for
// withdraw, ceil for repay) when the request would otherwise exceed the
// balance, and the partial conversion (ceil for withdraw, floor for repay)
// otherwise. forRepay selects the debt-side conversions.
func withdrawAmount(heldShares, requestedUnderlying *big.Int, r *Reserve, forRepay bool) (shares, underlying *big.Int, err error) {
	if heldShares.Sign() == 0 {
		return nil, nil, ErrInsufficientBalance
	}
	var maxUnderlying *big.Int
	if forRepay {
		maxUnderlying = r.DTokensToUnderlyingRepayFull(heldShares)
	} else {
		maxUnderlying = r.BTokensToUnderlyingWithdrawFull(heldShares)
	}
	if requestedUnderlying.Cmp(maxUnderlying) >= 0 {
		return heldShares, maxUnderlying, nil
	}
	if forRepay {
		return r.UnderlyingToDTokensRepayPartial(requestedUnderlying), requestedUnderlying, nil
	}
	return r.UnderlyingToBTokensWithdrawPartial(requestedUnderlying), requestedUnderlying, nil
}

func (in *SubmitInput) fillUserLiquidation(req Request, actions *Actions) error {
	auction, ok := in.Auctions[req.Address]
	if !ok {
		return ErrAuctionNotFound
	}
	subject, ok := in.Users[req.Address]
	if !ok {
		return ErrBadRequest
	}
	bidOwed, lotOwed, err := auction.Fill(in.Now, req.Amount.Uint64())
	if err != nil {
		return err
	}
	for asset, amt := range bidOwed {
		idx, r, err := in.reserveFor(asset)
		if err != nil {
			return err
		}
		dTokens := r.UnderlyingToDTokensRepayPartial(amt)
		if err := subject.RemoveLiabilities(idx, dTokens, in.emissionsFor(idx, RoleDebt)); err != nil {
			return err
		}
		r.Data.DSupply = new(big.Int).Sub(r.Data.DSupply, dTokens)
		actions.addSpenderOwes(asset, amt)
	}
	for asset, amt := range lotOwed {
		idx, r, err := in.reserveFor(asset)
		if err != nil {
			return err
		}
		bTokens := r.UnderlyingToBTokensWithdrawPartial(amt)
		if err := subject.RemoveCollateral(idx, bTokens, in.emissionsFor(idx, RoleSupply)); err != nil {
			return err
		}
		r.Data.BSupply = new(big.Int).Sub(r.Data.BSupply, bTokens)
		actions.addPoolOwes(asset, amt)
	}
	if auction.IsEmpty() {
		delete(in.Auctions, req.Address)
	}
	return nil
}

func (in *SubmitInput) fillBadDebtAuction(req Request, actions *Actions) error {
	auction, ok := in.Auctions[req.Address]
	if !ok {
		return ErrAuctionNotFound
	}
	subject, ok := in.Users[req.Address]
	if !ok {
		return ErrBadRequest
	}
	bidOwed, lotOwed, err := auction.Fill(in.Now, req.Amount.Uint64())
	if err != nil {
		return err
	}
	for asset, amt := range bidOwed {
		idx, r, err := in.reserveFor(asset)
		if err != nil {
			return err
		}
		dTokens := r.UnderlyingToDTokensRepayPartial(amt)
		if err := subject.RemoveLiabilities(idx, dTokens, in.emissionsFor(idx, RoleDebt)); err != nil {
			return err
		}
		r.Data.DSupply = new(big.Int).Sub(r.Data.DSupply, dTokens)
		actions.addSpenderOwes(asset, amt)
	}
	for _, amt := range lotOwed {
		actions.addPoolOwes(in.Config.BackstopToken, amt)
	}
	if auction.IsEmpty() {
		delete(in.Auctions, req.Address)
	}
	return nil
}

func (in *SubmitInput) fillInterestAuction(req Request, actions *Actions) error {
	auction, ok := in.Auctions[InterestAuctionSubject]
	if !ok {
		return ErrAuctionNotFound
	}
	bidOwed, lotOwed, err := auction.Fill(in.Now, req.Amount.Uint64())
	if err != nil {
		return err
	}
	for asset, amt := range bidOwed {
		actions.addSpenderOwes(asset, amt)
	}
	for asset, amt := range lotOwed {
		idx, r, err := in.reserveFor(asset)
		if err != nil {
			return err
		}
		r.Data.BackstopCredit = new(big.Int).Sub(r.Data.BackstopCredit, amt)
		actions.addPoolOwes(asset, amt)
	}
	if auction.IsEmpty() {
		delete(in.Auctions, InterestAuctionSubject)
	}
	return nil
}

func (in *SubmitInput) deleteLiquidationAuction(req Request) error {
	subject, ok := in.Users[req.Address]
	if !ok {
		return ErrBadRequest
	}
	h, err := ComputeHealth(subject, in.Reserves, in.Oracle, in.Now, in.OracleMaxAge)
	if err != nil {
		return err
	}
	if IsLiquidatable(h) {
		return ErrInvalidLiquidation
	}
	delete(in.Auctions, req.Address)
	return nil
}
