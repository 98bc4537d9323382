package pool

import "math/big"

// User position mutators. Every mutation routes through these methods (never
// through Positions' maps directly) so max_positions enforcement and
// emissions-index reconciliation (spec §4.2) stay centralized, mirroring the
// way native/lending/engine.go funnels every balance change through
// syncDebt/accrueInterest before touching UserAccount fields.

// reconcileEmissions brings a user's snapshot for tokenID up to the
// reserve-emissions-data index before a position change. Must be called
// with the *pre*-mutation share balance, since
// accrual is owed on the balance held over the preceding interval.
func (u *User) reconcileEmissions(tokenID uint64, sharesBeforeChange *big.Int, data *ReserveEmissionsData) {
	snap, ok := u.Emissions[tokenID]
	if !ok {
		snap = &UserEmissionData{Index: cloneBig(data.Index), Accrued: big.NewInt(0), Initialized: true}
		u.Emissions[tokenID] = snap
		return
	}
	if !snap.Initialized {
		snap.Index = cloneBig(data.Index)
		snap.Accrued = zeroIfNil(snap.Accrued)
		snap.Initialized = true
		return
	}
	delta := new(big.Int).Sub(data.Index, snap.Index)
	if delta.Sign() > 0 && sharesBeforeChange.Sign() > 0 {
		owed := FloorMul(sharesBeforeChange, delta, EmissionsEpsScalar)
		snap.Accrued = new(big.Int).Add(zeroIfNil(snap.Accrued), owed)
	}
	snap.Index = cloneBig(data.Index)
}

func mapGet(m map[uint32]*big.Int, idx uint32) *big.Int {
	if v, ok := m[idx]; ok {
		return v
	}
	return big.NewInt(0)
}

func mapSet(m map[uint32]*big.Int, idx uint32, v *big.Int) {
	if v.Sign() == 0 {
		delete(m, idx)
		return
	}
	m[idx] = v
}

// AddLiabilities increases a user's d-token debt for reserveIndex, emissions-
// reconciling against the debt-role token_id first.
func (u *User) AddLiabilities(reserveIndex uint32, dTokens *big.Int, emissions *ReserveEmissionsData) {
	tokenID := TokenID(reserveIndex, RoleDebt)
	before := mapGet(u.Positions.Liabilities, reserveIndex)
	u.reconcileEmissions(tokenID, before, emissions)
	mapSet(u.Positions.Liabilities, reserveIndex, new(big.Int).Add(before, dTokens))
}

// RemoveLiabilities decreases a user's d-token debt. Returns ErrNegativeAmount
// if dTokens exceeds the held balance.
func (u *User) RemoveLiabilities(reserveIndex uint32, dTokens *big.Int, emissions *ReserveEmissionsData) error {
	tokenID := TokenID(reserveIndex, RoleDebt)
	before := mapGet(u.Positions.Liabilities, reserveIndex)
	remainder := new(big.Int).Sub(before, dTokens)
	if remainder.Sign() < 0 {
		return ErrNegativeAmount
	}
	u.reconcileEmissions(tokenID, before, emissions)
	mapSet(u.Positions.Liabilities, reserveIndex, remainder)
	return nil
}

// AddCollateral increases a user's pledged b-token collateral for
// reserveIndex, emissions-reconciling against the merged supply-role token_id.
func (u *User) AddCollateral(reserveIndex uint32, bTokens *big.Int, emissions *ReserveEmissionsData) {
	tokenID := TokenID(reserveIndex, RoleSupply)
	before := new(big.Int).Add(mapGet(u.Positions.Collateral, reserveIndex), mapGet(u.Positions.Supply, reserveIndex))
	u.reconcileEmissions(tokenID, before, emissions)
	mapSet(u.Positions.Collateral, reserveIndex, new(big.Int).Add(mapGet(u.Positions.Collateral, reserveIndex), bTokens))
}

// RemoveCollateral decreases pledged collateral.
func (u *User) RemoveCollateral(reserveIndex uint32, bTokens *big.Int, emissions *ReserveEmissionsData) error {
	tokenID := TokenID(reserveIndex, RoleSupply)
	beforeCollateral := mapGet(u.Positions.Collateral, reserveIndex)
	remainder := new(big.Int).Sub(beforeCollateral, bTokens)
	if remainder.Sign() < 0 {
		return ErrNegativeAmount
	}
	before := new(big.Int).Add(beforeCollateral, mapGet(u.Positions.Supply, reserveIndex))
	u.reconcileEmissions(tokenID, before, emissions)
	mapSet(u.Positions.Collateral, reserveIndex, remainder)
	return nil
}

// AddSupply increases a user's un-pledged b-token balance.
func (u *User) AddSupply(reserveIndex uint32, bTokens *big.Int, emissions *ReserveEmissionsData) {
	tokenID := TokenID(reserveIndex, RoleSupply)
	before := new(big.Int).Add(mapGet(u.Positions.Collateral, reserveIndex), mapGet(u.Positions.Supply, reserveIndex))
	u.reconcileEmissions(tokenID, before, emissions)
	mapSet(u.Positions.Supply, reserveIndex, new(big.Int).Add(mapGet(u.Positions.Supply, reserveIndex), bTokens))
}

// RemoveSupply decreases a user's un-pledged b-token balance.
func (u *User) RemoveSupply(reserveIndex uint32, bTokens *big.Int, emissions *ReserveEmissionsData) error {
	tokenID := TokenID(reserveIndex, RoleSupply)
	beforeSupply := mapGet(u.Positions.Supply, reserveIndex)
	remainder := new(big.Int).Sub(beforeSupply, bTokens)
	if remainder.Sign() < 0 {
		return ErrNegativeAmount
	}
	before := new(big.Int).Add(mapGet(u.Positions.Collateral, reserveIndex), beforeSupply)
	u.reconcileEmissions(tokenID, before, emissions)
	mapSet(u.Positions.Supply, reserveIndex, remainder)
	return nil
}

// CheckMaxPositions enforces spec §4.2's cap on distinct (reserve, role)
// entries after a mutation that can only grow the count (opening a new
// position kind).
func (u *User) CheckMaxPositions(max uint32) error {
	if max > 0 && uint32(u.Positions.Count()) > max {
		return ErrTooManyPositions
	}
	return nil
}

// ClaimEmissions zeroes and returns the accrued-but-unclaimed balance across
// the given token ids, reconciling each against its current index and the
// user's current (unchanged) share balance first.
func (u *User) ClaimEmissions(tokenIDs []uint64, emissionsData map[uint64]*ReserveEmissionsData) *big.Int {
	total := big.NewInt(0)
	for _, tokenID := range tokenIDs {
		data, ok := emissionsData[tokenID]
		if !ok {
			continue
		}
		idx, role := SplitTokenID(tokenID)
		var shares *big.Int
		switch role {
		case RoleDebt:
			shares = mapGet(u.Positions.Liabilities, idx)
		default:
			shares = new(big.Int).Add(mapGet(u.Positions.Collateral, idx), mapGet(u.Positions.Supply, idx))
		}
		u.reconcileEmissions(tokenID, shares, data)

		snap, ok := u.Emissions[tokenID]
		if !ok {
			continue
		}
		total = new(big.Int).Add(total, zeroIfNil(snap.Accrued))
		snap.Accrued = big.NewInt(0)
	}
	return total
}
