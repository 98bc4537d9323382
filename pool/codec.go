package pool

import "math/big"

// RLP cannot encode Go maps directly, so every in-memory type that carries
// one (Positions, User, AuctionData) gets a slice-based wire form here for
// storage.Store persistence. ReserveConfig, ReserveData, Config, and the
// emissions structs have no map fields and are stored as-is.

type indexAmount struct {
	Index  uint32
	Amount *big.Int
}

type positionsWire struct {
	Liabilities []indexAmount
	Collateral  []indexAmount
	Supply      []indexAmount
}

func toIndexAmounts(m map[uint32]*big.Int) []indexAmount {
	out := make([]indexAmount, 0, len(m))
	for idx, amt := range m {
		out = append(out, indexAmount{Index: idx, Amount: amt})
	}
	return out
}

func fromIndexAmounts(s []indexAmount) map[uint32]*big.Int {
	out := make(map[uint32]*big.Int, len(s))
	for _, e := range s {
		out[e.Index] = e.Amount
	}
	return out
}

func (p *Positions) toWire() positionsWire {
	return positionsWire{
		Liabilities: toIndexAmounts(p.Liabilities),
		Collateral:  toIndexAmounts(p.Collateral),
		Supply:      toIndexAmounts(p.Supply),
	}
}

func (w positionsWire) toPositions() *Positions {
	return &Positions{
		Liabilities: fromIndexAmounts(w.Liabilities),
		Collateral:  fromIndexAmounts(w.Collateral),
		Supply:      fromIndexAmounts(w.Supply),
	}
}

type userEmissionEntry struct {
	TokenID     uint64
	Index       *big.Int
	Accrued     *big.Int
	Initialized bool
}

type userWire struct {
	Address   Address
	Positions positionsWire
	Emissions []userEmissionEntry
}

func (u *User) toWire() userWire {
	entries := make([]userEmissionEntry, 0, len(u.Emissions))
	for tokenID, d := range u.Emissions {
		entries = append(entries, userEmissionEntry{TokenID: tokenID, Index: d.Index, Accrued: d.Accrued, Initialized: d.Initialized})
	}
	return userWire{Address: u.Address, Positions: u.Positions.toWire(), Emissions: entries}
}

func (w userWire) toUser() *User {
	u := &User{Address: w.Address, Positions: w.Positions.toPositions(), Emissions: make(map[uint64]*UserEmissionData, len(w.Emissions))}
	for _, e := range w.Emissions {
		u.Emissions[e.TokenID] = &UserEmissionData{Index: e.Index, Accrued: e.Accrued, Initialized: e.Initialized}
	}
	return u
}

type assetAmount struct {
	Asset  Address
	Amount *big.Int
}

type auctionWire struct {
	Bid   []assetAmount
	Lot   []assetAmount
	Block uint64
}

func toAssetAmounts(m map[Address]*big.Int) []assetAmount {
	out := make([]assetAmount, 0, len(m))
	for asset, amt := range m {
		out = append(out, assetAmount{Asset: asset, Amount: amt})
	}
	return out
}

func fromAssetAmounts(s []assetAmount) map[Address]*big.Int {
	out := make(map[Address]*big.Int, len(s))
	for _, e := range s {
		out[e.Asset] = e.Amount
	}
	return out
}

func (a *AuctionData) toWire() auctionWire {
	return auctionWire{Bid: toAssetAmounts(a.Bid), Lot: toAssetAmounts(a.Lot), Block: a.Block}
}

func (w auctionWire) toAuction() *AuctionData {
	return &AuctionData{Bid: fromAssetAmounts(w.Bid), Lot: fromAssetAmounts(w.Lot), Block: w.Block}
}
