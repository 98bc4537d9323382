package pool

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math/big"

	"github.com/nhbchain/lendpool/storage"
)

// Pool is the orchestrator wiring persisted reserve/user/auction state to
// the stateless math in the rest of this package (spec §6's external
// entrypoints). Grounded on native/lending/engine.go's Engine, which plays
// the same role against the teacher's state.Manager; here the collaborator
// is the generic tiered storage.Store built for this module instead of the
// teacher's merkle-trie state manager, since pool accounting has no need
// for trie proofs.
type Pool struct {
	Address  Address
	Config   Config
	store    *storage.Store
	Oracle   Oracle
	Backstop Backstop
	Emitter  Emitter
	Logger   *slog.Logger
}

func NewPool(addr Address, cfg Config, store *storage.Store, oracle Oracle, backstop Backstop, emitter Emitter, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pool{Address: addr, Config: cfg, store: store, Oracle: oracle, Backstop: backstop, Emitter: emitter, Logger: logger}
}

// eventKindForRequest maps a pipeline request kind to its spec §6 event
// topic name.
func eventKindForRequest(kind RequestKind) string {
	switch kind {
	case RequestSupply:
		return EventSupply
	case RequestWithdraw:
		return EventWithdraw
	case RequestSupplyCollateral:
		return EventSupplyCollateral
	case RequestWithdrawCollateral:
		return EventWithdrawCollateral
	case RequestBorrow:
		return EventBorrow
	case RequestRepay:
		return EventRepay
	case RequestFillUserLiquidation, RequestFillBadDebtAuction, RequestFillInterestAuction:
		return EventFillAuction
	case RequestDeleteLiquidationAuction:
		return EventDeleteLiquidationAuction
	default:
		return "unknown"
	}
}

func indexKey(idx uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, idx)
	return b
}

func tokenIDKey(tokenID uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, tokenID)
	return b
}

const (
	nsReserveConfig   = "reserve_config"
	nsReserveData     = "reserve_data"
	nsUser            = "user"
	nsAuction         = "auction"
	nsEmissionsConfig = "emissions_config"
	nsEmissionsData   = "emissions_data"
)

func (p *Pool) requireAdmin(caller Address) error {
	if caller != p.Config.Admin {
		return ErrNotAuthorized
	}
	return nil
}

// InitReserve onboards a new reserve at the next free index (admin-only).
func (p *Pool) InitReserve(caller Address, asset Address, cfg ReserveConfig) (uint32, error) {
	if err := p.requireAdmin(caller); err != nil {
		return 0, err
	}
	for idx := uint32(0); idx < MaxReserves; idx++ {
		var existing ReserveConfig
		ok, err := p.store.Get(storage.Instance, nsReserveConfig, indexKey(idx), &existing)
		if err != nil {
			return 0, err
		}
		if ok {
			continue
		}
		cfg.Index = idx
		if err := p.store.Put(storage.Instance, nsReserveConfig, indexKey(idx), &cfg); err != nil {
			return 0, err
		}
		data := &ReserveData{Asset: asset}
		data.EnsureDefaults()
		if err := p.store.Put(storage.Instance, nsReserveData, indexKey(idx), data); err != nil {
			return 0, err
		}
		return idx, nil
	}
	return 0, ErrReserveAlreadyExists
}

// UpdateReserve replaces an existing reserve's risk/rate parameters
// (admin-only). The reserve's accrual state is left untouched; the new
// curve applies starting from the next Accrue call.
func (p *Pool) UpdateReserve(caller Address, idx uint32, cfg ReserveConfig) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	var existing ReserveConfig
	ok, err := p.store.Get(storage.Instance, nsReserveConfig, indexKey(idx), &existing)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReserveNotFound
	}
	cfg.Index = idx
	return p.store.Put(storage.Instance, nsReserveConfig, indexKey(idx), &cfg)
}

func (p *Pool) GetReserveConfig(idx uint32) (ReserveConfig, error) {
	var cfg ReserveConfig
	ok, err := p.store.Get(storage.Instance, nsReserveConfig, indexKey(idx), &cfg)
	if err != nil {
		return ReserveConfig{}, err
	}
	if !ok {
		return ReserveConfig{}, ErrReserveNotFound
	}
	return cfg, nil
}

func (p *Pool) loadReserve(idx uint32) (*Reserve, error) {
	cfg, err := p.GetReserveConfig(idx)
	if err != nil {
		return nil, err
	}
	var data ReserveData
	ok, err := p.store.Get(storage.Persistent, nsReserveData, indexKey(idx), &data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReserveNotFound
	}
	data.EnsureDefaults()
	return &Reserve{Config: cfg, Data: &data}, nil
}

func (p *Pool) saveReserve(r *Reserve) error {
	return p.store.Put(storage.Persistent, nsReserveData, indexKey(r.Config.Index), r.Data)
}

// loadAllReserves scans every configured reserve index and returns both the
// index-keyed cache and the asset->index lookup Submit needs.
func (p *Pool) loadAllReserves() (map[uint32]*Reserve, map[Address]uint32, error) {
	reserves := make(map[uint32]*Reserve)
	assetIndex := make(map[Address]uint32)
	for idx := uint32(0); idx < MaxReserves; idx++ {
		var cfg ReserveConfig
		ok, err := p.store.Get(storage.Instance, nsReserveConfig, indexKey(idx), &cfg)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		r, err := p.loadReserve(idx)
		if err != nil {
			return nil, nil, err
		}
		reserves[idx] = r
		assetIndex[r.Data.Asset] = idx
	}
	return reserves, assetIndex, nil
}

func (p *Pool) loadUser(addr Address) (*User, error) {
	var w userWire
	ok, err := p.store.Get(storage.Persistent, nsUser, addr.Bytes(), &w)
	if err != nil {
		return nil, err
	}
	if !ok {
		return newUser(addr), nil
	}
	return w.toUser(), nil
}

func (p *Pool) saveUser(u *User) error {
	return p.store.Put(storage.Persistent, nsUser, u.Address.Bytes(), u.toWire())
}

func (p *Pool) loadAuction(subject Address) (*AuctionData, bool, error) {
	var w auctionWire
	ok, err := p.store.Get(storage.Temporary, nsAuction, subject.Bytes(), &w)
	if err != nil || !ok {
		return nil, ok, err
	}
	return w.toAuction(), true, nil
}

func (p *Pool) saveAuction(subject Address, a *AuctionData) error {
	if a.IsEmpty() {
		return p.store.Delete(nsAuction, subject.Bytes())
	}
	if err := p.store.Put(storage.Temporary, nsAuction, subject.Bytes(), a.toWire()); err != nil {
		return err
	}
	return p.store.Extend(storage.Temporary, nsAuction, subject.Bytes())
}

// GetAuction returns the in-flight auction keyed by subject, if any.
func (p *Pool) GetAuction(subject Address) (*AuctionData, error) {
	a, ok, err := p.loadAuction(subject)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuctionNotFound
	}
	return a, nil
}

// GetPositions returns a user's current positions.
func (p *Pool) GetPositions(addr Address) (*Positions, error) {
	u, err := p.loadUser(addr)
	if err != nil {
		return nil, err
	}
	return u.Positions, nil
}

// subjectsOf collects every user address referenced by fill/delete requests
// so Submit can load them alongside the caller.
func subjectsOf(requests []Request) []Address {
	var out []Address
	for _, req := range requests {
		switch req.Kind {
		case RequestFillUserLiquidation, RequestFillBadDebtAuction, RequestDeleteLiquidationAuction:
			out = append(out, req.Address)
		}
	}
	return out
}

// Submit loads every piece of state requests touch, runs the pipeline, and
// persists the result transactionally (nothing is written if an error is
// returned).
func (p *Pool) Submit(now uint64, caller Address, requests []Request, oracleMaxAge uint64) (*Actions, *PositionHealth, error) {
	reserves, assetIndex, err := p.loadAllReserves()
	if err != nil {
		return nil, nil, err
	}

	callerUser, err := p.loadUser(caller)
	if err != nil {
		return nil, nil, err
	}
	users := map[Address]*User{caller: callerUser}
	for _, addr := range subjectsOf(requests) {
		if _, ok := users[addr]; ok {
			continue
		}
		u, err := p.loadUser(addr)
		if err != nil {
			return nil, nil, err
		}
		users[addr] = u
	}

	auctions := make(map[Address]*AuctionData)
	for _, req := range requests {
		switch req.Kind {
		case RequestFillUserLiquidation, RequestFillBadDebtAuction, RequestDeleteLiquidationAuction:
			if _, ok := auctions[req.Address]; ok {
				continue
			}
			a, ok, err := p.loadAuction(req.Address)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				auctions[req.Address] = a
			}
		case RequestFillInterestAuction:
			if _, ok := auctions[InterestAuctionSubject]; ok {
				continue
			}
			a, ok, err := p.loadAuction(InterestAuctionSubject)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				auctions[InterestAuctionSubject] = a
			}
		}
	}

	emissionsData := make(map[uint64]*ReserveEmissionsData)

	in := &SubmitInput{
		Now:           now,
		Config:        &p.Config,
		User:          callerUser,
		Users:         users,
		Reserves:      reserves,
		AssetIndex:    assetIndex,
		EmissionsData: emissionsData,
		Auctions:      auctions,
		Oracle:        p.Oracle,
		OracleMaxAge:  oracleMaxAge,
	}

	actions, health, err := Submit(in, requests)
	if err != nil {
		return nil, nil, err
	}

	for _, r := range reserves {
		if err := p.saveReserve(r); err != nil {
			return nil, nil, err
		}
	}
	for _, u := range users {
		if err := p.saveUser(u); err != nil {
			return nil, nil, err
		}
	}
	for subject, a := range auctions {
		if err := p.saveAuction(subject, a); err != nil {
			return nil, nil, err
		}
	}
	for tokenID, d := range emissionsData {
		if err := p.store.Put(storage.Instance, nsEmissionsData, tokenIDKey(tokenID), d); err != nil {
			return nil, nil, err
		}
	}

	for _, req := range requests {
		Emit(p.Logger, Event{Kind: eventKindForRequest(req.Kind), Pool: p.Address, User: caller, Amount: req.Amount, Timestamp: now})
	}

	return actions, health, nil
}

// NewLiquidationAuction opens a user-liquidation auction against subject,
// permissionless so long as subject is currently unhealthy and no auction
// is already open against them.
func (p *Pool) NewLiquidationAuction(now uint64, subject Address, oracleMaxAge uint64) (*AuctionData, error) {
	if _, ok, err := p.loadAuction(subject); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAuctionInProgress
	}

	reserves, _, err := p.loadAllReserves()
	if err != nil {
		return nil, err
	}
	u, err := p.loadUser(subject)
	if err != nil {
		return nil, err
	}
	h, err := ComputeHealth(u, reserves, p.Oracle, now, oracleMaxAge)
	if err != nil {
		return nil, err
	}
	auction, err := CreateLiquidationAuction(now, h, u, reserves)
	if err != nil {
		return nil, err
	}
	if err := p.saveAuction(subject, auction); err != nil {
		return nil, err
	}
	Emit(p.Logger, Event{Kind: EventNewAuction, Pool: p.Address, User: subject, Timestamp: now})
	return auction, nil
}

// NewBadDebtAuction opens a bad-debt auction for a user whose collateral is
// already fully exhausted (admin or backstop-triggered per spec §4.5).
func (p *Pool) NewBadDebtAuction(now uint64, subject Address, oracleMaxAge uint64) (*AuctionData, error) {
	if _, ok, err := p.loadAuction(subject); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAuctionInProgress
	}
	reserves, _, err := p.loadAllReserves()
	if err != nil {
		return nil, err
	}
	u, err := p.loadUser(subject)
	if err != nil {
		return nil, err
	}
	if p.Backstop == nil {
		return nil, ErrStatusNotAllowed
	}
	_, _, tokens, _, err := p.Backstop.PoolData(p.Address)
	if err != nil {
		return nil, err
	}
	auction, err := CreateBadDebtAuction(now, u, reserves, p.Oracle, oracleMaxAge, p.Config.BackstopToken, p.Config.BackstopTokenScalar(), tokens)
	if err != nil {
		return nil, err
	}
	if err := p.saveAuction(subject, auction); err != nil {
		return nil, err
	}
	Emit(p.Logger, Event{Kind: EventNewAuction, Pool: p.Address, User: subject, Timestamp: now})
	return auction, nil
}

// NewInterestAuction opens an interest auction sweeping every reserve's
// accrued backstop_credit in exchange for a USDC bid sized to spec §4.5.
func (p *Pool) NewInterestAuction(now uint64, oracleMaxAge uint64) (*AuctionData, error) {
	if _, ok, err := p.loadAuction(InterestAuctionSubject); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAuctionInProgress
	}
	reserves, _, err := p.loadAllReserves()
	if err != nil {
		return nil, err
	}
	auction, err := CreateInterestAuction(now, reserves, p.Oracle, oracleMaxAge, p.Config.USDCToken, p.Config.USDCScalar())
	if err != nil {
		return nil, err
	}
	if err := p.saveAuction(InterestAuctionSubject, auction); err != nil {
		return nil, err
	}
	Emit(p.Logger, Event{Kind: EventNewAuction, Pool: p.Address, User: InterestAuctionSubject, Timestamp: now})
	return auction, nil
}

// Claim realizes a user's accrued-but-unclaimed emissions across tokenIDs.
func (p *Pool) Claim(now uint64, caller Address, tokenIDs []uint64) (*big.Int, error) {
	u, err := p.loadUser(caller)
	if err != nil {
		return nil, err
	}
	reserves, _, err := p.loadAllReserves()
	if err != nil {
		return nil, err
	}

	data := make(map[uint64]*ReserveEmissionsData, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		var d ReserveEmissionsData
		ok, err := p.store.Get(storage.Instance, nsEmissionsData, tokenIDKey(tokenID), &d)
		if err != nil {
			return nil, err
		}
		if !ok {
			d = ReserveEmissionsData{Index: big.NewInt(0)}
		}
		var cfg ReserveEmissionsConfig
		ok, err = p.store.Get(storage.Instance, nsEmissionsConfig, tokenIDKey(tokenID), &cfg)
		if err != nil {
			return nil, err
		}
		if ok {
			idx, role := SplitTokenID(tokenID)
			if r, ok := reserves[idx]; ok {
				total := r.Data.BSupply
				if role == RoleDebt {
					total = r.Data.DSupply
				}
				Accrue(&d, &cfg, total, now)
			}
		}
		data[tokenID] = &d
		if err := p.store.Put(storage.Instance, nsEmissionsData, tokenIDKey(tokenID), &d); err != nil {
			return nil, err
		}
	}

	claimed := u.ClaimEmissions(tokenIDs, data)
	if err := p.saveUser(u); err != nil {
		return nil, err
	}
	Emit(p.Logger, Event{Kind: EventClaimEmissions, Pool: p.Address, User: caller, Amount: claimed, Timestamp: now})
	return claimed, nil
}

// SetEmissionsConfig installs a new emissions rate/expiration for tokenID
// (admin-only).
func (p *Pool) SetEmissionsConfig(caller Address, tokenID uint64, cfg ReserveEmissionsConfig) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	return p.store.Put(storage.Instance, nsEmissionsConfig, tokenIDKey(tokenID), &cfg)
}

// GulpEmissions pulls the emitter's latest distribution to this pool and
// splits it between the backstop and the pool's own reward-zone reserves,
// per spec §4.2.
func (p *Pool) GulpEmissions(now uint64, reserveWeightsBps map[uint64]uint64) (backstopAmount *big.Int, err error) {
	if p.Emitter == nil {
		return big.NewInt(0), nil
	}
	amount, _, err := p.Emitter.LastDistribution(p.Address)
	if err != nil {
		return nil, err
	}
	existing := make(map[uint64]*ReserveEmissionsConfig, len(reserveWeightsBps))
	for tokenID := range reserveWeightsBps {
		var cfg ReserveEmissionsConfig
		ok, err := p.store.Get(storage.Instance, nsEmissionsConfig, tokenIDKey(tokenID), &cfg)
		if err != nil {
			return nil, err
		}
		if ok {
			existing[tokenID] = &cfg
		}
	}

	backstopShare, updated := GulpEmissions(now, amount, reserveWeightsBps, existing)
	for tokenID, cfg := range updated {
		if err := p.store.Put(storage.Instance, nsEmissionsConfig, tokenIDKey(tokenID), cfg); err != nil {
			return nil, err
		}
	}
	Emit(p.Logger, Event{Kind: EventGulpEmissions, Pool: p.Address, Amount: backstopShare, Timestamp: now})
	return backstopShare, nil
}

// UpdatePool replaces the pool's risk-neutral config fields (admin-only;
// status is changed only via SetStatus/UpdateStatus).
func (p *Pool) UpdatePool(caller Address, maxPositions uint32, bstopRateBps uint64) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	p.Config.MaxPositions = maxPositions
	p.Config.BstopRateBps = bstopRateBps
	return nil
}

// SetAdmin transfers pool admin rights.
func (p *Pool) SetAdmin(caller, newAdmin Address) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	p.Config.Admin = newAdmin
	return nil
}

// SetStatus is the admin-only status override, gated by the pool's current
// backstop health (spec §4.7). Admin-Frozen needs no backstop data, so it is
// accepted even when no Backstop is configured.
func (p *Pool) SetStatus(caller Address, next Status) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	var blnd, usdc *big.Int
	var q4wPct uint64
	if next != StatusAdminFrozen {
		if p.Backstop == nil {
			return ErrStatusNotAllowed
		}
		var err error
		blnd, usdc, _, q4wPct, err = p.Backstop.PoolData(p.Address)
		if err != nil {
			return err
		}
	}
	if err := SetStatus(&p.Config, next, blnd, usdc, q4wPct); err != nil {
		return err
	}
	Emit(p.Logger, Event{Kind: EventSetStatus, Pool: p.Address, User: caller, Amount: big.NewInt(int64(next))})
	return nil
}

// UpdateStatus is the permissionless backstop-health-driven status walk.
func (p *Pool) UpdateStatus() error {
	if p.Backstop == nil {
		return ErrStatusNotAllowed
	}
	blnd, usdc, _, q4wPct, err := p.Backstop.PoolData(p.Address)
	if err != nil {
		return err
	}
	if err := UpdateStatus(&p.Config, blnd, usdc, q4wPct); err != nil {
		return err
	}
	Emit(p.Logger, Event{Kind: EventUpdateStatus, Pool: p.Address, Amount: big.NewInt(int64(p.Config.Status))})
	return nil
}
