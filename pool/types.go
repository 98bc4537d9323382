package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an on-ledger account: a user, a reserve's underlying
// asset, or a module treasury. Grounded on the teacher's use of
// github.com/ethereum/go-ethereum for 20-byte account identifiers
// throughout its RPC layer.
type Address = common.Address

// Scaling constants used throughout the engine.
var (
	// RateScalar is the fixed 1e9 scale used for b_rate/d_rate/ir_mod.
	RateScalar = big.NewInt(1_000_000_000)
	// PriceScalar is the common 1e7 scale oracle prices and health
	// aggregates are normalized to.
	PriceScalar = big.NewInt(10_000_000)
	// FactorScalar is the 1e7 scale collateral/liability factors are
	// expressed in.
	FactorScalar = big.NewInt(10_000_000)
	// EmissionsEpsScalar scales emissions eps figures (1e7).
	EmissionsEpsScalar = big.NewInt(10_000_000)
)

// MaxReserves bounds the number of reserves a pool may configure; reserves
// are referenced by their small integer index everywhere else, per spec §9
// "Arena + index".
const MaxReserves = 32

// ReserveConfig is the admin-controlled, largely-immutable shape of a
// reserve (spec §3).
type ReserveConfig struct {
	Index      uint32
	Decimals   uint32
	CFactor    uint64 // 1e7 scale
	LFactor    uint64 // 1e7 scale
	Util       uint64 // 1e7 scale, target utilization
	MaxUtil    uint64 // 1e7 scale
	R1         uint64 // 1e7 scale slope
	R2         uint64 // 1e7 scale slope
	R3         uint64 // 1e7 scale slope
	Reactivity uint64 // 1e9 scale
}

// Scalar returns 10^Decimals as a big.Int.
func (c ReserveConfig) Scalar() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(c.Decimals)), nil)
}

// ReserveData is the mutable accounting state of a reserve (spec §3).
type ReserveData struct {
	Asset          Address
	DRate          *big.Int // 1e9 scale, monotonically non-decreasing
	BRate          *big.Int // 1e9 scale, monotonically non-decreasing absent socialized loss
	IRMod          *big.Int // 1e9 scale
	BSupply        *big.Int // sum of all b-tokens outstanding
	DSupply        *big.Int // sum of all d-tokens outstanding
	BackstopCredit *big.Int // underlying units accrued to the backstop, unswept
	LastTime       uint64   // unix seconds of last accrual
}

// EnsureDefaults backfills nil big.Int fields and the 1e9 rate floor so a
// freshly-initialized reserve satisfies spec §3's invariants.
func (r *ReserveData) EnsureDefaults() {
	if r.DRate == nil || r.DRate.Sign() == 0 {
		r.DRate = new(big.Int).Set(RateScalar)
	}
	if r.BRate == nil || r.BRate.Sign() == 0 {
		r.BRate = new(big.Int).Set(RateScalar)
	}
	if r.IRMod == nil || r.IRMod.Sign() == 0 {
		r.IRMod = new(big.Int).Set(RateScalar)
	}
	if r.BSupply == nil {
		r.BSupply = big.NewInt(0)
	}
	if r.DSupply == nil {
		r.DSupply = big.NewInt(0)
	}
	if r.BackstopCredit == nil {
		r.BackstopCredit = big.NewInt(0)
	}
}

// Clone returns a deep copy so callers don't accidentally alias shared
// big.Int pointers across cache entries.
func (r *ReserveData) Clone() *ReserveData {
	if r == nil {
		return nil
	}
	clone := &ReserveData{Asset: r.Asset, LastTime: r.LastTime}
	clone.DRate = cloneBig(r.DRate)
	clone.BRate = cloneBig(r.BRate)
	clone.IRMod = cloneBig(r.IRMod)
	clone.BSupply = cloneBig(r.BSupply)
	clone.DSupply = cloneBig(r.DSupply)
	clone.BackstopCredit = cloneBig(r.BackstopCredit)
	return clone
}

// Role distinguishes debt-side from supply-side emissions targets. token_id
// = reserve_index*2 + role (spec §3).
type Role uint32

const (
	RoleDebt   Role = 0
	RoleSupply Role = 1
)

// TokenID encodes a (reserve index, role) pair into the emissions target id.
func TokenID(reserveIndex uint32, role Role) uint64 {
	return uint64(reserveIndex)*2 + uint64(role)
}

// SplitTokenID decodes a token_id back into its reserve index and role.
func SplitTokenID(tokenID uint64) (uint32, Role) {
	return uint32(tokenID / 2), Role(tokenID % 2)
}

// Positions holds one user's per-reserve-index balances in the three roles
// (spec §3). A zero-value entry is removed from its map; callers should use
// the accessor/mutator methods on *User rather than touching these maps
// directly so the max_positions bound and emissions accrual stay wired in.
type Positions struct {
	Liabilities map[uint32]*big.Int // d-tokens
	Collateral  map[uint32]*big.Int // b-tokens backing debt
	Supply      map[uint32]*big.Int // b-tokens not pledged as collateral
}

// NewPositions returns an empty Positions with initialized maps.
func NewPositions() *Positions {
	return &Positions{
		Liabilities: make(map[uint32]*big.Int),
		Collateral:  make(map[uint32]*big.Int),
		Supply:      make(map[uint32]*big.Int),
	}
}

// Clone deep-copies positions so a loaded user can be mutated without
// aliasing the cached/stored maps.
func (p *Positions) Clone() *Positions {
	if p == nil {
		return NewPositions()
	}
	out := NewPositions()
	for k, v := range p.Liabilities {
		out.Liabilities[k] = cloneBig(v)
	}
	for k, v := range p.Collateral {
		out.Collateral[k] = cloneBig(v)
	}
	for k, v := range p.Supply {
		out.Supply[k] = cloneBig(v)
	}
	return out
}

// Count returns the number of distinct (reserve-index, role) entries, used
// to enforce max_positions.
func (p *Positions) Count() int {
	return len(p.Liabilities) + len(p.Collateral) + len(p.Supply)
}

// User is a loaded position together with the per-(reserve,role) emissions
// snapshot needed to reconcile accrual lazily.
type User struct {
	Address   Address
	Positions *Positions
	Emissions map[uint64]*UserEmissionData
}

func newUser(addr Address) *User {
	return &User{
		Address:   addr,
		Positions: NewPositions(),
		Emissions: make(map[uint64]*UserEmissionData),
	}
}

// Status codes for the pool status state machine (spec §4.7).
type Status uint32

const (
	StatusAdminActive Status = 0
	StatusActive      Status = 1
	StatusAdminOnIce  Status = 2
	StatusOnIce       Status = 3
	StatusAdminFrozen Status = 4
	StatusFrozen      Status = 5
	StatusSetup       Status = 6
)

// Config is the pool-wide configuration (spec §3).
type Config struct {
	Admin                 Address
	Oracle                Address
	Backstop              Address
	Emitter               Address
	USDCToken             Address
	BackstopToken         Address
	USDCDecimals          uint32 // decimals of USDCToken, for interest-auction bid sizing
	BackstopTokenDecimals uint32 // decimals of BackstopToken, for bad-debt-auction lot sizing
	BstopRateBps          uint64 // fraction of accrued interest routed to backstop, 1e9 scale
	Status                Status
	MaxPositions          uint32
}

// USDCScalar returns 10^USDCDecimals as a big.Int.
func (c Config) USDCScalar() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(c.USDCDecimals)), nil)
}

// BackstopTokenScalar returns 10^BackstopTokenDecimals as a big.Int.
func (c Config) BackstopTokenScalar() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(c.BackstopTokenDecimals)), nil)
}

// AuctionKind distinguishes the three auction flavors sharing the block-
// linear pricing schedule (spec §4.5).
type AuctionKind uint32

const (
	AuctionUserLiquidation AuctionKind = 0
	AuctionBadDebt         AuctionKind = 1
	AuctionInterest        AuctionKind = 2
)

// AuctionData is the bid/lot schedule for one in-flight auction (spec §3).
type AuctionData struct {
	Bid   map[Address]*big.Int
	Lot   map[Address]*big.Int
	Block uint64
}

// Clone deep-copies an AuctionData.
func (a *AuctionData) Clone() *AuctionData {
	if a == nil {
		return nil
	}
	out := &AuctionData{Bid: make(map[Address]*big.Int, len(a.Bid)), Lot: make(map[Address]*big.Int, len(a.Lot)), Block: a.Block}
	for k, v := range a.Bid {
		out.Bid[k] = cloneBig(v)
	}
	for k, v := range a.Lot {
		out.Lot[k] = cloneBig(v)
	}
	return out
}

// IsEmpty reports whether both sides of the auction have been fully filled.
func (a *AuctionData) IsEmpty() bool {
	return a == nil || (len(a.Bid) == 0 && len(a.Lot) == 0)
}

// ReserveEmissionsConfig configures the per-token emissions rate (spec §3).
type ReserveEmissionsConfig struct {
	Expiration uint64 // unix seconds
	Eps        uint64 // emissions per second, 1e7 scale
}

// ReserveEmissionsData is the cumulative emitted-per-share index (spec §3).
type ReserveEmissionsData struct {
	Index    *big.Int
	LastTime uint64
}

// UserEmissionData is a user's last-touched emissions snapshot (spec §3).
type UserEmissionData struct {
	Index       *big.Int
	Accrued     *big.Int
	Initialized bool
}

// Request is one entry in a Submit call's ordered action list (spec §4.3).
type Request struct {
	Kind    RequestKind
	Address Address // reserve asset address, or the liquidation subject for fills
	Amount  *big.Int
}

// RequestKind enumerates the pipeline's ten action kinds (spec §4.3).
type RequestKind uint32

const (
	RequestSupply                   RequestKind = 0
	RequestWithdraw                 RequestKind = 1
	RequestSupplyCollateral         RequestKind = 2
	RequestWithdrawCollateral       RequestKind = 3
	RequestBorrow                   RequestKind = 4
	RequestRepay                    RequestKind = 5
	RequestFillUserLiquidation      RequestKind = 6
	RequestFillBadDebtAuction       RequestKind = 7
	RequestFillInterestAuction      RequestKind = 8
	RequestDeleteLiquidationAuction RequestKind = 9
)

// Actions is the aggregate net transfer the pipeline hands back to the
// outer harness for token movement (spec §4.3/§6).
type Actions struct {
	SpenderTransfer map[Address]*big.Int
	PoolTransfer    map[Address]*big.Int
}

func newActions() *Actions {
	return &Actions{SpenderTransfer: make(map[Address]*big.Int), PoolTransfer: make(map[Address]*big.Int)}
}

func (a *Actions) addSpenderOwes(asset Address, amount *big.Int) {
	addAmount(a.SpenderTransfer, asset, amount)
}

func (a *Actions) addPoolOwes(asset Address, amount *big.Int) {
	addAmount(a.PoolTransfer, asset, amount)
}

func addAmount(m map[Address]*big.Int, asset Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	if existing, ok := m[asset]; ok {
		m[asset] = new(big.Int).Add(existing, amount)
	} else {
		m[asset] = cloneBig(amount)
	}
}
