package pool

import (
	"math/big"
	"testing"

	"github.com/nhbchain/lendpool/storage"
)

func newTestPool(t *testing.T, admin Address, oracle Oracle) *Pool {
	t.Helper()
	var seq uint64
	store := storage.New(storage.NewMemDB(), func() uint64 { return seq })
	cfg := Config{Admin: admin, Status: StatusActive, MaxPositions: 12, BackstopToken: testAddress(99)}
	return NewPool(testAddress(100), cfg, store, oracle, nil, nil, nil)
}

func TestPoolInitReserveRequiresAdmin(t *testing.T) {
	admin := testAddress(1)
	p := newTestPool(t, admin, nil)

	_, err := p.InitReserve(testAddress(2), testAddress(10), ReserveConfig{Decimals: 7, Util: 7_000_000, MaxUtil: 9_500_000, R1: 1, R2: 1, R3: 1})
	if err != ErrNotAuthorized {
		t.Fatalf("InitReserve() err = %v, want ErrNotAuthorized", err)
	}

	idx, err := p.InitReserve(admin, testAddress(10), ReserveConfig{Decimals: 7, CFactor: 9_000_000, LFactor: 9_500_000, Util: 7_000_000, MaxUtil: 9_500_000, R1: 1, R2: 1, R3: 1})
	if err != nil {
		t.Fatalf("InitReserve: %v", err)
	}
	if idx != 0 {
		t.Fatalf("idx = %d, want 0", idx)
	}
}

func TestPoolSubmitPersistsAcrossCalls(t *testing.T) {
	admin := testAddress(1)
	asset := testAddress(10)
	oracle := &fakeOracle{prices: map[Address]*big.Int{asset: big.NewInt(10_000_000)}}
	p := newTestPool(t, admin, oracle)

	if _, err := p.InitReserve(admin, asset, ReserveConfig{Decimals: 7, CFactor: 9_000_000, LFactor: 9_500_000, Util: 7_000_000, MaxUtil: 9_500_000, R1: 500_000, R2: 1_000_000, R3: 10_000_000}); err != nil {
		t.Fatalf("InitReserve: %v", err)
	}

	caller := testAddress(20)
	_, _, err := p.Submit(0, caller, []Request{
		{Kind: RequestSupply, Address: asset, Amount: big.NewInt(5000)},
	}, 600)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	positions, err := p.GetPositions(caller)
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if bal := mapGet(positions.Supply, 0); bal.Int64() != 5000 {
		t.Fatalf("persisted supply balance = %s, want 5000", bal)
	}
}

func TestPoolStatusAdminOverride(t *testing.T) {
	admin := testAddress(1)
	p := newTestPool(t, admin, nil)

	if err := p.SetStatus(testAddress(2), StatusAdminFrozen); err != ErrNotAuthorized {
		t.Fatalf("SetStatus() err = %v, want ErrNotAuthorized", err)
	}
	if err := p.SetStatus(admin, StatusAdminFrozen); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if p.Config.Status != StatusAdminFrozen {
		t.Fatalf("status = %v, want AdminFrozen", p.Config.Status)
	}
}

func TestPoolLiquidationAuctionLifecycle(t *testing.T) {
	admin := testAddress(1)
	collateralAsset := testAddress(10)
	debtAsset := testAddress(11)
	oracle := &fakeOracle{prices: map[Address]*big.Int{
		collateralAsset: big.NewInt(10_000_000),
		debtAsset:       big.NewInt(10_000_000),
	}}
	p := newTestPool(t, admin, oracle)

	if _, err := p.InitReserve(admin, collateralAsset, ReserveConfig{Decimals: 7, CFactor: 9_000_000, LFactor: 9_500_000, Util: 7_000_000, MaxUtil: 9_500_000, R1: 1, R2: 1, R3: 1}); err != nil {
		t.Fatalf("InitReserve collateral: %v", err)
	}
	if _, err := p.InitReserve(admin, debtAsset, ReserveConfig{Decimals: 7, CFactor: 9_000_000, LFactor: 9_000_000, Util: 7_000_000, MaxUtil: 9_500_000, R1: 1, R2: 1, R3: 1}); err != nil {
		t.Fatalf("InitReserve debt: %v", err)
	}

	subject := testAddress(30)
	reserves, assetIndex, err := p.loadAllReserves()
	if err != nil {
		t.Fatalf("loadAllReserves: %v", err)
	}
	in := &SubmitInput{
		Now: 0, Config: &p.Config, User: newUser(subject),
		Users: map[Address]*User{subject: newUser(subject)}, Reserves: reserves, AssetIndex: assetIndex,
		EmissionsData: make(map[uint64]*ReserveEmissionsData), Auctions: make(map[Address]*AuctionData),
		Oracle: oracle, OracleMaxAge: 600,
	}
	u := in.Users[subject]
	in.User = u
	if _, _, err := Submit(in, []Request{
		{Kind: RequestSupplyCollateral, Address: collateralAsset, Amount: big.NewInt(1000)},
		{Kind: RequestSupply, Address: debtAsset, Amount: big.NewInt(1000)},
		{Kind: RequestBorrow, Address: debtAsset, Amount: big.NewInt(500)},
	}); err != nil {
		t.Fatalf("setup submit: %v", err)
	}
	for _, r := range reserves {
		if err := p.saveReserve(r); err != nil {
			t.Fatalf("saveReserve: %v", err)
		}
	}
	if err := p.saveUser(u); err != nil {
		t.Fatalf("saveUser: %v", err)
	}

	if _, err := p.NewLiquidationAuction(0, subject, 600); err != ErrInvalidLiquidation {
		t.Fatalf("NewLiquidationAuction() on healthy user err = %v, want ErrInvalidLiquidation", err)
	}
}
