package pool

import (
	"math/big"
	"testing"
)

func newTestSubmitInput() (*SubmitInput, Address, Address) {
	collateralAsset := testAddress(1)
	debtAsset := testAddress(2)

	collateralReserve := newTestReserve()
	collateralReserve.Config.Index = 0
	collateralReserve.Data.Asset = collateralAsset
	collateralReserve.Data.BSupply = big.NewInt(0)

	debtReserve := newTestReserve()
	debtReserve.Config.Index = 1
	debtReserve.Config.LFactor = 9_000_000
	debtReserve.Data.Asset = debtAsset
	debtReserve.Data.BSupply = big.NewInt(10_000_000_000)

	oracle := &fakeOracle{prices: map[Address]*big.Int{
		collateralAsset: big.NewInt(10_000_000),
		debtAsset:       big.NewInt(10_000_000),
	}}

	user := newUser(testAddress(9))

	in := &SubmitInput{
		Now:    0,
		Config: &Config{Status: StatusActive, MaxPositions: 12},
		User:   user,
		Users:  map[Address]*User{user.Address: user},
		Reserves: map[uint32]*Reserve{
			0: collateralReserve,
			1: debtReserve,
		},
		AssetIndex: map[Address]uint32{
			collateralAsset: 0,
			debtAsset:       1,
		},
		EmissionsData: make(map[uint64]*ReserveEmissionsData),
		Auctions:      make(map[Address]*AuctionData),
		Oracle:        oracle,
		OracleMaxAge:  600,
	}
	return in, collateralAsset, debtAsset
}

func TestSubmitSupplyThenWithdraw(t *testing.T) {
	in, collateralAsset, _ := newTestSubmitInput()

	actions, _, err := Submit(in, []Request{
		{Kind: RequestSupply, Address: collateralAsset, Amount: big.NewInt(1000)},
	})
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if actions.SpenderTransfer[collateralAsset].Int64() != 1000 {
		t.Fatalf("spender owes = %v, want 1000", actions.SpenderTransfer[collateralAsset])
	}

	actions, _, err = Submit(in, []Request{
		{Kind: RequestWithdraw, Address: collateralAsset, Amount: big.NewInt(1000)},
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if actions.PoolTransfer[collateralAsset].Int64() != 1000 {
		t.Fatalf("pool owes = %v, want 1000", actions.PoolTransfer[collateralAsset])
	}
	if bal := mapGet(in.User.Positions.Supply, 0); bal.Sign() != 0 {
		t.Fatalf("residual supply balance = %s, want 0", bal)
	}
}

func TestSubmitBorrowRequiresHealthySubsequentState(t *testing.T) {
	in, collateralAsset, debtAsset := newTestSubmitInput()

	_, _, err := Submit(in, []Request{
		{Kind: RequestSupplyCollateral, Address: collateralAsset, Amount: big.NewInt(1000)},
		{Kind: RequestBorrow, Address: debtAsset, Amount: big.NewInt(10_000)}, // far exceeds collateral value
	})
	if err != ErrInvalidHf {
		t.Fatalf("Submit() err = %v, want ErrInvalidHf", err)
	}
}

func TestSubmitBorrowWithinHealthSucceeds(t *testing.T) {
	in, collateralAsset, debtAsset := newTestSubmitInput()

	actions, health, err := Submit(in, []Request{
		{Kind: RequestSupplyCollateral, Address: collateralAsset, Amount: big.NewInt(1_000_000)},
		{Kind: RequestBorrow, Address: debtAsset, Amount: big.NewInt(100_000)},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if health == nil {
		t.Fatalf("expected health to be computed after a borrow")
	}
	if actions.PoolTransfer[debtAsset].Int64() != 100_000 {
		t.Fatalf("pool owes debt asset = %v, want 100000", actions.PoolTransfer[debtAsset])
	}
}

func TestSubmitRejectsStatusGatedRequest(t *testing.T) {
	in, _, debtAsset := newTestSubmitInput()
	in.Config.Status = StatusOnIce

	_, _, err := Submit(in, []Request{
		{Kind: RequestBorrow, Address: debtAsset, Amount: big.NewInt(1)},
	})
	if err != ErrStatusNotAllowed {
		t.Fatalf("Submit() err = %v, want ErrStatusNotAllowed", err)
	}
}

func TestSubmitRejectsNegativeAmount(t *testing.T) {
	in, collateralAsset, _ := newTestSubmitInput()
	_, _, err := Submit(in, []Request{
		{Kind: RequestSupply, Address: collateralAsset, Amount: big.NewInt(-1)},
	})
	if err != ErrNegativeAmount {
		t.Fatalf("Submit() err = %v, want ErrNegativeAmount", err)
	}
}
