package pool

import (
	"math/big"
	"testing"
)

type fakeOracle struct {
	prices map[Address]*big.Int
}

func (f *fakeOracle) GetPrice(asset Address, _ uint64) (*big.Int, bool) {
	p, ok := f.prices[asset]
	return p, ok
}

func testAddress(b byte) Address {
	var a Address
	a[19] = b
	return a
}

func buildTestReserves() (map[uint32]*Reserve, *fakeOracle) {
	collateralAsset := testAddress(1)
	debtAsset := testAddress(2)

	collateralReserve := newTestReserve()
	collateralReserve.Config.Index = 0
	collateralReserve.Data.Asset = collateralAsset

	debtReserve := newTestReserve()
	debtReserve.Config.Index = 1
	debtReserve.Config.LFactor = 9_000_000 // 0.9
	debtReserve.Data.Asset = debtAsset

	oracle := &fakeOracle{prices: map[Address]*big.Int{
		collateralAsset: big.NewInt(1 * 10_000_000), // $1 at 1e7 scale
		debtAsset:       big.NewInt(1 * 10_000_000),
	}}
	return map[uint32]*Reserve{0: collateralReserve, 1: debtReserve}, oracle
}

func TestComputeHealthHealthyPosition(t *testing.T) {
	reserves, oracle := buildTestReserves()
	u := newUser(testAddress(9))
	u.Positions.Collateral[0] = big.NewInt(1_000_000_000) // 100 units at 1e7 decimals... simplified
	u.Positions.Liabilities[1] = big.NewInt(100_000_000)

	h, err := ComputeHealth(u, reserves, oracle, 0, 600)
	if err != nil {
		t.Fatalf("ComputeHealth: %v", err)
	}
	if IsLiquidatable(h) {
		t.Fatalf("position should be healthy: collateral_base=%s liability_base=%s", h.CollateralBase, h.LiabilityBase)
	}
}

func TestComputeHealthOracleStale(t *testing.T) {
	reserves, oracle := buildTestReserves()
	delete(oracle.prices, testAddress(1))
	u := newUser(testAddress(9))
	u.Positions.Collateral[0] = big.NewInt(1_000_000_000)

	_, err := ComputeHealth(u, reserves, oracle, 0, 600)
	if err != ErrOracleStale {
		t.Fatalf("ComputeHealth() err = %v, want ErrOracleStale", err)
	}
}

func TestIsLiquidatableWhenUnderwater(t *testing.T) {
	reserves, oracle := buildTestReserves()
	u := newUser(testAddress(9))
	u.Positions.Collateral[0] = big.NewInt(100_000_000)
	u.Positions.Liabilities[1] = big.NewInt(1_000_000_000)

	h, err := ComputeHealth(u, reserves, oracle, 0, 600)
	if err != nil {
		t.Fatalf("ComputeHealth: %v", err)
	}
	if !IsLiquidatable(h) {
		t.Fatalf("position should be liquidatable: collateral_base=%s liability_base=%s", h.CollateralBase, h.LiabilityBase)
	}
}
