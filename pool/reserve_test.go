package pool

import (
	"math/big"
	"testing"
)

func newTestReserve() *Reserve {
	cfg := ReserveConfig{
		Index:      0,
		Decimals:   7,
		CFactor:    9_000_000, // 0.9
		LFactor:    9_500_000, // 0.95
		Util:       7_000_000, // 0.7 target utilization
		MaxUtil:    9_500_000,
		R1:         500_000,   // 0.05
		R2:         1_000_000, // 0.1
		R3:         10_000_000,
		Reactivity: 0,
	}
	data := &ReserveData{}
	data.EnsureDefaults()
	return &Reserve{Config: cfg, Data: data}
}

func TestReserveEnsureDefaultsFloorsRatesAtScale(t *testing.T) {
	r := newTestReserve()
	if r.Data.DRate.Cmp(RateScalar) != 0 {
		t.Fatalf("d_rate default = %s, want %s", r.Data.DRate, RateScalar)
	}
	if r.Data.BRate.Cmp(RateScalar) != 0 {
		t.Fatalf("b_rate default = %s, want %s", r.Data.BRate, RateScalar)
	}
}

func TestAccrueIsNoOpWithoutElapsedTime(t *testing.T) {
	r := newTestReserve()
	r.Data.LastTime = 1000
	r.Accrue(1000, 200_000_000)
	if r.Data.LastTime != 1000 {
		t.Fatalf("LastTime advanced without elapsed time")
	}
	if r.Data.DRate.Cmp(RateScalar) != 0 {
		t.Fatalf("d_rate changed without elapsed time")
	}
}

func TestAccrueGrowsDRateUnderUtilization(t *testing.T) {
	r := newTestReserve()
	r.Data.BSupply = big.NewInt(1_000_000_000)
	r.Data.DSupply = big.NewInt(500_000_000)
	r.Data.LastTime = 0

	r.Accrue(86_400, 200_000_000) // one day, 20% to backstop

	if r.Data.DRate.Cmp(RateScalar) <= 0 {
		t.Fatalf("d_rate did not grow: %s", r.Data.DRate)
	}
	if r.Data.BRate.Cmp(RateScalar) <= 0 {
		t.Fatalf("b_rate did not grow: %s", r.Data.BRate)
	}
	if r.Data.BackstopCredit.Sign() <= 0 {
		t.Fatalf("backstop credit did not accrue")
	}
	if r.Data.LastTime != 86_400 {
		t.Fatalf("LastTime = %d, want 86400", r.Data.LastTime)
	}
}

func TestDRateNeverDecreases(t *testing.T) {
	r := newTestReserve()
	r.Data.BSupply = big.NewInt(1_000_000_000)
	r.Data.DSupply = big.NewInt(0)
	r.Data.LastTime = 0

	before := cloneBig(r.Data.DRate)
	r.Accrue(1000, 0)
	if r.Data.DRate.Cmp(before) < 0 {
		t.Fatalf("d_rate decreased: before=%s after=%s", before, r.Data.DRate)
	}
}

func TestUtilizationCeilingRejectsOverBorrow(t *testing.T) {
	r := newTestReserve()
	r.Data.BSupply = big.NewInt(1_000_000_000)
	r.Data.DSupply = big.NewInt(990_000_000) // 99% > 95% max_util

	if err := r.CheckUtilizationCeiling(); err != ErrInvalidUtilizationRate {
		t.Fatalf("CheckUtilizationCeiling() = %v, want ErrInvalidUtilizationRate", err)
	}
}

func TestConversionRoundingDirections(t *testing.T) {
	r := newTestReserve()
	r.Data.BRate = new(big.Int).Mul(RateScalar, big.NewInt(2)) // 2x b_rate

	deposit := r.UnderlyingToBTokensDeposit(big.NewInt(7))
	if deposit.Int64() != 3 { // floor(7*1e9/2e9) = 3
		t.Fatalf("deposit conversion = %d, want 3", deposit.Int64())
	}
	partial := r.UnderlyingToBTokensWithdrawPartial(big.NewInt(7))
	if partial.Int64() != 4 { // ceil(7*1e9/2e9) = 4
		t.Fatalf("partial withdraw conversion = %d, want 4", partial.Int64())
	}
}
