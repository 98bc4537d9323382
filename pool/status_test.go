package pool

import (
	"math/big"
	"testing"
)

func TestUpdateStatusWalksLadderOnBackstopHealth(t *testing.T) {
	cfg := &Config{Status: StatusActive}

	// Healthy backstop (300k BLND / 300k USDC clears the product-constant
	// threshold), q4w 0% -> stays Active.
	if err := UpdateStatus(cfg, big.NewInt(300_000*10_000_000), big.NewInt(300_000*10_000_000), 0); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if cfg.Status != StatusActive {
		t.Fatalf("status = %v, want Active", cfg.Status)
	}

	// q4w rises past 30% -> On-Ice.
	if err := UpdateStatus(cfg, big.NewInt(300_000*10_000_000), big.NewInt(300_000*10_000_000), 4_000_000); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if cfg.Status != StatusOnIce {
		t.Fatalf("status = %v, want OnIce", cfg.Status)
	}

	// q4w rises past 60% -> Frozen.
	if err := UpdateStatus(cfg, big.NewInt(300_000*10_000_000), big.NewInt(300_000*10_000_000), 6_500_000); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if cfg.Status != StatusFrozen {
		t.Fatalf("status = %v, want Frozen", cfg.Status)
	}
}

func TestUpdateStatusRejectsAdminHeldStates(t *testing.T) {
	cfg := &Config{Status: StatusAdminFrozen}
	if err := UpdateStatus(cfg, big.NewInt(1_000_000_000_000), big.NewInt(1_000_000_000_000), 0); err != ErrStatusNotAllowed {
		t.Fatalf("UpdateStatus() err = %v, want ErrStatusNotAllowed", err)
	}
	if cfg.Status != StatusAdminFrozen {
		t.Fatalf("admin-held status mutated by permissionless update")
	}
}

func TestUpdateStatusAdminActiveDropsToOnIceUnderThreshold(t *testing.T) {
	cfg := &Config{Status: StatusAdminActive}
	// Backstop product-constant below 100% even with q4w at 0.
	if err := UpdateStatus(cfg, big.NewInt(1_000*10_000_000), big.NewInt(1_000*10_000_000), 0); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if cfg.Status != StatusOnIce {
		t.Fatalf("status = %v, want OnIce", cfg.Status)
	}
}

func TestUpdateStatusAdminOnIceFreezesAtHighQ4w(t *testing.T) {
	cfg := &Config{Status: StatusAdminOnIce}
	if err := UpdateStatus(cfg, big.NewInt(300_000*10_000_000), big.NewInt(300_000*10_000_000), 8_000_000); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if cfg.Status != StatusFrozen {
		t.Fatalf("status = %v, want Frozen", cfg.Status)
	}
}

func TestSetStatusRequiresThresholdAndLowQ4wForAdminActive(t *testing.T) {
	cfg := &Config{Status: StatusFrozen}
	healthyBlnd, healthyUsdc := big.NewInt(300_000*10_000_000), big.NewInt(300_000*10_000_000)

	if err := SetStatus(cfg, StatusAdminActive, healthyBlnd, healthyUsdc, 0); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if cfg.Status != StatusAdminActive {
		t.Fatalf("status = %v, want AdminActive", cfg.Status)
	}

	if err := SetStatus(cfg, StatusAdminActive, healthyBlnd, healthyUsdc, 6_000_000); err != ErrStatusNotAllowed {
		t.Fatalf("SetStatus() err = %v, want ErrStatusNotAllowed (high q4w)", err)
	}

	if err := SetStatus(cfg, StatusAdminActive, big.NewInt(0), big.NewInt(0), 0); err != ErrStatusNotAllowed {
		t.Fatalf("SetStatus() err = %v, want ErrStatusNotAllowed (under threshold)", err)
	}
}

func TestSetStatusAlwaysAllowsAdminFrozen(t *testing.T) {
	cfg := &Config{Status: StatusActive}
	if err := SetStatus(cfg, StatusAdminFrozen, big.NewInt(0), big.NewInt(0), 9_000_000); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if cfg.Status != StatusAdminFrozen {
		t.Fatalf("status = %v, want AdminFrozen", cfg.Status)
	}
}

func TestSetStatusRejectsUnknownCode(t *testing.T) {
	cfg := &Config{Status: StatusActive}
	if err := SetStatus(cfg, StatusActive, big.NewInt(0), big.NewInt(0), 0); err != ErrBadRequest {
		t.Fatalf("SetStatus() err = %v, want ErrBadRequest", err)
	}
}

func TestCheckStatusAllowsGatesBorrowButNotWithdraw(t *testing.T) {
	if err := CheckStatusAllows(StatusOnIce, RequestBorrow); err != ErrStatusNotAllowed {
		t.Fatalf("borrow while on-ice: err = %v, want ErrStatusNotAllowed", err)
	}
	if err := CheckStatusAllows(StatusOnIce, RequestWithdraw); err != nil {
		t.Fatalf("withdraw while on-ice should be allowed: %v", err)
	}
	if err := CheckStatusAllows(StatusFrozen, RequestWithdraw); err != nil {
		t.Fatalf("withdraw while frozen should be allowed: %v", err)
	}
	if err := CheckStatusAllows(StatusFrozen, RequestRepay); err != nil {
		t.Fatalf("repay while frozen should be allowed: %v", err)
	}
}

func TestCheckStatusAllowsAdminActiveAllowsSupplyNotBorrow(t *testing.T) {
	if err := CheckStatusAllows(StatusAdminActive, RequestSupply); err != nil {
		t.Fatalf("supply under admin-active should be allowed: %v", err)
	}
	if err := CheckStatusAllows(StatusAdminActive, RequestBorrow); err != ErrStatusNotAllowed {
		t.Fatalf("borrow under admin-active: err = %v, want ErrStatusNotAllowed", err)
	}
}

func TestCheckStatusAllowsFrozenBlocksAuctionFills(t *testing.T) {
	if err := CheckStatusAllows(StatusFrozen, RequestFillUserLiquidation); err != ErrStatusNotAllowed {
		t.Fatalf("fill under frozen: err = %v, want ErrStatusNotAllowed", err)
	}
}

func TestCheckStatusAllowsSetupBlocksEverything(t *testing.T) {
	for _, kind := range []RequestKind{RequestSupply, RequestWithdraw, RequestBorrow, RequestRepay, RequestFillInterestAuction} {
		if err := CheckStatusAllows(StatusSetup, kind); err != ErrStatusNotAllowed {
			t.Fatalf("kind %d under setup: err = %v, want ErrStatusNotAllowed", kind, err)
		}
	}
}
