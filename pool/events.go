package pool

import (
	"log/slog"
	"math/big"
)

// Event mirrors the topic tuples spec §6 says every user-visible mutation
// must emit. Grounded on the structured, single-call slog.Logger.Info sites
// scattered through native/lending/engine.go (e.g. its withdrawal/fee
// logging) rather than a dedicated event-bus type, since this module has no
// on-chain log facility to target.
type Event struct {
	Kind      string
	Pool      Address
	User      Address
	Reserve   uint32
	Amount    *big.Int
	Timestamp uint64
}

// Emit logs ev at info level with consistent structured attributes.
func Emit(log *slog.Logger, ev Event) {
	log.Info("pool event",
		slog.String("kind", ev.Kind),
		slog.String("pool", ev.Pool.Hex()),
		slog.String("user", ev.User.Hex()),
		slog.Uint64("reserve", uint64(ev.Reserve)),
		slog.String("amount", bigString(ev.Amount)),
		slog.Uint64("timestamp", ev.Timestamp),
	)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

const (
	EventSupply                   = "supply"
	EventWithdraw                 = "withdraw"
	EventSupplyCollateral         = "supply_collateral"
	EventWithdrawCollateral       = "withdraw_collateral"
	EventBorrow                   = "borrow"
	EventRepay                    = "repay"
	EventFillAuction              = "fill_auction"
	EventNewAuction               = "new_auction"
	EventDeleteLiquidationAuction = "delete_liquidation_auction"
	EventClaimEmissions           = "claim_emissions"
	EventGulpEmissions            = "gulp_emissions"
	EventSetStatus                = "set_status"
	EventUpdateStatus             = "update_status"
)
