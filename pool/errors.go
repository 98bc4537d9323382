package pool

import "errors"

// Error taxonomy. Callers switch on kind with errors.Is; every error aborts
// the enclosing transaction and leaves no state change (spec §7).
var (
	ErrBadRequest             = errors.New("pool: bad request")
	ErrNotAuthorized          = errors.New("pool: not authorized")
	ErrNegativeAmount         = errors.New("pool: negative amount")
	ErrInvalidHf              = errors.New("pool: health factor below 1")
	ErrInvalidLiquidation     = errors.New("pool: liquidation not permitted")
	ErrInvalidLiqTooLarge     = errors.New("pool: liquidation percent too large")
	ErrInvalidLiqTooSmall     = errors.New("pool: liquidation percent too small")
	ErrInvalidUtilizationRate = errors.New("pool: borrow exceeds max utilization")
	ErrAuctionInProgress      = errors.New("pool: auction already in progress")
	ErrAuctionNotFound        = errors.New("pool: auction not found")
	ErrStatusNotAllowed       = errors.New("pool: operation blocked by pool status")
	ErrReserveAlreadyExists   = errors.New("pool: reserve already exists")
	ErrReserveNotFound        = errors.New("pool: reserve not found")
	ErrOracleStale            = errors.New("pool: oracle price missing or stale")
	ErrTooManyPositions       = errors.New("pool: max_positions exceeded")
	ErrInsufficientBalance    = errors.New("pool: insufficient balance")
)

// Code returns the stable taxonomy string for err, or "" if err is not one
// of the taxonomy errors below (ErrAuctionNotFound, ErrTooManyPositions and
// ErrInsufficientBalance also return ""). This mirrors the teacher's ModuleError
// classification (rpc/modules/lending.go) used to surface a stable code to
// callers instead of a raw Go error string.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "BadRequest"
	case errors.Is(err, ErrNotAuthorized):
		return "NotAuthorized"
	case errors.Is(err, ErrNegativeAmount):
		return "NegativeAmount"
	case errors.Is(err, ErrInvalidHf):
		return "InvalidHf"
	case errors.Is(err, ErrInvalidLiqTooLarge):
		return "InvalidLiqTooLarge"
	case errors.Is(err, ErrInvalidLiqTooSmall):
		return "InvalidLiqTooSmall"
	case errors.Is(err, ErrInvalidLiquidation):
		return "InvalidLiquidation"
	case errors.Is(err, ErrInvalidUtilizationRate):
		return "InvalidUtilizationRate"
	case errors.Is(err, ErrAuctionInProgress):
		return "AuctionInProgress"
	case errors.Is(err, ErrStatusNotAllowed):
		return "StatusNotAllowed"
	case errors.Is(err, ErrReserveAlreadyExists):
		return "ReserveAlreadyExists"
	case errors.Is(err, ErrReserveNotFound):
		return "ReserveNotFound"
	case errors.Is(err, ErrOracleStale):
		return "OracleStale"
	default:
		return ""
	}
}
