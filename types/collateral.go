package types

import (
	"time"

	"code.pismoprotocol.io/pismo/types/num"
)

// Collateral is one deposit of a specific token backing an account.
type Collateral struct {
	ID        string
	AccountID string
	ProgramID string
	Token     *TokenIdentifier
	Amount    *num.Uint
}

// CollateralMarker is the cached valuation record paired with a collateral.
// Value is the USD value of RemainingAmount scaled to the program's shared
// decimals, stamped at ValueSetTime. A marker whose stamp is older than the
// configured max age must not feed any margin or liquidation decision.
type CollateralMarker struct {
	ID           string
	CollateralID string
	AccountID    string
	Token        *TokenIdentifier

	RemainingAmount *num.Uint
	Value           *num.Uint
	ValueSetTime    time.Time
	// Liquidated is set the moment a liquidation seizes this marker, the
	// guard against the same marker being liquidated twice before the
	// scheduled transfer executes
	Liquidated bool
}

// FreshAt reports whether the cached value may be trusted at the given time.
func (m *CollateralMarker) FreshAt(now time.Time, maxAge time.Duration) bool {
	return !m.ValueSetTime.IsZero() && now.Sub(m.ValueSetTime) <= maxAge
}
