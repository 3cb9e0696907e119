package types

import (
	"time"

	"code.pismoprotocol.io/pismo/types/num"
)

// Vault is the pooled liquidity for one token, acting as the trading
// counterparty. LP shares follow the usual proportional mint/burn rule.
type Vault struct {
	Address     string
	Token       *TokenIdentifier
	LPTokenInfo string

	Balance  *num.Uint
	LPSupply *num.Uint
}

// VaultMarker is the cached valuation record paired with a vault, the same
// lifecycle and freshness rule as CollateralMarker.
type VaultMarker struct {
	ID           string
	VaultAddress string
	Token        *TokenIdentifier

	Balance      *num.Uint
	Value        *num.Uint
	ValueSetTime time.Time
}

// FreshAt reports whether the cached value may be trusted at the given time.
func (m *VaultMarker) FreshAt(now time.Time, maxAge time.Duration) bool {
	return !m.ValueSetTime.IsZero() && now.Sub(m.ValueSetTime) <= maxAge
}
