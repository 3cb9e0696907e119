package types

// Account is a user's membership in a program. It is immutable after
// creation, all mutable aggregates live on the paired AccountStats.
type Account struct {
	ID        string
	Owner     string
	ProgramID string
	StatsID   string
}

// AccountStats carries the aggregate counters for an account. The counters
// are the source of truth for the completeness checks of the value assertion
// and liquidation protocols: CollateralCount always equals the number of live
// collateral markers, NumOpenPositions the number of live positions.
type AccountStats struct {
	ID        string
	AccountID string

	NumOpenPositions uint64
	CollateralCount  uint64
}

func (s *AccountStats) Clone() *AccountStats {
	cpy := *s
	return &cpy
}
