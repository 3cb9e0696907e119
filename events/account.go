package events

import (
	"context"

	"code.pismoprotocol.io/pismo/types"
)

// NewAccount is emitted once when an account and its stats pair are created.
type NewAccount struct {
	*Base
	AccountID string
	StatsID   string
	ProgramID string
	Owner     string
}

func NewAccountCreatedEvent(ctx context.Context, acc *types.Account) *NewAccount {
	return &NewAccount{
		Base:      newBase(ctx, NewAccountEvent),
		AccountID: acc.ID,
		StatsID:   acc.StatsID,
		ProgramID: acc.ProgramID,
		Owner:     acc.Owner,
	}
}

// TokenRegistered is emitted when the registry accepts a new token
// definition.
type TokenRegistered struct {
	*Base
	TokenInfo   string
	PriceFeedID string
	Decimals    uint8
	OracleKind  string
}

func NewTokenRegisteredEvent(ctx context.Context, t *types.TokenIdentifier) *TokenRegistered {
	return &TokenRegistered{
		Base:        newBase(ctx, TokenRegisteredEvent),
		TokenInfo:   t.TokenInfo,
		PriceFeedID: t.PriceFeedID,
		Decimals:    t.Decimals,
		OracleKind:  t.OracleKind.String(),
	}
}
