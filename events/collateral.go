package events

import (
	"context"

	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

// CollateralDeposit is emitted when a collateral/marker pair is created.
type CollateralDeposit struct {
	*Base
	CollateralID       string
	CollateralMarkerID string
	AccountID          string
	TokenInfo          string
	Amount             *num.Uint
}

func NewCollateralDepositEvent(ctx context.Context, c *types.Collateral, m *types.CollateralMarker) *CollateralDeposit {
	return &CollateralDeposit{
		Base:               newBase(ctx, CollateralDepositEvent),
		CollateralID:       c.ID,
		CollateralMarkerID: m.ID,
		AccountID:          c.AccountID,
		TokenInfo:          c.Token.TokenInfo,
		Amount:             c.Amount.Clone(),
	}
}

// CollateralWithdraw is emitted on every withdrawal, MarkerDestroyed is set
// when the remaining amount reached zero and the pair was removed.
type CollateralWithdraw struct {
	*Base
	CollateralID            string
	CollateralMarkerID      string
	AccountID               string
	TokenInfo               string
	WithdrawnAmount         *num.Uint
	MarkerDestroyed         bool
	RemainingAmountInMarker *num.Uint
}

func NewCollateralWithdrawEvent(
	ctx context.Context,
	c *types.Collateral,
	m *types.CollateralMarker,
	withdrawn *num.Uint,
	destroyed bool,
) *CollateralWithdraw {
	return &CollateralWithdraw{
		Base:                    newBase(ctx, CollateralWithdrawEvent),
		CollateralID:            c.ID,
		CollateralMarkerID:      m.ID,
		AccountID:               c.AccountID,
		TokenInfo:               c.Token.TokenInfo,
		WithdrawnAmount:         withdrawn.Clone(),
		MarkerDestroyed:         destroyed,
		RemainingAmountInMarker: m.RemainingAmount.Clone(),
	}
}

// CollateralCombine is emitted when two same-token collaterals are merged
// into a fresh pair.
type CollateralCombine struct {
	*Base
	OldCollateralID1       string
	OldCollateralMarkerID1 string
	OldCollateralID2       string
	OldCollateralMarkerID2 string
	NewCollateralID        string
	NewCollateralMarkerID  string
	AccountID              string
	TokenInfo              string
	CombinedAmount         *num.Uint
}

func NewCollateralCombineEvent(
	ctx context.Context,
	old1, old2 *types.Collateral,
	oldMarker1, oldMarker2 *types.CollateralMarker,
	combined *types.Collateral,
	combinedMarker *types.CollateralMarker,
) *CollateralCombine {
	return &CollateralCombine{
		Base:                   newBase(ctx, CollateralCombineEvent),
		OldCollateralID1:       old1.ID,
		OldCollateralMarkerID1: oldMarker1.ID,
		OldCollateralID2:       old2.ID,
		OldCollateralMarkerID2: oldMarker2.ID,
		NewCollateralID:        combined.ID,
		NewCollateralMarkerID:  combinedMarker.ID,
		AccountID:              combined.AccountID,
		TokenInfo:              combined.Token.TokenInfo,
		CombinedAmount:         combined.Amount.Clone(),
	}
}

// CollateralMarkerLiquidated is emitted per marker seized by a liquidation.
type CollateralMarkerLiquidated struct {
	*Base
	CollateralMarkerID string
	AccountID          string
}

func NewCollateralMarkerLiquidatedEvent(ctx context.Context, m *types.CollateralMarker) *CollateralMarkerLiquidated {
	return &CollateralMarkerLiquidated{
		Base:               newBase(ctx, CollateralMarkerLiquidatedEvent),
		CollateralMarkerID: m.ID,
		AccountID:          m.AccountID,
	}
}

// StartCollateralValueAssertion is emitted when an accumulator is opened so
// the indexer can follow assertion runs.
type StartCollateralValueAssertion struct {
	*Base
	CVAID                    string
	AccountID                string
	ProgramID                string
	NumOpenCollateralObjects uint64
}

func NewStartCollateralValueAssertionEvent(
	ctx context.Context, cvaID, accountID, programID string, expected uint64,
) *StartCollateralValueAssertion {
	return &StartCollateralValueAssertion{
		Base:                     newBase(ctx, StartCollateralValueAssertionEvent),
		CVAID:                    cvaID,
		AccountID:                accountID,
		ProgramID:                programID,
		NumOpenCollateralObjects: expected,
	}
}

// StartPositionValueAssertion mirrors StartCollateralValueAssertion for the
// position side of the protocol.
type StartPositionValueAssertion struct {
	*Base
	PVAID            string
	AccountID        string
	NumOpenPositions uint64
}

func NewStartPositionValueAssertionEvent(
	ctx context.Context, pvaID, accountID string, expected uint64,
) *StartPositionValueAssertion {
	return &StartPositionValueAssertion{
		Base:             newBase(ctx, StartPositionValueAssertionEvent),
		PVAID:            pvaID,
		AccountID:        accountID,
		NumOpenPositions: expected,
	}
}
