package events

import (
	"context"

	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

// PositionCreated is emitted when a position passes the margin check and is
// recorded.
type PositionCreated struct {
	*Base
	PositionID         string
	PositionType       string
	Amount             *num.Uint
	LeverageMultiplier uint16
	EntryPrice         *num.Uint
	EntryPriceDecimals uint8
	TokenIndex         uint64
	PriceFeedID        string
	AccountID          string
}

func NewPositionCreatedEvent(ctx context.Context, p *types.Position) *PositionCreated {
	return &PositionCreated{
		Base:               newBase(ctx, PositionCreatedEvent),
		PositionID:         p.ID,
		PositionType:       p.Type.String(),
		Amount:             p.Amount.Clone(),
		LeverageMultiplier: p.Leverage,
		EntryPrice:         p.EntryPrice.Clone(),
		EntryPriceDecimals: p.EntryPriceDecimals,
		TokenIndex:         p.TokenIndex,
		PriceFeedID:        p.Token.PriceFeedID,
		AccountID:          p.AccountID,
	}
}

// PositionClosed is emitted when a position is closed, carrying the absolute
// price delta, the settled transfer amount and which side it goes to.
type PositionClosed struct {
	*Base
	PositionID         string
	PositionType       string
	Amount             *num.Uint
	LeverageMultiplier uint16
	EntryPrice         *num.Uint
	EntryPriceDecimals uint8
	ClosePrice         num.Decimal
	PriceDelta         *num.Uint
	TransferAmount     *num.Uint
	TransferTo         string
	AccountID          string
}

func NewPositionClosedEvent(
	ctx context.Context,
	p *types.Position,
	closePrice num.Decimal,
	priceDelta, transferAmount *num.Uint,
	transferTo types.TransferTo,
) *PositionClosed {
	return &PositionClosed{
		Base:               newBase(ctx, PositionClosedEvent),
		PositionID:         p.ID,
		PositionType:       p.Type.String(),
		Amount:             p.Amount.Clone(),
		LeverageMultiplier: p.Leverage,
		EntryPrice:         p.EntryPrice.Clone(),
		EntryPriceDecimals: p.EntryPriceDecimals,
		ClosePrice:         closePrice,
		PriceDelta:         priceDelta.Clone(),
		TransferAmount:     transferAmount.Clone(),
		TransferTo:         transferTo.String(),
		AccountID:          p.AccountID,
	}
}

// PositionLiquidated is emitted per position destroyed by a liquidation.
type PositionLiquidated struct {
	*Base
	PositionID string
	AccountID  string
}

func NewPositionLiquidatedEvent(ctx context.Context, p *types.Position) *PositionLiquidated {
	return &PositionLiquidated{
		Base:       newBase(ctx, PositionLiquidatedEvent),
		PositionID: p.ID,
		AccountID:  p.AccountID,
	}
}
