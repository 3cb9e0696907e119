package events

import (
	"context"

	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

// CollateralTransferCreated is emitted when settlement schedules a move from
// collateral into a vault. Fulfilled is always false at creation.
type CollateralTransferCreated struct {
	*Base
	TransferID         string
	CollateralMarkerID string
	CollateralAddress  string
	Amount             *num.Uint
	ToVaultAddress     string
}

func NewCollateralTransferCreatedEvent(ctx context.Context, t *types.CollateralTransfer) *CollateralTransferCreated {
	return &CollateralTransferCreated{
		Base:               newBase(ctx, CollateralTransferCreatedEvent),
		TransferID:         t.ID,
		CollateralMarkerID: t.CollateralMarkerID,
		CollateralAddress:  t.CollateralID,
		Amount:             t.Amount.Clone(),
		ToVaultAddress:     t.ToVaultAddress,
	}
}

// VaultTransferCreated is emitted when settlement schedules a profit payout
// from a vault to a user.
type VaultTransferCreated struct {
	*Base
	TransferID    string
	VaultMarkerID string
	VaultAddress  string
	Amount        *num.Uint
	ToUserAddress string
}

func NewVaultTransferCreatedEvent(ctx context.Context, t *types.VaultTransfer) *VaultTransferCreated {
	return &VaultTransferCreated{
		Base:          newBase(ctx, VaultTransferCreatedEvent),
		TransferID:    t.ID,
		VaultMarkerID: t.VaultMarkerID,
		VaultAddress:  t.VaultAddress,
		Amount:        t.Amount.Clone(),
		ToUserAddress: t.ToUserAddress,
	}
}

// TransferFulfilled is emitted by the execute step once the funds actually
// moved. MovedAmount may be lower than the scheduled amount when the source
// balance shrank in between.
type TransferFulfilled struct {
	*Base
	TransferID  string
	MovedAmount *num.Uint
	TransferTo  string
}

func NewTransferFulfilledEvent(ctx context.Context, transferID string, moved *num.Uint, to types.TransferTo) *TransferFulfilled {
	return &TransferFulfilled{
		Base:        newBase(ctx, TransferFulfilledEvent),
		TransferID:  transferID,
		MovedAmount: moved.Clone(),
		TransferTo:  to.String(),
	}
}
