package types

import (
	"code.pismoprotocol.io/pismo/types/num"
)

// TransferTo says which side of the venue a settlement pays out to.
type TransferTo int

const (
	TransferToVault TransferTo = iota
	TransferToUser
)

func (t TransferTo) String() string {
	if t == TransferToUser {
		return "User"
	}
	return "Vault"
}

// CollateralTransfer is a scheduled settlement instruction moving value from
// an account's collateral into a vault. It is created by close/liquidation
// accounting and only applied, once, by the execute step.
type CollateralTransfer struct {
	ID                 string
	CollateralMarkerID string
	CollateralID       string
	Amount             *num.Uint
	ToVaultAddress     string
	Fulfilled          bool
}

// VaultTransfer is a scheduled settlement instruction paying profit from a
// vault out to a user. Same two-phase lifecycle as CollateralTransfer.
type VaultTransfer struct {
	ID            string
	VaultMarkerID string
	VaultAddress  string
	Amount        *num.Uint
	ToUserAddress string
	Fulfilled     bool
}
