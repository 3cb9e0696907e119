package events

import (
	"context"

	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

// VaultCreated is emitted once when a vault/marker pair is initialised for a
// token.
type VaultCreated struct {
	*Base
	VaultAddress       string
	VaultMarkerAddress string
	CoinTokenInfo      string
	LPTokenInfo        string
}

func NewVaultCreatedEvent(ctx context.Context, v *types.Vault, m *types.VaultMarker) *VaultCreated {
	return &VaultCreated{
		Base:               newBase(ctx, VaultCreatedEvent),
		VaultAddress:       v.Address,
		VaultMarkerAddress: m.ID,
		CoinTokenInfo:      v.Token.TokenInfo,
		LPTokenInfo:        v.LPTokenInfo,
	}
}

// LiquidityDeposited is emitted when an LP deposit mints shares.
type LiquidityDeposited struct {
	*Base
	VaultAddress string
	Depositor    string
	AmountIn     *num.Uint
	SharesMinted *num.Uint
	VaultBalance *num.Uint
	LPSupply     *num.Uint
}

func NewLiquidityDepositedEvent(
	ctx context.Context, v *types.Vault, depositor string, amountIn, sharesMinted *num.Uint,
) *LiquidityDeposited {
	return &LiquidityDeposited{
		Base:         newBase(ctx, LiquidityDepositedEvent),
		VaultAddress: v.Address,
		Depositor:    depositor,
		AmountIn:     amountIn.Clone(),
		SharesMinted: sharesMinted.Clone(),
		VaultBalance: v.Balance.Clone(),
		LPSupply:     v.LPSupply.Clone(),
	}
}

// LiquidityWithdrawn is emitted when LP shares are burned for coin.
type LiquidityWithdrawn struct {
	*Base
	VaultAddress string
	Withdrawer   string
	SharesBurned *num.Uint
	AmountOut    *num.Uint
	VaultBalance *num.Uint
	LPSupply     *num.Uint
}

func NewLiquidityWithdrawnEvent(
	ctx context.Context, v *types.Vault, withdrawer string, sharesBurned, amountOut *num.Uint,
) *LiquidityWithdrawn {
	return &LiquidityWithdrawn{
		Base:         newBase(ctx, LiquidityWithdrawnEvent),
		VaultAddress: v.Address,
		Withdrawer:   withdrawer,
		SharesBurned: sharesBurned.Clone(),
		AmountOut:    amountOut.Clone(),
		VaultBalance: v.Balance.Clone(),
		LPSupply:     v.LPSupply.Clone(),
	}
}
