package settlement

import (
	"context"
	"time"

	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/metrics"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

// ClosePosition settles a position at the given price. Profit schedules
// VaultTransfers paying the owner out of the supplied vault markers, split
// proportionally to their value. Loss schedules CollateralTransfers moving
// value from the supplied collateral markers into the vaults accepting their
// tokens, split the same way. A flat close schedules nothing. Transfers are
// only scheduled here, balances move in the execute step.
func (e *Engine) ClosePosition(
	ctx context.Context,
	positionID string,
	closePrice num.Decimal,
	vaultMarkerIDs []string,
	collateralMarkerIDs []string,
	now time.Time,
) (*num.Int, error) {
	pos, err := e.positions.Position(positionID)
	if err != nil {
		return nil, err
	}
	acc, err := e.accounts.Account(pos.AccountID)
	if err != nil {
		return nil, err
	}
	upnl, err := e.positions.UPNL(positionID, closePrice)
	if err != nil {
		return nil, err
	}

	transferTo := types.TransferToVault
	switch {
	case upnl.IsPositive():
		transferTo = types.TransferToUser
		if err := e.schedulePayout(ctx, pos, acc.Owner, upnl.U, vaultMarkerIDs, now); err != nil {
			return nil, err
		}
	case upnl.IsNegative():
		if err := e.scheduleLossCollection(ctx, pos, upnl.U, collateralMarkerIDs, now); err != nil {
			return nil, err
		}
	}

	if _, err := e.positions.Remove(ctx, positionID, false); err != nil {
		return nil, err
	}
	delta := priceDelta(pos, closePrice)
	e.broker.Send(events.NewPositionClosedEvent(ctx, pos, closePrice, delta, upnl.U, transferTo))
	metrics.OpCounterInc("settlement.close")
	if e.log.IsDebug() {
		e.log.Debug("position closed",
			logging.String("position-id", pos.ID),
			logging.String("account-id", pos.AccountID),
			logging.BigInt("upnl", upnl),
		)
	}
	return upnl, nil
}

// priceDelta is the absolute entry/close difference expressed in the entry
// price's own decimals.
func priceDelta(pos *types.Position, closePrice num.Decimal) *num.Uint {
	d := closePrice.Sub(pos.EntryPriceDecimal()).
		Abs().
		Mul(num.DecimalPow10(int32(pos.EntryPriceDecimals))).
		Truncate(0)
	delta, _ := num.UintFromDecimal(d)
	return delta
}

// schedulePayout splits a profit over the supplied vault markers in
// proportion to each marker's asserted value and schedules one VaultTransfer
// per contributing vault. The last vault absorbs the rounding remainder so
// the shares always add up to the full amount. Duplicate ids and zero-valued
// markers are skipped.
func (e *Engine) schedulePayout(
	ctx context.Context,
	pos *types.Position,
	owner string,
	profit *num.Uint,
	vaultMarkerIDs []string,
	now time.Time,
) error {
	markers := make([]*types.VaultMarker, 0, len(vaultMarkerIDs))
	seen := make(map[string]struct{}, len(vaultMarkerIDs))
	totalValue := num.UintZero()
	maxAge := e.vaults.MaxValueAge()
	for _, id := range vaultMarkerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		m, err := e.vaults.Marker(id)
		if err != nil {
			return err
		}
		if m.Token.TokenInfo != pos.Token.TokenInfo {
			return ErrTokenMismatch
		}
		if !m.FreshAt(now, maxAge) {
			return ErrStaleValue
		}
		// a zero-value vault contributes nothing to the split
		if m.Value.IsZero() {
			continue
		}
		markers = append(markers, m)
		totalValue.AddSum(m.Value)
	}
	if totalValue.IsZero() {
		return ErrZeroDenominator
	}

	remaining := profit.Clone()
	for i, m := range markers {
		share := remaining.Clone()
		if i < len(markers)-1 {
			var err error
			share, err = num.MulDiv(profit, m.Value, totalValue)
			if err != nil {
				return err
			}
			share = num.Min(share, remaining).Clone()
		}
		if share.IsZero() {
			continue
		}
		// value share back to token units at the marker's own ratio
		tokens, err := num.MulDiv(share, m.Balance, m.Value)
		if err != nil {
			return err
		}
		remaining.Sub(remaining, share)
		t := &types.VaultTransfer{
			ID:            types.NewID(),
			VaultMarkerID: m.ID,
			VaultAddress:  m.VaultAddress,
			Amount:        tokens,
			ToUserAddress: owner,
		}
		e.vaultTransfers[t.ID] = t
		e.broker.Send(events.NewVaultTransferCreatedEvent(ctx, t))
		metrics.TransferScheduledInc("user")
	}
	return nil
}

// scheduleLossCollection splits a loss over the supplied collateral markers
// in proportion to each marker's asserted value, scheduling one
// CollateralTransfer per marker into the vault accepting its token.
// Duplicate ids and zero-valued markers are skipped.
func (e *Engine) scheduleLossCollection(
	ctx context.Context,
	pos *types.Position,
	loss *num.Uint,
	collateralMarkerIDs []string,
	now time.Time,
) error {
	markers := make([]*types.CollateralMarker, 0, len(collateralMarkerIDs))
	vaultFor := make(map[string]string, len(collateralMarkerIDs))
	seen := make(map[string]struct{}, len(collateralMarkerIDs))
	totalValue := num.UintZero()
	maxAge := e.collateral.MaxValueAge()
	for _, id := range collateralMarkerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		m, err := e.collateral.Marker(id)
		if err != nil {
			return err
		}
		if m.AccountID != pos.AccountID {
			return ErrOwnerMismatch
		}
		if !m.FreshAt(now, maxAge) {
			return ErrStaleValue
		}
		v, err := e.vaults.VaultForToken(m.Token.TokenInfo)
		if err != nil {
			return err
		}
		// a zero-value marker contributes nothing to the split
		if m.Value.IsZero() {
			continue
		}
		markers = append(markers, m)
		vaultFor[m.ID] = v.Address
		totalValue.AddSum(m.Value)
	}
	if totalValue.IsZero() {
		return ErrZeroDenominator
	}

	remaining := loss.Clone()
	for i, m := range markers {
		share := remaining.Clone()
		if i < len(markers)-1 {
			var err error
			share, err = num.MulDiv(loss, m.Value, totalValue)
			if err != nil {
				return err
			}
			share = num.Min(share, remaining).Clone()
		}
		if share.IsZero() {
			continue
		}
		tokens, err := num.MulDiv(share, m.RemainingAmount, m.Value)
		if err != nil {
			return err
		}
		remaining.Sub(remaining, share)
		t := &types.CollateralTransfer{
			ID:                 types.NewID(),
			CollateralMarkerID: m.ID,
			CollateralID:       m.CollateralID,
			Amount:             tokens,
			ToVaultAddress:     vaultFor[m.ID],
		}
		e.collateralTransfers[t.ID] = t
		e.broker.Send(events.NewCollateralTransferCreatedEvent(ctx, t))
		metrics.TransferScheduledInc("vault")
	}
	return nil
}

// CollateralTransfer looks a scheduled collateral transfer up by id.
func (e *Engine) CollateralTransfer(id string) (*types.CollateralTransfer, error) {
	t, ok := e.collateralTransfers[id]
	if !ok {
		return nil, ErrTransferNotFound
	}
	return t, nil
}

// VaultTransfer looks a scheduled vault transfer up by id.
func (e *Engine) VaultTransfer(id string) (*types.VaultTransfer, error) {
	t, ok := e.vaultTransfers[id]
	if !ok {
		return nil, ErrTransferNotFound
	}
	return t, nil
}

// ExecuteVaultTransfer applies a scheduled payout, moving at most the vault's
// current balance out to the user and marking the transfer fulfilled. Returns
// the amount actually moved.
func (e *Engine) ExecuteVaultTransfer(ctx context.Context, transferID string) (*num.Uint, error) {
	t, ok := e.vaultTransfers[transferID]
	if !ok {
		return nil, ErrTransferNotFound
	}
	if t.Fulfilled {
		return nil, ErrTransferAlreadyFulfilled
	}
	moved, err := e.vaults.DebitForSettlement(t.VaultAddress, t.Amount)
	if err != nil {
		return nil, err
	}
	t.Fulfilled = true
	e.broker.Send(events.NewTransferFulfilledEvent(ctx, t.ID, moved, types.TransferToUser))
	metrics.TransferExecutedInc("user")
	return moved, nil
}

// ExecuteCollateralTransfer applies a scheduled loss collection, taking at
// most the collateral's current balance and crediting it to the destination
// vault. Returns the amount actually moved.
func (e *Engine) ExecuteCollateralTransfer(ctx context.Context, transferID string) (*num.Uint, error) {
	t, ok := e.collateralTransfers[transferID]
	if !ok {
		return nil, ErrTransferNotFound
	}
	if t.Fulfilled {
		return nil, ErrTransferAlreadyFulfilled
	}
	moved, err := e.collateral.TakeForSettlement(t.CollateralID, t.Amount)
	if err != nil {
		return nil, err
	}
	if err := e.vaults.CreditBalance(t.ToVaultAddress, moved); err != nil {
		return nil, err
	}
	t.Fulfilled = true
	e.broker.Send(events.NewTransferFulfilledEvent(ctx, t.ID, moved, types.TransferToVault))
	metrics.TransferExecutedInc("vault")
	return moved, nil
}
