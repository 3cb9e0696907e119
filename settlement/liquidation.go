package settlement

import (
	"context"
	"time"

	"code.pismoprotocol.io/pismo/collateral"
	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/metrics"
	"code.pismoprotocol.io/pismo/positions"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

// Liquidate unwinds an insolvent account. The caller supplies every live
// collateral marker and position for the account, the completed assertions
// prove the set was fully and freshly priced. Validation runs to the end
// before the first state change, so a rejected liquidation leaves the account
// untouched. On success the account counters are zeroed, all positions are
// destroyed and each collateral marker's full remaining amount is scheduled
// as a transfer into the vault accepting its token.
func (e *Engine) Liquidate(
	ctx context.Context,
	accountID string,
	cva *collateral.ValueAssertion,
	pva *positions.ValueAssertion,
	collateralMarkerIDs []string,
	positionIDs []string,
	now time.Time,
) ([]*types.CollateralTransfer, error) {
	collateralValue, err := e.collateral.CompleteValueAssertion(cva, accountID)
	if err != nil {
		return nil, err
	}
	upnl, err := e.positions.CompleteValueAssertion(pva, accountID)
	if err != nil {
		return nil, err
	}
	equity := num.IntFromUint(collateralValue, true)
	equity.Add(upnl)
	if !equity.IsNegative() {
		metrics.RejectionCounterInc("settlement.liquidate", "not-insolvent")
		return nil, ErrNotInsolvent
	}

	st, err := e.accounts.Stats(accountID)
	if err != nil {
		return nil, err
	}
	if uint64(len(collateralMarkerIDs)) != st.CollateralCount ||
		uint64(len(positionIDs)) != st.NumOpenPositions {
		metrics.RejectionCounterInc("settlement.liquidate", "count-mismatch")
		return nil, ErrCountMismatch
	}

	markers := make([]*types.CollateralMarker, 0, len(collateralMarkerIDs))
	vaultFor := make(map[string]string, len(collateralMarkerIDs))
	maxAge := e.collateral.MaxValueAge()
	for _, id := range collateralMarkerIDs {
		m, err := e.collateral.Marker(id)
		if err != nil {
			return nil, err
		}
		if m.AccountID != accountID {
			return nil, ErrOwnerMismatch
		}
		if m.Liquidated {
			return nil, collateral.ErrMarkerLiquidated
		}
		if !m.FreshAt(now, maxAge) {
			metrics.RejectionCounterInc("settlement.liquidate", "stale-value")
			return nil, ErrStaleValue
		}
		v, err := e.vaults.VaultForToken(m.Token.TokenInfo)
		if err != nil {
			return nil, err
		}
		markers = append(markers, m)
		vaultFor[m.ID] = v.Address
	}
	for _, id := range positionIDs {
		p, err := e.positions.Position(id)
		if err != nil {
			return nil, err
		}
		if p.AccountID != accountID {
			return nil, ErrOwnerMismatch
		}
	}

	// validation done, mutate
	if err := e.accounts.ZeroStats(accountID); err != nil {
		return nil, err
	}
	for _, id := range positionIDs {
		if _, err := e.positions.Remove(ctx, id, true); err != nil {
			return nil, err
		}
	}
	transfers := make([]*types.CollateralTransfer, 0, len(markers))
	for _, m := range markers {
		if err := e.collateral.MarkLiquidated(m.ID); err != nil {
			return nil, err
		}
		t := &types.CollateralTransfer{
			ID:                 types.NewID(),
			CollateralMarkerID: m.ID,
			CollateralID:       m.CollateralID,
			Amount:             m.RemainingAmount.Clone(),
			ToVaultAddress:     vaultFor[m.ID],
		}
		e.collateralTransfers[t.ID] = t
		transfers = append(transfers, t)
		e.broker.Send(events.NewCollateralMarkerLiquidatedEvent(ctx, m))
		e.broker.Send(events.NewCollateralTransferCreatedEvent(ctx, t))
		metrics.TransferScheduledInc("vault")
	}

	e.log.Info("account liquidated",
		logging.String("account-id", accountID),
		logging.BigInt("equity", equity),
		logging.Int("positions", len(positionIDs)),
		logging.Int("collateral-markers", len(markers)),
	)
	metrics.LiquidationInc()
	return transfers, nil
}
