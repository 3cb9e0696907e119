package positions

import (
	"context"
	"errors"

	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

var (
	ErrAssertionIncomplete   = errors.New("value assertion has not seen every item")
	ErrAccountStatsChanged   = errors.New("account position set changed during assertion")
	ErrAlreadyAccumulated    = errors.New("position already accumulated in this assertion")
	ErrAssertionAccountMatch = errors.New("assertion was started for another account")
)

// ValueAssertion accumulates the signed unrealized profit and loss over an
// account's open positions. Same shape as the collateral accumulator, with a
// signed total since losses outweigh gains as easily as the reverse.
type ValueAssertion struct {
	ID        string
	AccountID string

	total     *num.Int
	processed uint64
	expected  uint64
	seen      map[string]struct{}
}

// Total returns the accumulated signed value so far. Only trustworthy once
// CompleteValueAssertion has passed.
func (a *ValueAssertion) Total() *num.Int {
	return a.total.Clone()
}

func (a *ValueAssertion) Processed() uint64 {
	return a.processed
}

func (a *ValueAssertion) Expected() uint64 {
	return a.expected
}

// StartValueAssertion opens an accumulator for the account. The expected
// item count is read from the live account stats at this moment.
func (e *Engine) StartValueAssertion(ctx context.Context, accountID string) (*ValueAssertion, error) {
	if _, err := e.accounts.Account(accountID); err != nil {
		return nil, err
	}
	st, err := e.accounts.Stats(accountID)
	if err != nil {
		return nil, err
	}
	a := &ValueAssertion{
		ID:        types.NewID(),
		AccountID: accountID,
		total:     num.IntZero(),
		expected:  st.NumOpenPositions,
		seen:      map[string]struct{}{},
	}
	e.broker.Send(events.NewStartPositionValueAssertionEvent(ctx, a.ID, accountID, a.expected))
	return a, nil
}

// AccumulateValue folds one position into the assertion: the position must
// belong to the assertion's account and not have been counted yet, its UPNL
// is computed at the supplied price and added to the signed total.
func (e *Engine) AccumulateValue(a *ValueAssertion, positionID string, price num.Decimal) error {
	p, ok := e.positions[positionID]
	if !ok {
		return ErrPositionNotFound
	}
	if p.AccountID != a.AccountID {
		return ErrOwnerMismatch
	}
	if _, dup := a.seen[positionID]; dup {
		return ErrAlreadyAccumulated
	}
	upnl, err := e.UPNL(positionID, price)
	if err != nil {
		return err
	}
	a.total.Add(upnl)
	a.seen[positionID] = struct{}{}
	a.processed++
	if e.log.IsDebug() {
		e.log.Debug("position value accumulated",
			logging.String("pva-id", a.ID),
			logging.String("position-id", positionID),
			logging.BigInt("upnl", upnl),
			logging.Uint64("processed", a.processed),
			logging.Uint64("expected", a.expected),
		)
	}
	return nil
}

// CompleteValueAssertion verifies the accumulator saw exactly the expected
// number of positions and that the account's position set did not change
// since the assertion started, then returns the signed total.
func (e *Engine) CompleteValueAssertion(a *ValueAssertion, accountID string) (*num.Int, error) {
	if a.AccountID != accountID {
		return nil, ErrAssertionAccountMatch
	}
	if a.processed != a.expected {
		return nil, ErrAssertionIncomplete
	}
	st, err := e.accounts.Stats(accountID)
	if err != nil {
		return nil, err
	}
	if st.NumOpenPositions != a.expected {
		return nil, ErrAccountStatsChanged
	}
	return a.Total(), nil
}
