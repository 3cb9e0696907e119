package collateral

import (
	"context"
	"errors"
	"time"

	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

var (
	ErrAssertionIncomplete   = errors.New("value assertion has not seen every item")
	ErrAccountStatsChanged   = errors.New("account collateral set changed during assertion")
	ErrMarkerValueChanged    = errors.New("marker value changed during assertion")
	ErrAlreadyAccumulated    = errors.New("marker already accumulated in this assertion")
	ErrAssertionAccountMatch = errors.New("assertion was started for another account")
)

// ValueAssertion is the transient accumulator proving a complete, freshly
// priced sum over an account's scattered collateral markers. It is created
// at the start of a margin-sensitive operation and discarded at its end.
type ValueAssertion struct {
	ID        string
	AccountID string
	ProgramID string

	total     *num.Uint
	processed uint64
	expected  uint64
	// seen records the value each marker contributed, re-checked against
	// the live marker on completion
	seen map[string]*num.Uint
}

// Total returns the accumulated value so far. Only trustworthy once
// CompleteValueAssertion has passed.
func (a *ValueAssertion) Total() *num.Uint {
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
	acc, err := e.accounts.Account(accountID)
	if err != nil {
		return nil, err
	}
	st, err := e.accounts.Stats(accountID)
	if err != nil {
		return nil, err
	}
	a := &ValueAssertion{
		ID:        types.NewID(),
		AccountID: accountID,
		ProgramID: acc.ProgramID,
		total:     num.UintZero(),
		expected:  st.CollateralCount,
		seen:      map[string]*num.Uint{},
	}
	e.broker.Send(events.NewStartCollateralValueAssertionEvent(ctx, a.ID, accountID, acc.ProgramID, a.expected))
	return a, nil
}

// AccumulateValue folds one marker into the assertion: the marker must
// belong to the assertion's account and not have been counted yet, its value
// is refreshed with the supplied price and stamped at now before being
// added.
func (e *Engine) AccumulateValue(a *ValueAssertion, markerID string, price num.Decimal, now time.Time) error {
	m, ok := e.markers[markerID]
	if !ok {
		return ErrMarkerNotFound
	}
	if m.AccountID != a.AccountID {
		return ErrOwnerMismatch
	}
	if _, dup := a.seen[markerID]; dup {
		return ErrAlreadyAccumulated
	}
	if err := e.RefreshValue(markerID, price, now); err != nil {
		return err
	}
	a.total.AddSum(m.Value)
	a.seen[markerID] = m.Value.Clone()
	a.processed++
	if e.log.IsDebug() {
		e.log.Debug("collateral value accumulated",
			logging.String("cva-id", a.ID),
			logging.String("marker-id", markerID),
			logging.BigUint("value", m.Value),
			logging.Uint64("processed", a.processed),
			logging.Uint64("expected", a.expected),
		)
	}
	return nil
}

// CompleteValueAssertion verifies the accumulator saw exactly the expected
// number of items, that the account's collateral set did not change since
// the assertion started, and that no accumulated marker was revalued or
// destroyed after it was counted, then returns the total. Freshness was
// enforced at each accumulate step.
func (e *Engine) CompleteValueAssertion(a *ValueAssertion, accountID string) (*num.Uint, error) {
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
	if st.CollateralCount != a.expected {
		return nil, ErrAccountStatsChanged
	}
	for id, v := range a.seen {
		m, ok := e.markers[id]
		if !ok || !m.Value.EQ(v) {
			return nil, ErrMarkerValueChanged
		}
	}
	return a.Total(), nil
}
