package accounts

import (
	"context"
	"errors"

	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/types"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrStatsNotFound    = errors.New("account stats not found")
	ErrCounterUnderflow = errors.New("account counter underflow")
)

// Engine owns accounts and their aggregate counters. Every other subsystem
// mutates the counters exclusively through the increment/decrement/zero
// operations here, which is what keeps the counters equal to the number of
// live related objects.
type Engine struct {
	log    *logging.Logger
	broker broker.Interface

	accounts map[string]*types.Account
	stats    map[string]*types.AccountStats // keyed by account id
}

func NewEngine(log *logging.Logger, cfg Config, brk broker.Interface) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:      log,
		broker:   brk,
		accounts: map[string]*types.Account{},
		stats:    map[string]*types.AccountStats{},
	}
}

// CreateAccount creates an account and its stats pair for the given owner,
// counters at zero.
func (e *Engine) CreateAccount(ctx context.Context, owner string, program *types.Program) (*types.Account, error) {
	acc := &types.Account{
		ID:        types.NewID(),
		Owner:     owner,
		ProgramID: program.ID,
	}
	st := &types.AccountStats{
		ID:        types.NewID(),
		AccountID: acc.ID,
	}
	acc.StatsID = st.ID
	e.accounts[acc.ID] = acc
	e.stats[acc.ID] = st

	e.log.Info("account created",
		logging.String("account-id", acc.ID),
		logging.String("owner", owner),
		logging.String("program-id", program.ID),
	)
	e.broker.Send(events.NewAccountCreatedEvent(ctx, acc))
	return acc, nil
}

// Account looks an account up by id.
func (e *Engine) Account(id string) (*types.Account, error) {
	acc, ok := e.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// Stats returns a copy of the account's counters, so callers can't bypass
// the mutation operations.
func (e *Engine) Stats(accountID string) (*types.AccountStats, error) {
	st, ok := e.stats[accountID]
	if !ok {
		return nil, ErrStatsNotFound
	}
	return st.Clone(), nil
}

func (e *Engine) IncCollateralCount(accountID string) error {
	st, ok := e.stats[accountID]
	if !ok {
		return ErrStatsNotFound
	}
	st.CollateralCount++
	return nil
}

func (e *Engine) DecCollateralCount(accountID string) error {
	st, ok := e.stats[accountID]
	if !ok {
		return ErrStatsNotFound
	}
	if st.CollateralCount == 0 {
		return ErrCounterUnderflow
	}
	st.CollateralCount--
	return nil
}

func (e *Engine) IncOpenPositions(accountID string) error {
	st, ok := e.stats[accountID]
	if !ok {
		return ErrStatsNotFound
	}
	st.NumOpenPositions++
	return nil
}

func (e *Engine) DecOpenPositions(accountID string) error {
	st, ok := e.stats[accountID]
	if !ok {
		return ErrStatsNotFound
	}
	if st.NumOpenPositions == 0 {
		return ErrCounterUnderflow
	}
	st.NumOpenPositions--
	return nil
}

// ZeroStats resets both counters, used by liquidation once every related
// object is scheduled for destruction.
func (e *Engine) ZeroStats(accountID string) error {
	st, ok := e.stats[accountID]
	if !ok {
		return ErrStatsNotFound
	}
	st.NumOpenPositions = 0
	st.CollateralCount = 0
	return nil
}
