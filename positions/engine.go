package positions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/metrics"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

var (
	ErrPositionNotFound  = errors.New("position not found")
	ErrTokenNotSupported = errors.New("token not supported for positions")
	ErrTokenDeprecated   = errors.New("token is deprecated")
	ErrZeroAmount        = errors.New("amount must be positive")
	ErrZeroLeverage      = errors.New("leverage must be positive")
	ErrLeverageTooHigh   = errors.New("leverage exceeds the token cap")
	ErrOwnerMismatch     = errors.New("item does not belong to the account")
	ErrNonPositivePrice  = errors.New("entry price must be positive")
)

// AccountStore is the slice of the accounts engine the positions engine
// relies on.
type AccountStore interface {
	Account(id string) (*types.Account, error)
	Stats(accountID string) (*types.AccountStats, error)
	IncOpenPositions(accountID string) error
	DecOpenPositions(accountID string) error
}

// ProgramStore resolves the program a position was opened under.
type ProgramStore interface {
	Program(id string) (*types.Program, error)
}

// Engine owns the open leveraged positions and runs the position half of the
// incremental value-assertion protocol. The margin gate on open lives in the
// settlement engine, which calls in here once it has passed.
type Engine struct {
	log      *logging.Logger
	broker   broker.Interface
	accounts AccountStore
	programs ProgramStore

	positions map[string]*types.Position
}

func NewEngine(
	log *logging.Logger,
	cfg Config,
	brk broker.Interface,
	accounts AccountStore,
	programs ProgramStore,
) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:       log,
		broker:    brk,
		accounts:  accounts,
		programs:  programs,
		positions: map[string]*types.Position{},
	}
}

// Open records a position for the account. The caller must have verified
// margin already, this only validates the trade against the program's
// supported list.
func (e *Engine) Open(
	ctx context.Context,
	accountID string,
	tokenIndex uint64,
	positionType types.PositionType,
	amount *num.Uint,
	leverage uint16,
	entryPrice *num.Uint,
	entryPriceDecimals uint8,
	now time.Time,
) (*types.Position, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if leverage == 0 {
		return nil, ErrZeroLeverage
	}
	if entryPrice == nil || entryPrice.IsZero() {
		return nil, ErrNonPositivePrice
	}
	acc, err := e.accounts.Account(accountID)
	if err != nil {
		return nil, err
	}
	program, err := e.programs.Program(acc.ProgramID)
	if err != nil {
		return nil, err
	}
	posToken := program.PositionToken(tokenIndex)
	if posToken == nil {
		return nil, fmt.Errorf("%w: index %d", ErrTokenNotSupported, tokenIndex)
	}
	if posToken.Token.Deprecated {
		return nil, fmt.Errorf("%w: %s", ErrTokenDeprecated, posToken.Token.TokenInfo)
	}
	if leverage > posToken.MaxLeverage {
		return nil, fmt.Errorf("%w: %d > %d", ErrLeverageTooHigh, leverage, posToken.MaxLeverage)
	}

	p := &types.Position{
		ID:                 types.NewID(),
		AccountID:          accountID,
		ProgramID:          program.ID,
		Type:               positionType,
		Token:              posToken.Token,
		TokenIndex:         tokenIndex,
		Amount:             amount.Clone(),
		Leverage:           leverage,
		EntryPrice:         entryPrice.Clone(),
		EntryPriceDecimals: entryPriceDecimals,
		OpenTime:           now,
	}
	if err := e.accounts.IncOpenPositions(accountID); err != nil {
		return nil, err
	}
	e.positions[p.ID] = p

	if e.log.IsDebug() {
		e.log.Debug("position opened",
			logging.String("position-id", p.ID),
			logging.String("account-id", accountID),
			logging.String("type", positionType.String()),
			logging.BigUint("amount", amount),
			logging.Uint16("leverage", leverage),
		)
	}
	metrics.OpCounterInc("positions.open")
	metrics.OpenPositionsAdd(1)
	e.broker.Send(events.NewPositionCreatedEvent(ctx, p))
	return p, nil
}

// Position looks a position up by id.
func (e *Engine) Position(id string) (*types.Position, error) {
	p, ok := e.positions[id]
	if !ok {
		return nil, ErrPositionNotFound
	}
	return p, nil
}

// UPNL computes the unrealized profit and loss of a position at the given
// price, as a signed value scaled to the program's shared decimals. Leverage
// plays no part here, it only moves the margin requirement at open time.
func (e *Engine) UPNL(positionID string, price num.Decimal) (*num.Int, error) {
	p, ok := e.positions[positionID]
	if !ok {
		return nil, ErrPositionNotFound
	}
	program, err := e.programs.Program(p.ProgramID)
	if err != nil {
		return nil, err
	}
	return computeUPNL(p, price, program.SharedDecimals)
}

// computeUPNL is (price - entry) * amount for longs, sign inverted for
// shorts, expressed in shared-decimal value units.
func computeUPNL(p *types.Position, price num.Decimal, sharedDecimals uint8) (*num.Int, error) {
	diff := price.Sub(p.EntryPriceDecimal())
	if p.Type == types.PositionTypeShort {
		diff = diff.Neg()
	}
	value := diff.
		Mul(p.Amount.ToDecimal()).
		Mul(num.DecimalPow10(int32(sharedDecimals) - int32(p.Token.Decimals))).
		Truncate(0)

	mag, overflow := num.UintFromDecimal(value.Abs())
	if overflow {
		return nil, num.ErrUintOverflow
	}
	return num.IntFromUint(mag, !value.IsNegative()), nil
}

// Remove destroys a position and settles the account counter. Liquidations
// zero the counters up front, so they skip the decrement.
func (e *Engine) Remove(ctx context.Context, positionID string, liquidated bool) (*types.Position, error) {
	p, ok := e.positions[positionID]
	if !ok {
		return nil, ErrPositionNotFound
	}
	delete(e.positions, positionID)
	if !liquidated {
		if err := e.accounts.DecOpenPositions(p.AccountID); err != nil {
			return nil, err
		}
	}
	metrics.OpenPositionsAdd(-1)
	if liquidated {
		e.broker.Send(events.NewPositionLiquidatedEvent(ctx, p))
	}
	return p, nil
}
