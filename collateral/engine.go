package collateral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/metrics"
	"code.pismoprotocol.io/pismo/oracles"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

var (
	ErrCollateralNotFound  = errors.New("collateral not found")
	ErrMarkerNotFound      = errors.New("collateral marker not found")
	ErrTokenNotSupported   = errors.New("token not supported as collateral")
	ErrTokenDeprecated     = errors.New("token is deprecated")
	ErrZeroAmount          = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("withdrawal exceeds collateral balance")
	ErrTokenMismatch       = errors.New("collaterals hold different tokens")
	ErrOwnerMismatch       = errors.New("item does not belong to the account")
	ErrMarkerLiquidated    = errors.New("collateral marker already liquidated")
)

// AccountStore is the slice of the accounts engine the collateral engine
// relies on. Counters are only ever touched through it.
type AccountStore interface {
	Account(id string) (*types.Account, error)
	Stats(accountID string) (*types.AccountStats, error)
	IncCollateralCount(accountID string) error
	DecCollateralCount(accountID string) error
}

// ProgramStore resolves the program a collateral was deposited under, needed
// for the shared decimal precision when pricing markers.
type ProgramStore interface {
	Program(id string) (*types.Program, error)
}

// Engine owns the collateral deposits and their valuation markers, and runs
// the collateral half of the incremental value-assertion protocol.
type Engine struct {
	log      *logging.Logger
	cfg      Config
	broker   broker.Interface
	accounts AccountStore
	programs ProgramStore

	collaterals map[string]*types.Collateral
	markers     map[string]*types.CollateralMarker
	// marker id by collateral id
	markerByCollateral map[string]string
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
		log:                log,
		cfg:                cfg,
		broker:             brk,
		accounts:           accounts,
		programs:           programs,
		collaterals:        map[string]*types.Collateral{},
		markers:            map[string]*types.CollateralMarker{},
		markerByCollateral: map[string]string{},
	}
}

// MaxValueAge is the window within which a marker's cached value may feed
// margin or liquidation decisions.
func (e *Engine) MaxValueAge() time.Duration {
	return e.cfg.MaxValueAge.Get()
}

// Deposit creates a fresh collateral/marker pair for the account and
// increments its collateral counter. Every deposit mints a new pair, merging
// is the explicit Combine operation.
func (e *Engine) Deposit(
	ctx context.Context,
	accountID, tokenInfo string,
	amount *num.Uint,
) (*types.Collateral, *types.CollateralMarker, error) {
	if amount == nil || amount.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	acc, err := e.accounts.Account(accountID)
	if err != nil {
		return nil, nil, err
	}
	program, err := e.programs.Program(acc.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	token := program.CollateralToken(tokenInfo)
	if token == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrTokenNotSupported, tokenInfo)
	}
	if token.Deprecated {
		return nil, nil, fmt.Errorf("%w: %s", ErrTokenDeprecated, tokenInfo)
	}

	c := &types.Collateral{
		ID:        types.NewID(),
		AccountID: acc.ID,
		ProgramID: program.ID,
		Token:     token,
		Amount:    amount.Clone(),
	}
	m := &types.CollateralMarker{
		ID:              types.NewID(),
		CollateralID:    c.ID,
		AccountID:       acc.ID,
		Token:           token,
		RemainingAmount: amount.Clone(),
		Value:           num.UintZero(),
	}
	if err := e.accounts.IncCollateralCount(acc.ID); err != nil {
		return nil, nil, err
	}
	e.collaterals[c.ID] = c
	e.markers[m.ID] = m
	e.markerByCollateral[c.ID] = m.ID

	if e.log.IsDebug() {
		e.log.Debug("collateral deposited",
			logging.String("account-id", acc.ID),
			logging.String("token-info", tokenInfo),
			logging.BigUint("amount", amount),
		)
	}
	metrics.OpCounterInc("collateral.deposit")
	e.broker.Send(events.NewCollateralDepositEvent(ctx, c, m))
	return c, m, nil
}

// Withdraw decreases the collateral's remaining amount, destroying the pair
// and decrementing the account counter when it reaches zero. Withdrawals
// from deprecated tokens remain allowed.
func (e *Engine) Withdraw(ctx context.Context, collateralID string, amount *num.Uint) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	c, ok := e.collaterals[collateralID]
	if !ok {
		return ErrCollateralNotFound
	}
	m := e.markers[e.markerByCollateral[collateralID]]
	if amount.GT(c.Amount) {
		if e.log.IsDebug() {
			e.log.Debug("withdrawal rejected",
				logging.String("collateral-id", collateralID),
				logging.BigUint("amount", amount),
				logging.BigUint("balance", c.Amount),
			)
		}
		return ErrInsufficientBalance
	}

	oldAmount := c.Amount.Clone()
	c.Amount.Sub(c.Amount, amount)
	m.RemainingAmount.Copy(c.Amount)
	rescaleMarkerValue(m, oldAmount)
	destroyed := c.Amount.IsZero()
	if destroyed {
		e.removePair(c, m)
		if err := e.accounts.DecCollateralCount(c.AccountID); err != nil {
			return err
		}
	}
	metrics.OpCounterInc("collateral.withdraw")
	e.broker.Send(events.NewCollateralWithdrawEvent(ctx, c, m, amount, destroyed))
	return nil
}

// Combine merges two same-token collaterals of one account into a new pair,
// destroying both originals and decrementing the counter by one.
func (e *Engine) Combine(ctx context.Context, collateralID1, collateralID2 string) (*types.Collateral, error) {
	c1, ok := e.collaterals[collateralID1]
	if !ok {
		return nil, ErrCollateralNotFound
	}
	c2, ok := e.collaterals[collateralID2]
	if !ok {
		return nil, ErrCollateralNotFound
	}
	if c1.AccountID != c2.AccountID {
		return nil, ErrOwnerMismatch
	}
	if c1.Token.TokenInfo != c2.Token.TokenInfo {
		return nil, ErrTokenMismatch
	}

	m1 := e.markers[e.markerByCollateral[c1.ID]]
	m2 := e.markers[e.markerByCollateral[c2.ID]]

	combined := &types.Collateral{
		ID:        types.NewID(),
		AccountID: c1.AccountID,
		ProgramID: c1.ProgramID,
		Token:     c1.Token,
		Amount:    num.Sum(c1.Amount, c2.Amount),
	}
	marker := &types.CollateralMarker{
		ID:              types.NewID(),
		CollateralID:    combined.ID,
		AccountID:       combined.AccountID,
		Token:           combined.Token,
		RemainingAmount: combined.Amount.Clone(),
		Value:           num.UintZero(),
	}
	e.removePair(c1, m1)
	e.removePair(c2, m2)
	e.collaterals[combined.ID] = combined
	e.markers[marker.ID] = marker
	e.markerByCollateral[combined.ID] = marker.ID
	if err := e.accounts.DecCollateralCount(combined.AccountID); err != nil {
		return nil, err
	}

	e.broker.Send(events.NewCollateralCombineEvent(ctx, c1, c2, m1, m2, combined, marker))
	return combined, nil
}

// RefreshValue reprices a marker with the given (already validated) price
// and stamps the valuation time.
func (e *Engine) RefreshValue(markerID string, price num.Decimal, now time.Time) error {
	m, ok := e.markers[markerID]
	if !ok {
		return ErrMarkerNotFound
	}
	c, ok := e.collaterals[m.CollateralID]
	if !ok {
		return ErrCollateralNotFound
	}
	program, err := e.programs.Program(c.ProgramID)
	if err != nil {
		return err
	}
	value, err := oracles.TokenValue(m.RemainingAmount, price, m.Token.Decimals, program.SharedDecimals)
	if err != nil {
		return err
	}
	m.Value = value
	m.ValueSetTime = now
	return nil
}

// Collateral looks a collateral up by id.
func (e *Engine) Collateral(id string) (*types.Collateral, error) {
	c, ok := e.collaterals[id]
	if !ok {
		return nil, ErrCollateralNotFound
	}
	return c, nil
}

// Marker looks a marker up by id.
func (e *Engine) Marker(id string) (*types.CollateralMarker, error) {
	m, ok := e.markers[id]
	if !ok {
		return nil, ErrMarkerNotFound
	}
	return m, nil
}

// MarkerForCollateral returns the marker paired with a collateral.
func (e *Engine) MarkerForCollateral(collateralID string) (*types.CollateralMarker, error) {
	return e.Marker(e.markerByCollateral[collateralID])
}

// MarkLiquidated flags a marker as seized by a liquidation so it cannot be
// seized again while its transfer is pending.
func (e *Engine) MarkLiquidated(markerID string) error {
	m, ok := e.markers[markerID]
	if !ok {
		return ErrMarkerNotFound
	}
	if m.Liquidated {
		return ErrMarkerLiquidated
	}
	m.Liquidated = true
	return nil
}

// TakeForSettlement moves up to the requested amount out of a collateral for
// an executing transfer and returns how much was actually taken, the
// minimum of the requested amount and the available balance. The pair is
// destroyed when the balance reaches zero.
func (e *Engine) TakeForSettlement(collateralID string, amount *num.Uint) (*num.Uint, error) {
	c, ok := e.collaterals[collateralID]
	if !ok {
		return nil, ErrCollateralNotFound
	}
	m := e.markers[e.markerByCollateral[collateralID]]

	taken := num.Min(amount, c.Amount).Clone()
	oldAmount := c.Amount.Clone()
	c.Amount.Sub(c.Amount, taken)
	m.RemainingAmount.Copy(c.Amount)
	rescaleMarkerValue(m, oldAmount)
	if c.Amount.IsZero() {
		e.removePair(c, m)
		// a liquidation zeroes the counters up front, its seized
		// markers have nothing left to decrement
		if !m.Liquidated {
			if err := e.accounts.DecCollateralCount(c.AccountID); err != nil {
				return nil, err
			}
		}
	}
	return taken, nil
}

// rescaleMarkerValue keeps a priced marker's cached value describing the
// balance it now covers after a balance mutation. Unpriced markers (zero
// value) are left alone.
func rescaleMarkerValue(m *types.CollateralMarker, oldAmount *num.Uint) {
	if m.Value.IsZero() || oldAmount.IsZero() {
		return
	}
	v, err := num.MulDiv(m.Value, m.RemainingAmount, oldAmount)
	if err != nil {
		// force a repricing rather than carry a value we cannot scale
		m.Value = num.UintZero()
		m.ValueSetTime = time.Time{}
		return
	}
	m.Value = v
}

func (e *Engine) removePair(c *types.Collateral, m *types.CollateralMarker) {
	delete(e.collaterals, c.ID)
	delete(e.markers, m.ID)
	delete(e.markerByCollateral, c.ID)
}
