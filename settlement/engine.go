package settlement

import (
	"context"
	"errors"
	"time"

	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/collateral"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/metrics"
	"code.pismoprotocol.io/pismo/oracles"
	"code.pismoprotocol.io/pismo/positions"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

var (
	ErrInsufficientMargin       = errors.New("collateral and upnl below required margin")
	ErrCountMismatch            = errors.New("supplied item count does not match account stats")
	ErrOwnerMismatch            = errors.New("item does not belong to the account")
	ErrStaleValue               = errors.New("marker value is older than the max age")
	ErrNotInsolvent             = errors.New("account value is not negative")
	ErrZeroDenominator          = errors.New("no value to split the transfer over")
	ErrTokenMismatch            = errors.New("marker token does not match the position")
	ErrTransferNotFound         = errors.New("transfer not found")
	ErrTransferAlreadyFulfilled = errors.New("transfer already fulfilled")
)

// AccountEngine is the slice of the accounts engine settlement drives.
type AccountEngine interface {
	Account(id string) (*types.Account, error)
	Stats(accountID string) (*types.AccountStats, error)
	ZeroStats(accountID string) error
}

// ProgramEngine resolves programs for margin arithmetic.
type ProgramEngine interface {
	Program(id string) (*types.Program, error)
}

// CollateralEngine is the slice of the collateral engine settlement drives,
// including the collateral half of the value-assertion protocol.
type CollateralEngine interface {
	Marker(id string) (*types.CollateralMarker, error)
	MarkLiquidated(markerID string) error
	TakeForSettlement(collateralID string, amount *num.Uint) (*num.Uint, error)
	CompleteValueAssertion(a *collateral.ValueAssertion, accountID string) (*num.Uint, error)
	MaxValueAge() time.Duration
}

// VaultEngine is the slice of the vaults engine settlement drives.
type VaultEngine interface {
	Marker(id string) (*types.VaultMarker, error)
	VaultForToken(tokenInfo string) (*types.Vault, error)
	CreditBalance(vaultAddress string, amount *num.Uint) error
	DebitForSettlement(vaultAddress string, amount *num.Uint) (*num.Uint, error)
	MaxValueAge() time.Duration
}

// PositionEngine is the slice of the positions engine settlement drives,
// including the position half of the value-assertion protocol.
type PositionEngine interface {
	Open(
		ctx context.Context,
		accountID string,
		tokenIndex uint64,
		positionType types.PositionType,
		amount *num.Uint,
		leverage uint16,
		entryPrice *num.Uint,
		entryPriceDecimals uint8,
		now time.Time,
	) (*types.Position, error)
	Position(id string) (*types.Position, error)
	UPNL(positionID string, price num.Decimal) (*num.Int, error)
	Remove(ctx context.Context, positionID string, liquidated bool) (*types.Position, error)
	CompleteValueAssertion(a *positions.ValueAssertion, accountID string) (*num.Int, error)
}

// Engine turns margin decisions into scheduled settlement transfers and
// applies them in a separate execute step. It is the only engine allowed to
// move balances between collateral and vaults.
type Engine struct {
	log    *logging.Logger
	broker broker.Interface

	accounts   AccountEngine
	programs   ProgramEngine
	collateral CollateralEngine
	vaults     VaultEngine
	positions  PositionEngine

	collateralTransfers map[string]*types.CollateralTransfer
	vaultTransfers      map[string]*types.VaultTransfer
}

func NewEngine(
	log *logging.Logger,
	cfg Config,
	brk broker.Interface,
	accounts AccountEngine,
	programs ProgramEngine,
	col CollateralEngine,
	vaults VaultEngine,
	pos PositionEngine,
) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:                 log,
		broker:              brk,
		accounts:            accounts,
		programs:            programs,
		collateral:          col,
		vaults:              vaults,
		positions:           pos,
		collateralTransfers: map[string]*types.CollateralTransfer{},
		vaultTransfers:      map[string]*types.VaultTransfer{},
	}
}

// RequiredMargin is the collateral value a position must be backed by,
// notional divided by the leverage multiplier.
func RequiredMargin(notional *num.Uint, leverage uint16) *num.Uint {
	out := num.UintZero()
	return out.Div(notional, num.NewUint(uint64(leverage)))
}

// CheckMargin verifies the account's asserted equity covers the required
// margin. Both assertion totals must come from completed assertions.
func CheckMargin(collateralValue *num.Uint, upnl *num.Int, requiredMargin *num.Uint) error {
	equity := num.IntFromUint(collateralValue, true)
	equity.Add(upnl)
	if equity.LT(num.IntFromUint(requiredMargin, true)) {
		return ErrInsufficientMargin
	}
	return nil
}

// OpenPosition finalizes both value assertions, checks the pre-trade equity
// against the margin the new position requires and opens it. No partial
// opens, a failed margin check leaves everything untouched.
func (e *Engine) OpenPosition(
	ctx context.Context,
	cva *collateral.ValueAssertion,
	pva *positions.ValueAssertion,
	accountID string,
	tokenIndex uint64,
	positionType types.PositionType,
	amount *num.Uint,
	leverage uint16,
	entryPrice *num.Uint,
	entryPriceDecimals uint8,
	now time.Time,
) (*types.Position, error) {
	collateralValue, err := e.collateral.CompleteValueAssertion(cva, accountID)
	if err != nil {
		return nil, err
	}
	upnl, err := e.positions.CompleteValueAssertion(pva, accountID)
	if err != nil {
		return nil, err
	}
	notional, err := e.notionalValue(accountID, tokenIndex, amount, entryPrice, entryPriceDecimals)
	if err != nil {
		return nil, err
	}
	required := RequiredMargin(notional, leverage)
	if err := CheckMargin(collateralValue, upnl, required); err != nil {
		metrics.RejectionCounterInc("settlement.open", "insufficient-margin")
		return nil, err
	}
	if e.log.IsDebug() {
		e.log.Debug("margin check passed",
			logging.String("account-id", accountID),
			logging.BigUint("collateral-value", collateralValue),
			logging.BigInt("upnl", upnl),
			logging.BigUint("required-margin", required),
		)
	}
	return e.positions.Open(ctx, accountID, tokenIndex, positionType, amount, leverage, entryPrice, entryPriceDecimals, now)
}

// notionalValue prices the trade in the program's shared decimals.
func (e *Engine) notionalValue(
	accountID string,
	tokenIndex uint64,
	amount, entryPrice *num.Uint,
	entryPriceDecimals uint8,
) (*num.Uint, error) {
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
		return nil, positions.ErrTokenNotSupported
	}
	price := num.DecimalFromUint(entryPrice).Mul(num.DecimalPow10(-int32(entryPriceDecimals)))
	return oracles.TokenValue(amount, price, posToken.Token.Decimals, program.SharedDecimals)
}
