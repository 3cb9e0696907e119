package vaults

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/oracles"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

var (
	ErrVaultNotFound       = errors.New("vault not found")
	ErrMarkerNotFound      = errors.New("vault marker not found")
	ErrVaultAlreadyExists  = errors.New("vault already exists for token")
	ErrZeroAmount          = errors.New("amount must be positive")
	ErrNoShares            = errors.New("no shares to withdraw against")
	ErrInsufficientShares  = errors.New("withdrawal exceeds share balance")
	ErrInsufficientBalance = errors.New("transfer exceeds vault balance")
)

// Engine owns the pooled liquidity vaults, one per token, and their
// valuation markers. Vaults are the counterparty of every position.
type Engine struct {
	log    *logging.Logger
	cfg    Config
	broker broker.Interface

	vaults  map[string]*types.Vault       // by address
	markers map[string]*types.VaultMarker // by marker id
	// address by token info, so liquidation resolves the destination
	// vault with a lookup instead of scanning the supplied list
	byToken        map[string]string
	markerByVault  map[string]string
	sharedDecimals uint8
}

func NewEngine(log *logging.Logger, cfg Config, brk broker.Interface, sharedDecimals uint8) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:            log,
		cfg:            cfg,
		broker:         brk,
		vaults:         map[string]*types.Vault{},
		markers:        map[string]*types.VaultMarker{},
		byToken:        map[string]string{},
		markerByVault:  map[string]string{},
		sharedDecimals: sharedDecimals,
	}
}

// MaxValueAge is the window within which a marker's cached value may feed
// settlement decisions.
func (e *Engine) MaxValueAge() time.Duration {
	return e.cfg.MaxValueAge.Get()
}

// InitVault creates the vault/marker pair for a token, zero balance and
// zero share supply.
func (e *Engine) InitVault(ctx context.Context, token *types.TokenIdentifier) (*types.Vault, *types.VaultMarker, error) {
	if _, ok := e.byToken[token.TokenInfo]; ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrVaultAlreadyExists, token.TokenInfo)
	}
	v := &types.Vault{
		Address:     types.NewID(),
		Token:       token,
		LPTokenInfo: "lp::" + token.TokenInfo,
		Balance:     num.UintZero(),
		LPSupply:    num.UintZero(),
	}
	m := &types.VaultMarker{
		ID:           types.NewID(),
		VaultAddress: v.Address,
		Token:        token,
		Balance:      num.UintZero(),
		Value:        num.UintZero(),
	}
	e.vaults[v.Address] = v
	e.markers[m.ID] = m
	e.byToken[token.TokenInfo] = v.Address
	e.markerByVault[v.Address] = m.ID

	e.log.Info("vault created",
		logging.String("vault-address", v.Address),
		logging.String("token-info", token.TokenInfo),
	)
	e.broker.Send(events.NewVaultCreatedEvent(ctx, v, m))
	return v, m, nil
}

// DepositLiquidity adds coin to the vault and mints LP shares proportional
// to the pool, 1:1 on an empty vault.
func (e *Engine) DepositLiquidity(ctx context.Context, vaultAddress, depositor string, amount *num.Uint) (*num.Uint, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}
	v, ok := e.vaults[vaultAddress]
	if !ok {
		return nil, ErrVaultNotFound
	}

	var shares *num.Uint
	if v.Balance.IsZero() || v.LPSupply.IsZero() {
		shares = amount.Clone()
	} else {
		var err error
		shares, err = num.MulDiv(amount, v.LPSupply, v.Balance)
		if err != nil {
			return nil, err
		}
	}
	v.Balance.AddSum(amount)
	v.LPSupply.AddSum(shares)
	e.syncMarkerBalance(v)

	e.broker.Send(events.NewLiquidityDepositedEvent(ctx, v, depositor, amount, shares))
	return shares, nil
}

// WithdrawLiquidity burns LP shares for the proportional slice of the vault
// balance.
func (e *Engine) WithdrawLiquidity(ctx context.Context, vaultAddress, withdrawer string, shares *num.Uint) (*num.Uint, error) {
	if shares == nil || shares.IsZero() {
		return nil, ErrZeroAmount
	}
	v, ok := e.vaults[vaultAddress]
	if !ok {
		return nil, ErrVaultNotFound
	}
	if v.LPSupply.IsZero() {
		return nil, ErrNoShares
	}
	if shares.GT(v.LPSupply) {
		return nil, ErrInsufficientShares
	}

	amount, err := num.MulDiv(shares, v.Balance, v.LPSupply)
	if err != nil {
		return nil, err
	}
	v.Balance.Sub(v.Balance, amount)
	v.LPSupply.Sub(v.LPSupply, shares)
	e.syncMarkerBalance(v)

	e.broker.Send(events.NewLiquidityWithdrawnEvent(ctx, v, withdrawer, shares, amount))
	return amount, nil
}

// RefreshValue reprices a vault marker with the given (already validated)
// price and stamps the valuation time.
func (e *Engine) RefreshValue(markerID string, price num.Decimal, now time.Time) error {
	m, ok := e.markers[markerID]
	if !ok {
		return ErrMarkerNotFound
	}
	value, err := oracles.TokenValue(m.Balance, price, m.Token.Decimals, e.sharedDecimals)
	if err != nil {
		return err
	}
	m.Value = value
	m.ValueSetTime = now
	return nil
}

// Vault looks a vault up by address.
func (e *Engine) Vault(address string) (*types.Vault, error) {
	v, ok := e.vaults[address]
	if !ok {
		return nil, ErrVaultNotFound
	}
	return v, nil
}

// Marker looks a vault marker up by id.
func (e *Engine) Marker(id string) (*types.VaultMarker, error) {
	m, ok := e.markers[id]
	if !ok {
		return nil, ErrMarkerNotFound
	}
	return m, nil
}

// MarkerForVault returns the marker paired with a vault.
func (e *Engine) MarkerForVault(vaultAddress string) (*types.VaultMarker, error) {
	return e.Marker(e.markerByVault[vaultAddress])
}

// VaultForToken resolves the vault accepting the given token.
func (e *Engine) VaultForToken(tokenInfo string) (*types.Vault, error) {
	addr, ok := e.byToken[tokenInfo]
	if !ok {
		return nil, fmt.Errorf("%w: no vault for %s", ErrVaultNotFound, tokenInfo)
	}
	return e.vaults[addr], nil
}

// CreditBalance adds settled funds to the vault, used by the execute step of
// collateral transfers.
func (e *Engine) CreditBalance(vaultAddress string, amount *num.Uint) error {
	v, ok := e.vaults[vaultAddress]
	if !ok {
		return ErrVaultNotFound
	}
	v.Balance.AddSum(amount)
	e.syncMarkerBalance(v)
	return nil
}

// DebitForSettlement moves up to the requested amount out of the vault for
// an executing transfer and returns how much was actually taken, the
// minimum of the requested amount and the available balance.
func (e *Engine) DebitForSettlement(vaultAddress string, amount *num.Uint) (*num.Uint, error) {
	v, ok := e.vaults[vaultAddress]
	if !ok {
		return nil, ErrVaultNotFound
	}
	taken := num.Min(amount, v.Balance).Clone()
	v.Balance.Sub(v.Balance, taken)
	e.syncMarkerBalance(v)
	return taken, nil
}

// syncMarkerBalance mirrors the vault balance onto its marker and rescales
// the cached value so it keeps describing the balance it priced. A marker
// priced against a zero balance cannot be scaled, it is reset and must be
// repriced before it can vouch for a value again.
func (e *Engine) syncMarkerBalance(v *types.Vault) {
	m, ok := e.markers[e.markerByVault[v.Address]]
	if !ok {
		return
	}
	oldBalance := m.Balance.Clone()
	m.Balance.Copy(v.Balance)
	if m.Value.IsZero() {
		return
	}
	value, err := num.MulDiv(m.Value, m.Balance, oldBalance)
	if err != nil {
		m.Value = num.UintZero()
		m.ValueSetTime = time.Time{}
		return
	}
	m.Value = value
}
