package programs

import (
	"context"
	"errors"
	"fmt"

	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/types"
)

var (
	ErrNotAdmin              = errors.New("caller does not hold the admin capability")
	ErrTokenAlreadyExists    = errors.New("token already registered")
	ErrTokenNotFound         = errors.New("token not registered")
	ErrProgramNotFound       = errors.New("program not found")
	ErrTokenAlreadySupported = errors.New("token already in the supported list")
	ErrZeroLeverage          = errors.New("max leverage must be positive")
	ErrUnspecifiedOracle     = errors.New("token must name an oracle kind")
)

// AdminCap is the unforgeable authorization handle for the administrative
// surface. The only instance is minted by NewEngine, every admin operation
// requires it by identity.
type AdminCap struct {
	_ struct{}
}

// Engine is the token and program registry. Definitions only ever grow:
// tokens can be deprecated but never removed, so existing collateral and
// positions always resolve.
type Engine struct {
	log    *logging.Logger
	broker broker.Interface

	admin    *AdminCap
	tokens   map[string]*types.TokenIdentifier
	programs map[string]*types.Program
}

// NewEngine returns the registry together with its freshly minted admin
// capability. The capability exists exactly once, whoever holds the pointer
// holds the admin surface.
func NewEngine(log *logging.Logger, cfg Config, brk broker.Interface) (*Engine, *AdminCap) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	admin := &AdminCap{}
	return &Engine{
		log:      log,
		broker:   brk,
		admin:    admin,
		tokens:   map[string]*types.TokenIdentifier{},
		programs: map[string]*types.Program{},
	}, admin
}

func (e *Engine) checkAdmin(adminCap *AdminCap) error {
	if adminCap == nil || adminCap != e.admin {
		return ErrNotAdmin
	}
	return nil
}

// RegisterToken adds a new token definition to the registry.
func (e *Engine) RegisterToken(ctx context.Context, adminCap *AdminCap, token *types.TokenIdentifier) error {
	if err := e.checkAdmin(adminCap); err != nil {
		return err
	}
	if token.OracleKind == types.OracleKindUnspecified {
		return ErrUnspecifiedOracle
	}
	if _, ok := e.tokens[token.TokenInfo]; ok {
		return fmt.Errorf("%w: %s", ErrTokenAlreadyExists, token.TokenInfo)
	}
	e.tokens[token.TokenInfo] = token.Clone()
	e.log.Info("token registered",
		logging.String("token-info", token.TokenInfo),
		logging.String("price-feed-id", token.PriceFeedID),
	)
	e.broker.Send(events.NewTokenRegisteredEvent(ctx, token))
	return nil
}

// CreateProgram creates a new trading environment with the given shared
// value precision.
func (e *Engine) CreateProgram(_ context.Context, adminCap *AdminCap, sharedDecimals uint8) (*types.Program, error) {
	if err := e.checkAdmin(adminCap); err != nil {
		return nil, err
	}
	p := &types.Program{
		ID:             types.NewID(),
		SharedDecimals: sharedDecimals,
	}
	e.programs[p.ID] = p
	e.log.Info("program created", logging.String("program-id", p.ID))
	return p, nil
}

// AddSupportedCollateral appends a registered token to a program's
// supported collateral list.
func (e *Engine) AddSupportedCollateral(_ context.Context, adminCap *AdminCap, programID, tokenInfo string) error {
	if err := e.checkAdmin(adminCap); err != nil {
		return err
	}
	p, ok := e.programs[programID]
	if !ok {
		return ErrProgramNotFound
	}
	token, ok := e.tokens[tokenInfo]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, tokenInfo)
	}
	if p.CollateralToken(tokenInfo) != nil {
		return ErrTokenAlreadySupported
	}
	p.SupportedCollateral = append(p.SupportedCollateral, token)
	return nil
}

// AddSupportedPosition appends a registered token to a program's tradeable
// list together with its leverage cap.
func (e *Engine) AddSupportedPosition(_ context.Context, adminCap *AdminCap, programID, tokenInfo string, maxLeverage uint16) error {
	if err := e.checkAdmin(adminCap); err != nil {
		return err
	}
	if maxLeverage == 0 {
		return ErrZeroLeverage
	}
	p, ok := e.programs[programID]
	if !ok {
		return ErrProgramNotFound
	}
	token, ok := e.tokens[tokenInfo]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, tokenInfo)
	}
	p.SupportedPositions = append(p.SupportedPositions, &types.PositionToken{
		Token:       token,
		MaxLeverage: maxLeverage,
	})
	return nil
}

// DeprecateToken blocks new deposits and positions on a token. Existing
// holdings can still be withdrawn or closed, deprecation never breaks
// referential validity.
func (e *Engine) DeprecateToken(_ context.Context, adminCap *AdminCap, tokenInfo string) error {
	if err := e.checkAdmin(adminCap); err != nil {
		return err
	}
	token, ok := e.tokens[tokenInfo]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, tokenInfo)
	}
	token.Deprecated = true
	e.log.Info("token deprecated", logging.String("token-info", tokenInfo))
	return nil
}

// Program looks a program up by id.
func (e *Engine) Program(id string) (*types.Program, error) {
	p, ok := e.programs[id]
	if !ok {
		return nil, ErrProgramNotFound
	}
	return p, nil
}

// Token looks a token definition up by its info tag.
func (e *Engine) Token(tokenInfo string) (*types.TokenIdentifier, error) {
	t, ok := e.tokens[tokenInfo]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, tokenInfo)
	}
	return t, nil
}
