package events

import (
	"context"
	"time"

	"code.pismoprotocol.io/pismo/types"

	"github.com/pkg/errors"
)

var ErrUnknownEventType = errors.New("unknown event type")

type Type int

const (
	// All event type, used by subscribers that want every event, has no
	// corresponding event payload.
	All Type = iota
	NewAccountEvent
	TokenRegisteredEvent
	CollateralDepositEvent
	CollateralWithdrawEvent
	CollateralCombineEvent
	CollateralMarkerLiquidatedEvent
	PositionCreatedEvent
	PositionClosedEvent
	PositionLiquidatedEvent
	VaultCreatedEvent
	LiquidityDepositedEvent
	LiquidityWithdrawnEvent
	CollateralTransferCreatedEvent
	VaultTransferCreatedEvent
	TransferFulfilledEvent
	StartCollateralValueAssertionEvent
	StartPositionValueAssertionEvent
)

var eventNames = map[Type]string{
	All:                                "ALL",
	NewAccountEvent:                    "NewAccountEvent",
	TokenRegisteredEvent:               "TokenRegisteredEvent",
	CollateralDepositEvent:             "CollateralDepositEvent",
	CollateralWithdrawEvent:            "CollateralWithdrawEvent",
	CollateralCombineEvent:             "CollateralCombineEvent",
	CollateralMarkerLiquidatedEvent:    "CollateralMarkerLiquidatedEvent",
	PositionCreatedEvent:               "PositionCreatedEvent",
	PositionClosedEvent:                "PositionClosedEvent",
	PositionLiquidatedEvent:            "PositionLiquidatedEvent",
	VaultCreatedEvent:                  "VaultCreatedEvent",
	LiquidityDepositedEvent:            "LiquidityDepositedEvent",
	LiquidityWithdrawnEvent:            "LiquidityWithdrawnEvent",
	CollateralTransferCreatedEvent:     "CollateralTransferCreatedEvent",
	VaultTransferCreatedEvent:          "VaultTransferCreatedEvent",
	TransferFulfilledEvent:             "TransferFulfilledEvent",
	StartCollateralValueAssertionEvent: "StartCollateralValueAssertionEvent",
	StartPositionValueAssertionEvent:   "StartPositionValueAssertionEvent",
}

func (t Type) String() string {
	s, ok := eventNames[t]
	if !ok {
		return "UNKNOWN EVENT"
	}
	return s
}

// Event is the base event interface, every state change of the engines is
// mirrored by one event so external consumers (the indexer) can reconstruct
// the entity's new state.
type Event interface {
	Type() Type
	Context() context.Context
	TraceID() string
	Timestamp() time.Time
}

// Base common denominator all events share.
type Base struct {
	ctx     context.Context
	traceID string
	ts      time.Time
	et      Type
}

type traceIDKey struct{}

// WithTraceID attaches the calling operation's trace identifier to the
// context so every event it emits carries it.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func traceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return types.NewID()
}

func newBase(ctx context.Context, t Type) *Base {
	return &Base{
		ctx:     ctx,
		traceID: traceIDFromContext(ctx),
		ts:      time.Now().UTC(),
		et:      t,
	}
}

func (b Base) Type() Type {
	return b.et
}

func (b Base) Context() context.Context {
	return b.ctx
}

func (b Base) TraceID() string {
	return b.traceID
}

func (b Base) Timestamp() time.Time {
	return b.ts
}
