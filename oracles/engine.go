package oracles

import (
	"errors"
	"fmt"
	"time"

	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
)

var (
	// ErrStalePrice is returned when a feed update is older than the max
	// allowed age at use time.
	ErrStalePrice = errors.New("oracle price is stale")
	// ErrNonPositivePrice is returned for zero or negative quoted prices.
	ErrNonPositivePrice = errors.New("oracle price is not positive")
	// ErrUnknownOracleKind is returned when a token references an oracle
	// family the engine does not implement.
	ErrUnknownOracleKind = errors.New("unknown oracle kind")
	// ErrFeedMismatch is returned when the supplied update is for another
	// feed than the token is priced against.
	ErrFeedMismatch = errors.New("price update is for a different feed")
)

// Engine validates externally supplied price updates and turns them into
// values the accounting engines can use.
type Engine struct {
	log *logging.Logger
	cfg Config
}

func NewEngine(log *logging.Logger, cfg Config) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log: log,
		cfg: cfg,
	}
}

// Price validates the update against the token's oracle kind and feed id and
// returns the quoted price as a decimal. The update must have been published
// within MaxPriceAge of now.
func (e *Engine) Price(token *types.TokenIdentifier, data PriceData, now time.Time) (num.Decimal, error) {
	// closed dispatch on the oracle family, only Pyth shaped feeds today
	switch token.OracleKind {
	case types.OracleKindPyth:
	default:
		return num.DecimalZero(), fmt.Errorf("%w: %s", ErrUnknownOracleKind, token.OracleKind.String())
	}

	if data.FeedID != token.PriceFeedID {
		return num.DecimalZero(), ErrFeedMismatch
	}
	if age := now.Sub(data.PublishTime); age > e.cfg.MaxPriceAge.Get() {
		if e.log.IsDebug() {
			e.log.Debug("rejecting stale price",
				logging.String("feed-id", data.FeedID),
				logging.Duration("age", age),
			)
		}
		return num.DecimalZero(), ErrStalePrice
	}
	if data.Price <= 0 {
		return num.DecimalZero(), ErrNonPositivePrice
	}

	return num.DecimalFromInt64(data.Price).Mul(num.DecimalPow10(data.Expo)), nil
}

// TokenValue computes the value of an amount of a token at the given price,
// scaled to the program's shared decimals:
//
//	value = amount / 10^tokenDecimals * price * 10^sharedDecimals
//
// The result is floored to an integer value.
func TokenValue(amount *num.Uint, price num.Decimal, tokenDecimals, sharedDecimals uint8) (*num.Uint, error) {
	v := amount.ToDecimal().
		Mul(price).
		Mul(num.DecimalPow10(int32(sharedDecimals) - int32(tokenDecimals)))
	value, overflow := num.UintFromDecimal(v.Floor())
	if overflow {
		return nil, num.ErrUintOverflow
	}
	return value, nil
}
