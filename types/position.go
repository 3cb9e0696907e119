package types

import (
	"time"

	"code.pismoprotocol.io/pismo/types/num"
)

// PositionType is the direction of a leveraged trade.
type PositionType int

const (
	PositionTypeLong PositionType = iota
	PositionTypeShort
)

func (t PositionType) String() string {
	if t == PositionTypeShort {
		return "Short"
	}
	return "Long"
}

// Position is an open leveraged trade. Leverage does not change the UPNL
// magnitude, only the margin required to hold the position.
type Position struct {
	ID        string
	AccountID string
	ProgramID string

	Type  PositionType
	Token *TokenIdentifier
	// TokenIndex is the position of Token in the program's supported
	// positions list at open time
	TokenIndex uint64
	Amount     *num.Uint
	Leverage   uint16

	EntryPrice         *num.Uint
	EntryPriceDecimals uint8
	OpenTime           time.Time
}

// EntryPriceDecimal returns the entry price as a decimal in quote units.
func (p *Position) EntryPriceDecimal() num.Decimal {
	return p.EntryPrice.ToDecimal().Mul(num.DecimalPow10(-int32(p.EntryPriceDecimals)))
}
