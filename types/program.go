package types

// PositionToken is a tradeable token together with the maximum leverage a
// program allows on it.
type PositionToken struct {
	Token       *TokenIdentifier
	MaxLeverage uint16
}

// Program is a trading environment: the tokens accepted as collateral, the
// tokens tradeable against the vaults, and the shared decimal precision all
// values are compared at. Supported lists only ever grow.
type Program struct {
	ID string
	// SharedDecimals is the precision every USD value in the program is
	// scaled to, so values of different tokens are directly comparable
	SharedDecimals uint8

	SupportedCollateral []*TokenIdentifier
	SupportedPositions  []*PositionToken
}

// CollateralToken returns the supported collateral entry for the given token
// info, or nil.
func (p *Program) CollateralToken(tokenInfo string) *TokenIdentifier {
	for _, t := range p.SupportedCollateral {
		if t.TokenInfo == tokenInfo {
			return t
		}
	}
	return nil
}

// PositionToken returns the supported position entry at the given index, or
// nil when out of range. Positions reference their token by index so a
// program list append never invalidates them.
func (p *Program) PositionToken(i uint64) *PositionToken {
	if i >= uint64(len(p.SupportedPositions)) {
		return nil
	}
	return p.SupportedPositions[i]
}
