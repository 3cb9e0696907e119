package types

// OracleKind is the closed set of price oracle families a token may be
// priced against.
type OracleKind int

const (
	OracleKindUnspecified OracleKind = iota
	OracleKindPyth
)

func (k OracleKind) String() string {
	switch k {
	case OracleKindPyth:
		return "pyth"
	default:
		return "unspecified"
	}
}

// TokenIdentifier is the definition of an asset usable as collateral or as a
// tradeable underlying. Once referenced by live collateral or positions it is
// never removed, only deprecated.
type TokenIdentifier struct {
	// TokenInfo is the canonical asset tag, e.g. "0x2::sui::SUI"
	TokenInfo string
	// PriceFeedID identifies the oracle feed pricing this token
	PriceFeedID string
	// Decimals the token amounts are expressed in
	Decimals   uint8
	OracleKind OracleKind
	// Deprecated blocks new deposits and new positions, existing
	// withdrawals and closes remain allowed
	Deprecated bool
}

func (t *TokenIdentifier) Clone() *TokenIdentifier {
	cpy := *t
	return &cpy
}
