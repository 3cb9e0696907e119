package num

// Int is a wrapper for a big signed int. The magnitude and the sign are kept
// separately, and a zero magnitude is always normalised to be non-negative so
// there is a single representation of zero.
type Int struct {
	// U is the magnitude of the integer
	U *Uint
	// The sign of the integer true = positive, false = negative
	s bool
}

// NewInt creates a new Int with the value of the int64 passed as a parameter.
func NewInt(val int64) *Int {
	if val < 0 {
		return &Int{
			U: NewUint(uint64(-val)),
			s: false,
		}
	}
	return &Int{
		U: NewUint(uint64(val)),
		s: true,
	}
}

// IntZero returns a new Int set to zero.
func IntZero() *Int {
	return NewInt(0)
}

// IntFromUint creates a new Int with the magnitude of the given uint
// and the given sign. The uint is cloned, not shared.
func IntFromUint(u *Uint, s bool) *Int {
	i := &Int{
		U: u.Clone(),
		s: s,
	}
	i.normalise()
	return i
}

// IntFromDelta returns x - y of two magnitudes as a signed value, the sign
// reflects which operand was larger.
func IntFromDelta(x, y *Uint) *Int {
	d, neg := UintZero().Delta(x, y)
	return IntFromUint(d, !neg)
}

func (i *Int) normalise() {
	if i.U.IsZero() {
		i.s = true
	}
}

// IsNegative tests if the stored value is negative,
// returns false if zero.
func (i Int) IsNegative() bool {
	return !i.s && !i.U.IsZero()
}

// IsPositive tests if the stored value is positive,
// returns false if zero.
func (i Int) IsPositive() bool {
	return i.s && !i.U.IsZero()
}

// IsZero tests if the stored value is zero.
func (i Int) IsZero() bool {
	return i.U.IsZero()
}

// FlipSign changes the sign of the number from - to + and back again.
func (i *Int) FlipSign() *Int {
	i.s = !i.s
	i.normalise()
	return i
}

// Clone creates a copy of this value.
func (i Int) Clone() *Int {
	return &Int{
		U: i.U.Clone(),
		s: i.s,
	}
}

// Add adds the given value to this one, the sign of the result follows the
// operand with the larger magnitude when the signs differ.
func (i *Int) Add(oth *Int) *Int {
	if i.s == oth.s {
		i.U.AddSum(oth.U)
		i.normalise()
		return i
	}
	d, neg := UintZero().Delta(i.U, oth.U)
	if neg {
		i.s = oth.s
	}
	i.U = d
	i.normalise()
	return i
}

// Sub subtracts the given value from this one.
func (i *Int) Sub(oth *Int) *Int {
	return i.Add(oth.Clone().FlipSign())
}

// AddUint adds an unsigned value.
func (i *Int) AddUint(u *Uint) *Int {
	return i.Add(IntFromUint(u, true))
}

// SubUint subtracts an unsigned value.
func (i *Int) SubUint(u *Uint) *Int {
	return i.Add(IntFromUint(u, false))
}

// GT returns i > oth.
func (i Int) GT(oth *Int) bool {
	if i.s != oth.s {
		return i.s
	}
	if i.s {
		return i.U.GT(oth.U)
	}
	return i.U.LT(oth.U)
}

// GTE returns i >= oth.
func (i Int) GTE(oth *Int) bool {
	return i.EQ(oth) || i.GT(oth)
}

// LT returns i < oth.
func (i Int) LT(oth *Int) bool {
	return !i.GTE(oth)
}

// EQ returns i == oth.
func (i Int) EQ(oth *Int) bool {
	return i.s == oth.s && i.U.EQ(oth.U)
}

// Int64 returns the stored value as an int64, the result
// is undefined if the magnitude does not fit.
func (i Int) Int64() int64 {
	v := int64(i.U.Uint64())
	if !i.s {
		return -v
	}
	return v
}

// ToDecimal returns the stored value as a signed Decimal.
func (i Int) ToDecimal() Decimal {
	d := i.U.ToDecimal()
	if i.IsNegative() {
		return d.Neg()
	}
	return d
}

// String returns the stored value as a base 10 string.
func (i Int) String() string {
	if i.IsNegative() {
		return "-" + i.U.String()
	}
	return i.U.String()
}
