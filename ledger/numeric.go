package ledger

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

const (
	// NumericPrecision is the maximum number of significant digits a
	// Numeric can carry.
	NumericPrecision = 38

	// MaxNumericScale is the largest admissible scale. At least one digit
	// must remain left of the point.
	MaxNumericScale = NumericPrecision - 1

	// DefaultNumericScale is the scale used when none is given.
	DefaultNumericScale = 10
)

var numericContext = apd.Context{
	Precision:   NumericPrecision,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Traps:       apd.DefaultTraps,
	Rounding:    apd.RoundHalfEven,
}

// Numeric is a fixed-scale exact decimal. The scale is part of the value:
// it is preserved through encoding and decoding, and arithmetic identity is
// never lost to floating-point rounding. Construction fails, it does not
// truncate.
type Numeric struct {
	dec   apd.Decimal
	scale int32
}

// NumericError reports a decimal that cannot be represented at the
// requested precision or scale.
type NumericError struct {
	Input  string
	Scale  int32
	Reason string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("numeric %q at scale %d: %s", e.Input, e.Scale, e.Reason)
}

// ParseNumeric parses s at the scale implied by its textual form. "1.25"
// gets scale 2, "10" gets scale 0. Fails if s is not a plain decimal or
// exceeds the precision bounds.
func ParseNumeric(s string) (Numeric, error) {
	return NewNumeric(s, inferScale(s))
}

// MustParseNumeric is ParseNumeric for test fixtures and constants; it
// panics on error.
func MustParseNumeric(s string) Numeric {
	n, err := ParseNumeric(s)
	if err != nil {
		panic(err)
	}
	return n
}

// NewNumeric parses s and fixes it at the given scale. Digits beyond the
// scale are an error, never rounded away. The integer part together with
// the scale must fit the 38-digit precision.
func NewNumeric(s string, scale int32) (Numeric, error) {
	if scale < 0 || scale > MaxNumericScale {
		return Numeric{}, &NumericError{Input: s, Scale: scale, Reason: fmt.Sprintf("scale out of range [0, %d]", MaxNumericScale)}
	}
	var dec apd.Decimal
	if _, _, err := dec.SetString(s); err != nil {
		return Numeric{}, &NumericError{Input: s, Scale: scale, Reason: "not a decimal number"}
	}
	if dec.Form != apd.Finite {
		return Numeric{}, &NumericError{Input: s, Scale: scale, Reason: "not a finite decimal"}
	}
	if dec.Exponent < -scale {
		return Numeric{}, &NumericError{Input: s, Scale: scale, Reason: "more fractional digits than the scale admits"}
	}
	var fixed apd.Decimal
	ctx := numericContext
	res, err := ctx.Quantize(&fixed, &dec, -scale)
	if err != nil || res.Inexact() {
		return Numeric{}, &NumericError{Input: s, Scale: scale, Reason: "does not fit 38 significant digits"}
	}
	if fixed.NumDigits() > NumericPrecision {
		return Numeric{}, &NumericError{Input: s, Scale: scale, Reason: "does not fit 38 significant digits"}
	}
	return Numeric{dec: fixed, scale: scale}, nil
}

// Rescale returns the value at a new scale. Widening always succeeds within
// precision; narrowing fails when nonzero fractional digits would be lost.
func (n Numeric) Rescale(scale int32) (Numeric, error) {
	return NewNumeric(n.String(), scale)
}

// Scale returns the fixed scale.
func (n Numeric) Scale() int32 {
	return n.scale
}

// String renders the value in plain decimal notation with exactly Scale
// fractional digits. The rendering round-trips through ParseNumeric.
func (n Numeric) String() string {
	return n.dec.Text('f')
}

// Equal reports numeric equality. Scale differences do not matter: 1.10 at
// scale 2 equals 1.1 at scale 1.
func (n Numeric) Equal(other Numeric) bool {
	return n.dec.Cmp(&other.dec) == 0
}

// Cmp compares numeric values, returning -1, 0, or +1.
func (n Numeric) Cmp(other Numeric) int {
	return n.dec.Cmp(&other.dec)
}

// IsZero reports whether the value is zero at any scale.
func (n Numeric) IsZero() bool {
	return n.dec.IsZero()
}

func inferScale(s string) int32 {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			frac := s[i+1:]
			for j := 0; j < len(frac); j++ {
				if frac[j] == 'e' || frac[j] == 'E' {
					return int32(j)
				}
			}
			return int32(len(frac))
		}
	}
	return 0
}
