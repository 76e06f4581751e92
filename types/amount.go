// Package types provides common value types used across the sale ledger.
package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the number of decimal places between wei and ether.
const EtherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(EtherDecimals), nil)

// Amount is a non-negative-by-convention monetary value in the smallest unit (wei).
// All arithmetic is integer-only and arbitrary precision; an Amount is immutable
// and every operation returns a new value.
//
// Examples:
//   - Wei(1000) = 1000 wei
//   - MustParseEther("0.05") = 50000000000000000 wei
type Amount struct {
	v *big.Int
}

// Wei creates an Amount from a wei count.
func Wei(wei int64) Amount { return Amount{v: big.NewInt(wei)} }

// Zero returns a zero Amount.
func Zero() Amount { return Amount{} }

// FromBig creates an Amount from a big.Int. The argument is copied.
func FromBig(b *big.Int) Amount {
	if b == nil {
		return Amount{}
	}
	return Amount{v: new(big.Int).Set(b)}
}

// ParseAmount parses a base-10 wei string ("50000000000000000").
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("amount: parse %q: not a base-10 integer", s)
	}
	return Amount{v: b}, nil
}

// ParseEther parses a decimal ether string ("0.05") into wei.
// More than 18 fractional digits is an error.
func ParseEther(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("amount: parse ether %q: empty string", s)
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > EtherDecimals {
		return Amount{}, fmt.Errorf("amount: parse ether %q: more than %d decimals", s, EtherDecimals)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", EtherDecimals-len(frac))

	b, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return Amount{}, fmt.Errorf("amount: parse ether %q: invalid number", s)
	}
	if neg {
		b.Neg(b)
	}
	return Amount{v: b}, nil
}

// MustParseEther is like ParseEther but panics on error. Use for hardcoded values.
func MustParseEther(s string) Amount {
	a, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Big returns a copy of the underlying integer.
func (a Amount) Big() *big.Int { return new(big.Int).Set(a.big()) }

// Arithmetic operations

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	return Amount{v: new(big.Int).Add(a.big(), other.big())}
}

// Sub returns a - other.
func (a Amount) Sub(other Amount) Amount {
	return Amount{v: new(big.Int).Sub(a.big(), other.big())}
}

// MulUint returns a * n.
func (a Amount) MulUint(n uint64) Amount {
	return Amount{v: new(big.Int).Mul(a.big(), new(big.Int).SetUint64(n))}
}

// DivUint returns floor(a / n). Panics on division by zero.
func (a Amount) DivUint(n uint64) Amount {
	if n == 0 {
		panic("amount: division by zero")
	}
	return Amount{v: new(big.Int).Quo(a.big(), new(big.Int).SetUint64(n))}
}

// Units returns how many whole units of price fit into a, capped at limit.
// A non-positive price yields 0.
func (a Amount) Units(price Amount, limit uint64) uint64 {
	if !price.IsPositive() || !a.IsPositive() {
		return 0
	}
	q := new(big.Int).Quo(a.big(), price.big())
	if !q.IsUint64() || q.Uint64() > limit {
		return limit
	}
	return q.Uint64()
}

// Comparison methods

// Cmp compares a and other: -1, 0 or +1.
func (a Amount) Cmp(other Amount) int { return a.big().Cmp(other.big()) }

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.big().Sign() == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.big().Sign() > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a.big().Sign() < 0 }

// Equal returns true if both amounts are equal.
func (a Amount) Equal(other Amount) bool { return a.Cmp(other) == 0 }

// LessThan returns true if a < other.
func (a Amount) LessThan(other Amount) bool { return a.Cmp(other) < 0 }

// Formatting methods

// String returns the base-10 wei representation.
func (a Amount) String() string { return a.big().String() }

// FormatEther returns the value in ether with trailing zeros trimmed.
// Examples: "0.05" for 5e16 wei, "1" for 1e18 wei.
func (a Amount) FormatEther() string {
	abs := new(big.Int).Abs(a.big())
	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))

	result := whole.String()
	if frac.Sign() != 0 {
		fs := frac.String()
		fs = strings.Repeat("0", EtherDecimals-len(fs)) + fs
		result += "." + strings.TrimRight(fs, "0")
	}
	if a.IsNegative() {
		return "-" + result
	}
	return result
}

// MarshalJSON encodes the amount as a decimal wei string plus an ether display value.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Wei     string `json:"wei"`
		Display string `json:"display"`
	}{
		Wei:     a.String(),
		Display: a.FormatEther() + " ETH",
	})
}

// UnmarshalJSON accepts either the object form written by MarshalJSON or a bare wei string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := ParseAmount(s)
		if perr != nil {
			return perr
		}
		*a = parsed
		return nil
	}

	var obj struct {
		Wei string `json:"wei"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("amount: unmarshal: %w", err)
	}
	parsed, err := ParseAmount(obj.Wei)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds up amounts.
func Sum(values ...Amount) Amount {
	result := Zero()
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
