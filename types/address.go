package types

import "strings"

// Address identifies a participant (buyer or owner). Addresses compare
// case-insensitively; the canonical form is trimmed and lower-cased.
type Address string

// ParseAddress returns the canonical form of s.
func ParseAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

// Equal compares two addresses in canonical form.
func (a Address) Equal(other Address) bool {
	return ParseAddress(string(a)) == ParseAddress(string(other))
}

func (a Address) String() string { return string(a) }
