package domain

import "time"

// Address identifies an account on the ledger. Accounts are externally
// authenticated; the ledger only ever compares them for equality.
type Address string

// ZeroAddress is the null identifier. It is never a valid owner, user or
// recipient, and reads that resolve to "nobody" return it.
const ZeroAddress Address = ""

// IsZero reports whether the address is the null identifier.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// TokenID is a sequential asset identifier, unique within a collection and
// assigned at mint.
type TokenID uint64

// Clock supplies the current time. Expiry of usage rights is computed lazily
// against it, so tests inject a fixed clock instead of sleeping.
type Clock func() time.Time

// SystemClock is the default wall clock.
func SystemClock() time.Time {
	return time.Now()
}
