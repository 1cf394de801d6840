// Package token models the fungible payment asset the ledger settles against.
// The ledger never assumes a specific token beyond the balance/allowance
// surface below.
package token

import (
	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

// Token is the balance/allowance contract required from a payment asset.
// Amounts are base units (6-decimal convention, see domain.TokenDecimals).
type Token interface {
	// BalanceOf returns the holder's spendable balance.
	BalanceOf(owner domain.Address) uint64

	// Allowance returns how much spender may still move out of owner's funds.
	Allowance(owner, spender domain.Address) uint64

	// Approve sets spender's allowance over owner's funds.
	Approve(owner, spender domain.Address, amount uint64)

	// Transfer moves funds directly between two accounts.
	Transfer(from, to domain.Address, amount uint64) error

	// TransferFrom moves funds out of from on behalf of spender, consuming
	// allowance. spender == from moves the caller's own funds.
	TransferFrom(spender, from, to domain.Address, amount uint64) error
}
