// Package funding implements the capped-balance note collection: assets whose
// mint price is escrowed as a per-token funding balance, withdrawable exactly
// once per funding cycle by an allowlisted custodian that also owns the note.
package funding

import (
	"fmt"
	"math"

	"github.com/natreeum/tomaas-staking-protocol/internal/asset"
	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

// Config assembles the note collection's dependencies. PriceCap is immutable
// after construction.
type Config struct {
	Name     string
	Payment  token.Token
	Account  domain.Address // escrow account holding note funding
	PriceCap uint64
	Emitter  domain.Emitter
}

// Notes is the funding-note collection. Every note's funding balance is
// bounded by the price cap set at construction.
type Notes struct {
	*asset.Ledger

	name     string
	payment  token.Token
	account  domain.Address
	priceCap uint64

	balances  map[domain.TokenID]uint64
	allowlist map[domain.Address]bool
}

// New builds the note collection.
func New(cfg Config) (*Notes, error) {
	if cfg.Payment == nil {
		return nil, fmt.Errorf("funding notes %q: payment token is required", cfg.Name)
	}
	if cfg.Account.IsZero() {
		return nil, domain.ErrZeroAddress
	}
	if cfg.PriceCap == 0 {
		return nil, fmt.Errorf("funding notes %q: price cap must be positive", cfg.Name)
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = domain.NopEmitter{}
	}
	return &Notes{
		Ledger:    asset.NewLedger(emitter),
		name:      cfg.Name,
		payment:   cfg.Payment,
		account:   cfg.Account,
		priceCap:  cfg.PriceCap,
		balances:  make(map[domain.TokenID]uint64),
		allowlist: make(map[domain.Address]bool),
	}, nil
}

// Name returns the collection's display name.
func (n *Notes) Name() string { return n.name }

// Account returns the escrow account.
func (n *Notes) Account() domain.Address { return n.account }

// PriceCap returns the immutable per-note funding ceiling.
func (n *Notes) PriceCap() uint64 { return n.priceCap }

// NoteBalance returns the current funding balance of one note.
func (n *Notes) NoteBalance(id domain.TokenID) (uint64, error) {
	if !n.Exists(id) {
		return 0, domain.ErrUnknownAsset
	}
	return n.balances[id], nil
}

// AddToAllowlist permits an account to withdraw note funding. The facade
// restricts this to the administrator role.
func (n *Notes) AddToAllowlist(addr domain.Address) error {
	if addr.IsZero() {
		return domain.ErrZeroAddress
	}
	n.allowlist[addr] = true
	return nil
}

// RemoveFromAllowlist revokes withdrawal permission.
func (n *Notes) RemoveFromAllowlist(addr domain.Address) {
	delete(n.allowlist, addr)
}

// IsAllowlisted reports whether the account may withdraw note funding.
func (n *Notes) IsAllowlisted(addr domain.Address) bool {
	return n.allowlist[addr]
}

// Allowlisted returns the current allowlist snapshot.
func (n *Notes) Allowlisted() []domain.Address {
	var out []domain.Address
	for addr, ok := range n.allowlist {
		if ok {
			out = append(out, addr)
		}
	}
	return out
}

// MintBatch mints count sequential notes to the recipient, collecting
// count * priceCap from the caller in one movement. The payment capacity is
// validated up front so an underfunded batch mints nothing.
func (n *Notes) MintBatch(caller, to domain.Address, uri string, count int) ([]domain.TokenID, error) {
	if count <= 0 {
		return nil, fmt.Errorf("mint count must be positive, got %d", count)
	}
	if to.IsZero() {
		return nil, domain.ErrZeroAddress
	}
	if n.priceCap > 0 && uint64(count) > math.MaxUint64/n.priceCap {
		return nil, fmt.Errorf("mint count %d overflows the batch price", count)
	}
	total := n.priceCap * uint64(count)
	if caller != n.account && n.payment.Allowance(caller, n.account) < total {
		return nil, domain.ErrInsufficientAllowance
	}
	if n.payment.BalanceOf(caller) < total {
		return nil, domain.ErrInsufficientBalance
	}
	if err := n.payment.TransferFrom(n.account, caller, n.account, total); err != nil {
		return nil, err
	}

	ids := make([]domain.TokenID, 0, count)
	for i := 0; i < count; i++ {
		id, err := n.Mint(to, uri)
		if err != nil {
			return nil, err
		}
		n.balances[id] = n.priceCap
		ids = append(ids, id)
	}
	return ids, nil
}

// Withdraw drains one note's funding balance to the caller. Both gates are
// required: the caller must be allowlisted and must currently own the note.
// A second withdrawal without re-funding fails rather than no-ops.
func (n *Notes) Withdraw(caller domain.Address, id domain.TokenID) (uint64, error) {
	if !n.allowlist[caller] {
		return 0, domain.ErrNotAllowlisted
	}
	owner, err := n.OwnerOf(id)
	if err != nil {
		return 0, err
	}
	if owner != caller {
		return 0, domain.ErrNotYourToken
	}
	amount := n.balances[id]
	if amount == 0 {
		return 0, domain.ErrEmptyBalance
	}

	n.balances[id] = 0
	if err := n.payment.Transfer(n.account, caller, amount); err != nil {
		n.balances[id] = amount
		return 0, err
	}
	return amount, nil
}

// WithdrawBatch drains several notes in one movement. Every id is validated
// before any balance moves; one bad id fails the whole batch.
func (n *Notes) WithdrawBatch(caller domain.Address, ids []domain.TokenID) (uint64, error) {
	if !n.allowlist[caller] {
		return 0, domain.ErrNotAllowlisted
	}
	var total uint64
	for _, id := range ids {
		owner, err := n.OwnerOf(id)
		if err != nil {
			return 0, err
		}
		if owner != caller {
			return 0, domain.ErrNotYourToken
		}
		if n.balances[id] == 0 {
			return 0, domain.ErrEmptyBalance
		}
		total += n.balances[id]
	}

	drained := make(map[domain.TokenID]uint64, len(ids))
	for _, id := range ids {
		drained[id] = n.balances[id]
		n.balances[id] = 0
	}
	if err := n.payment.Transfer(n.account, caller, total); err != nil {
		for id, bal := range drained {
			n.balances[id] = bal
		}
		return 0, err
	}
	return total, nil
}

// Refund tops a note's funding balance back up to the price cap, starting a
// new funding cycle. Amounts beyond the cap are rejected to keep the
// fundingBalance <= priceCap invariant.
func (n *Notes) Refund(caller domain.Address, id domain.TokenID, amount uint64) error {
	if !n.Exists(id) {
		return domain.ErrUnknownAsset
	}
	if n.balances[id]+amount > n.priceCap {
		return fmt.Errorf("refund of %d would exceed price cap %d", amount, n.priceCap)
	}
	if err := n.payment.TransferFrom(n.account, caller, n.account, amount); err != nil {
		return err
	}
	n.balances[id] += amount
	return nil
}
