// Package asset implements the identity primitive shared by every collection:
// which account owns which token id, plus the approval machinery that lets
// delegates act on an owner's behalf.
package asset

import (
	"sort"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

// Ledger tracks ownership for one collection. Token ids are sequential and
// permanent; burn is not supported. The ledger is not safe for concurrent use
// on its own; the protocol facade serializes every mutation.
type Ledger struct {
	nextID   domain.TokenID
	owners   map[domain.TokenID]domain.Address
	uris     map[domain.TokenID]string
	counts   map[domain.Address]int
	approved map[domain.TokenID]domain.Address
	// operators[owner][operator] holds approval-for-all grants
	operators map[domain.Address]map[domain.Address]bool
	emitter   domain.Emitter
}

// NewLedger returns an empty ownership ledger emitting to the given sink.
func NewLedger(emitter domain.Emitter) *Ledger {
	if emitter == nil {
		emitter = domain.NopEmitter{}
	}
	return &Ledger{
		owners:    make(map[domain.TokenID]domain.Address),
		uris:      make(map[domain.TokenID]string),
		counts:    make(map[domain.Address]int),
		approved:  make(map[domain.TokenID]domain.Address),
		operators: make(map[domain.Address]map[domain.Address]bool),
		emitter:   emitter,
	}
}

// Mint assigns the next sequential id to the recipient with an immutable
// metadata URI.
func (l *Ledger) Mint(to domain.Address, uri string) (domain.TokenID, error) {
	if to.IsZero() {
		return 0, domain.ErrZeroAddress
	}
	id := l.nextID
	l.nextID++
	l.owners[id] = to
	l.uris[id] = uri
	l.counts[to]++
	l.emitter.Emit(domain.Event{
		Type: domain.EventTransfer,
		Data: domain.TransferPayload{From: domain.ZeroAddress, To: to, TokenID: id},
	})
	return id, nil
}

// Exists reports whether the id was ever minted.
func (l *Ledger) Exists(id domain.TokenID) bool {
	_, ok := l.owners[id]
	return ok
}

// OwnerOf returns the current holder of the token.
func (l *Ledger) OwnerOf(id domain.TokenID) (domain.Address, error) {
	owner, ok := l.owners[id]
	if !ok {
		return domain.ZeroAddress, domain.ErrUnknownAsset
	}
	return owner, nil
}

// TokenURI returns the metadata URI set at mint.
func (l *Ledger) TokenURI(id domain.TokenID) (string, error) {
	if !l.Exists(id) {
		return "", domain.ErrUnknownAsset
	}
	return l.uris[id], nil
}

// BalanceOf returns how many tokens the account holds.
func (l *Ledger) BalanceOf(owner domain.Address) int {
	return l.counts[owner]
}

// TokensOf returns the ids held by the account in ascending order.
func (l *Ledger) TokensOf(owner domain.Address) []domain.TokenID {
	var ids []domain.TokenID
	for id, o := range l.owners {
		if o == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AllTokens returns every minted id in ascending order.
func (l *Ledger) AllTokens() []domain.TokenID {
	ids := make([]domain.TokenID, 0, len(l.owners))
	for id := range l.owners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Approve grants a single-token delegation. Caller must own the token or hold
// operator approval from the owner.
func (l *Ledger) Approve(caller, operator domain.Address, id domain.TokenID) error {
	owner, err := l.OwnerOf(id)
	if err != nil {
		return err
	}
	if caller != owner && !l.IsApprovedForAll(owner, caller) {
		return domain.ErrNotOwnerOrApproved
	}
	l.approved[id] = operator
	return nil
}

// Approved returns the single-token delegate, if any.
func (l *Ledger) Approved(id domain.TokenID) domain.Address {
	return l.approved[id]
}

// SetApprovalForAll grants or revokes an operator over every token the owner
// holds, now and in the future.
func (l *Ledger) SetApprovalForAll(owner, operator domain.Address, approvedFlag bool) error {
	if operator.IsZero() {
		return domain.ErrZeroAddress
	}
	m, ok := l.operators[owner]
	if !ok {
		m = make(map[domain.Address]bool)
		l.operators[owner] = m
	}
	m[operator] = approvedFlag
	l.emitter.Emit(domain.Event{
		Type: domain.EventApprovalForAll,
		Data: domain.ApprovalForAllPayload{Owner: owner, Operator: operator, Approved: approvedFlag},
	})
	return nil
}

// IsApprovedForAll reports whether operator may act for owner.
func (l *Ledger) IsApprovedForAll(owner, operator domain.Address) bool {
	return l.operators[owner][operator]
}

// IsApprovedOrOwner reports whether caller may act on the token.
func (l *Ledger) IsApprovedOrOwner(caller domain.Address, id domain.TokenID) (bool, error) {
	owner, err := l.OwnerOf(id)
	if err != nil {
		return false, err
	}
	return caller == owner || l.approved[id] == caller || l.IsApprovedForAll(owner, caller), nil
}

// Transfer reassigns ownership. The caller must be the owner, the token's
// delegate, or an approved operator; from must be the current owner. Any
// single-token approval is cleared, usage rights are untouched.
func (l *Ledger) Transfer(caller, from, to domain.Address, id domain.TokenID) error {
	owner, err := l.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != from {
		return domain.ErrWrongOwner
	}
	if to.IsZero() {
		return domain.ErrZeroAddress
	}
	ok, err := l.IsApprovedOrOwner(caller, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotOwnerOrApproved
	}

	delete(l.approved, id)
	l.owners[id] = to
	l.counts[from]--
	l.counts[to]++
	l.emitter.Emit(domain.Event{
		Type: domain.EventTransfer,
		Data: domain.TransferPayload{From: from, To: to, TokenID: id},
	})
	return nil
}
