// Package staking implements the custodial pool: holders park funding notes
// with the pool, which takes legal custody while recording who may reclaim
// each note. With the pool on the funding allowlist it can later collect the
// notes' backing funds on the stakers' behalf.
package staking

import (
	"sort"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/funding"
)

// Pool custodies staked notes under its own account. A note is staked by at
// most one holder at a time and only that holder may unstake it.
type Pool struct {
	account domain.Address
	notes   *funding.Notes
	emitter domain.Emitter

	// stakedBy records which holder staked each note while the pool owns it.
	stakedBy map[domain.TokenID]domain.Address
}

// NewPool builds a pool custodying notes under the given account. Stakers
// must grant the pool operator approval on the note collection before
// staking; the administrator must allowlist the pool before it can collect
// note funding.
func NewPool(account domain.Address, notes *funding.Notes, emitter domain.Emitter) *Pool {
	if emitter == nil {
		emitter = domain.NopEmitter{}
	}
	return &Pool{
		account:  account,
		notes:    notes,
		emitter:  emitter,
		stakedBy: make(map[domain.TokenID]domain.Address),
	}
}

// Account returns the pool's custody account.
func (p *Pool) Account() domain.Address { return p.account }

// Stake transfers custody of one note from the caller to the pool.
func (p *Pool) Stake(caller domain.Address, id domain.TokenID) error {
	owner, err := p.notes.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return domain.ErrNotYourToken
	}
	if err := p.notes.Transfer(p.account, caller, p.account, id); err != nil {
		return err
	}
	p.stakedBy[id] = caller
	p.emitter.Emit(domain.Event{
		Type: domain.EventStaked,
		Data: domain.StakePayload{Holder: caller, TokenID: id},
	})
	return nil
}

// StakeBatch stakes several notes. Ownership of every id is validated before
// any custody moves so a mixed batch stakes nothing.
func (p *Pool) StakeBatch(caller domain.Address, ids []domain.TokenID) error {
	for _, id := range ids {
		owner, err := p.notes.OwnerOf(id)
		if err != nil {
			return err
		}
		if owner != caller {
			return domain.ErrNotYourToken
		}
	}
	for _, id := range ids {
		if err := p.Stake(caller, id); err != nil {
			return err
		}
	}
	return nil
}

// Unstake returns custody of one note to its original staker.
func (p *Pool) Unstake(caller domain.Address, id domain.TokenID) error {
	staker, ok := p.stakedBy[id]
	if !ok || staker != caller {
		return domain.ErrNotStaked
	}
	if err := p.notes.Transfer(p.account, p.account, caller, id); err != nil {
		return err
	}
	delete(p.stakedBy, id)
	p.emitter.Emit(domain.Event{
		Type: domain.EventUnstaked,
		Data: domain.StakePayload{Holder: caller, TokenID: id},
	})
	return nil
}

// UnstakeBatch unstakes several notes; every id must have been staked by the
// caller or the whole batch fails before any custody moves.
func (p *Pool) UnstakeBatch(caller domain.Address, ids []domain.TokenID) error {
	for _, id := range ids {
		if staker, ok := p.stakedBy[id]; !ok || staker != caller {
			return domain.ErrNotStaked
		}
	}
	for _, id := range ids {
		if err := p.Unstake(caller, id); err != nil {
			return err
		}
	}
	return nil
}

// UnstakeAll returns every note the caller has staked.
func (p *Pool) UnstakeAll(caller domain.Address) error {
	ids := p.StakedTokens(caller)
	if len(ids) == 0 {
		return domain.ErrNotStaked
	}
	return p.UnstakeBatch(caller, ids)
}

// StakedTokens returns the caller's current stake set in ascending id order.
func (p *Pool) StakedTokens(holder domain.Address) []domain.TokenID {
	var ids []domain.TokenID
	for id, staker := range p.stakedBy {
		if staker == holder {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StakerOf returns who staked the note, or the zero address.
func (p *Pool) StakerOf(id domain.TokenID) domain.Address {
	return p.stakedBy[id]
}

// CollectFunding withdraws the backing funds of staked notes into the pool
// account. The pool must be allowlisted on the note collection; since the
// pool owns staked notes, the withdrawal's two-factor gate is satisfied for
// exactly the notes in custody.
func (p *Pool) CollectFunding(ids []domain.TokenID) (uint64, error) {
	for _, id := range ids {
		if _, ok := p.stakedBy[id]; !ok {
			return 0, domain.ErrNotStaked
		}
	}
	return p.notes.WithdrawBatch(p.account, ids)
}
