package protocol

import (
	"context"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

// NotePriceCap returns the immutable per-note funding ceiling.
func (s *Service) NotePriceCap() uint64 {
	return s.notes.PriceCap()
}

// MintNotes mints count funding notes to the recipient, collecting
// count * priceCap from the caller atomically.
func (s *Service) MintNotes(ctx context.Context, caller, to domain.Address, uri string, count int) ([]domain.TokenID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.notes.MintBatch(caller, to, uri, count)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.persistNote(ctx, id)
	}
	s.logger.Info("notes minted", "to", to, "count", count, "firstId", ids[0])
	return ids, nil
}

// WithdrawNote drains one note's funding balance to the caller.
func (s *Service) WithdrawNote(ctx context.Context, caller domain.Address, id domain.TokenID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.notes.Withdraw(caller, id)
	if err != nil {
		return 0, err
	}
	s.persistNote(ctx, id)
	return amount, nil
}

// WithdrawNotes drains several notes at once, all-or-nothing.
func (s *Service) WithdrawNotes(ctx context.Context, caller domain.Address, ids []domain.TokenID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return 0, domain.ErrEmptyBatch
	}
	total, err := s.notes.WithdrawBatch(caller, ids)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.persistNote(ctx, id)
	}
	return total, nil
}

// RefundNote restores a note's funding balance up to the price cap.
func (s *Service) RefundNote(ctx context.Context, caller domain.Address, id domain.TokenID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.notes.Refund(caller, id, amount); err != nil {
		return err
	}
	s.persistNote(ctx, id)
	return nil
}

// SetAllowlisted adds or removes a custodian on the note allowlist.
func (s *Service) SetAllowlisted(ctx context.Context, caller, addr domain.Address, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if allowed {
		if err := s.notes.AddToAllowlist(addr); err != nil {
			return err
		}
	} else {
		s.notes.RemoveFromAllowlist(addr)
	}
	s.persist("allowlist", func(p Persister) error {
		return p.SaveAllowlist(ctx, addr, allowed)
	})
	return nil
}

// IsAllowlisted reports whether the account may withdraw note funding.
func (s *Service) IsAllowlisted(addr domain.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes.IsAllowlisted(addr)
}

// Note returns the aggregated readable state of one funding note.
func (s *Service) Note(id domain.TokenID) (NoteInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.notes.OwnerOf(id)
	if err != nil {
		return NoteInfo{}, err
	}
	uri, _ := s.notes.TokenURI(id)
	balance, _ := s.notes.NoteBalance(id)
	return NoteInfo{TokenID: id, Owner: owner, URI: uri, Balance: balance}, nil
}

// ApproveNoteOperator grants or revokes an operator over all of the caller's
// notes; stakers use it to authorize the pool for custody transfers.
func (s *Service) ApproveNoteOperator(ctx context.Context, caller, operator domain.Address, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.notes.SetApprovalForAll(caller, operator, approved)
}
