package protocol

import (
	"context"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

// PoolAccount returns the staking pool's custody account.
func (s *Service) PoolAccount() domain.Address {
	return s.pool.Account()
}

// StakeNotes parks the caller's notes with the staking pool. The whole batch
// is validated before custody moves.
func (s *Service) StakeNotes(ctx context.Context, caller domain.Address, ids []domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return domain.ErrEmptyBatch
	}

	var err error
	if len(ids) == 1 {
		err = s.pool.Stake(caller, ids[0])
	} else {
		err = s.pool.StakeBatch(caller, ids)
	}
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.persistNote(ctx, id)
		s.persist("stake", func(p Persister) error {
			return p.SaveStake(ctx, caller, id, true)
		})
	}
	return nil
}

// UnstakeNotes returns custody of the caller's staked notes.
func (s *Service) UnstakeNotes(ctx context.Context, caller domain.Address, ids []domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return domain.ErrEmptyBatch
	}

	var err error
	if len(ids) == 1 {
		err = s.pool.Unstake(caller, ids[0])
	} else {
		err = s.pool.UnstakeBatch(caller, ids)
	}
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.persistNote(ctx, id)
		s.persist("stake", func(p Persister) error {
			return p.SaveStake(ctx, caller, id, false)
		})
	}
	return nil
}

// UnstakeAllNotes returns every note the caller has staked.
func (s *Service) UnstakeAllNotes(ctx context.Context, caller domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.pool.StakedTokens(caller)
	if err := s.pool.UnstakeAll(caller); err != nil {
		return err
	}
	for _, id := range ids {
		s.persistNote(ctx, id)
		s.persist("stake", func(p Persister) error {
			return p.SaveStake(ctx, caller, id, false)
		})
	}
	return nil
}

// StakedTokens returns the holder's current stake set.
func (s *Service) StakedTokens(holder domain.Address) []domain.TokenID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.StakedTokens(holder)
}

// CollectPoolFunding lets the administrator trigger the pool's custodial
// withdrawal of staked note funding into the pool account.
func (s *Service) CollectPoolFunding(ctx context.Context, caller domain.Address, ids []domain.TokenID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(caller); err != nil {
		return 0, err
	}
	total, err := s.pool.CollectFunding(ids)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.persistNote(ctx, id)
	}
	s.logger.Info("pool funding collected", "notes", len(ids), "amount", total)
	return total, nil
}
