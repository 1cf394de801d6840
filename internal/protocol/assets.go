package protocol

import (
	"context"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

// MintAsset mints one rental asset into the collection. Minting is an
// administrative operation; holders acquire assets on the marketplace.
func (s *Service) MintAsset(ctx context.Context, caller, collection, to domain.Address, uri string) (domain.TokenID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(caller); err != nil {
		return 0, err
	}
	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	id, err := col.Mint(to, uri)
	if err != nil {
		return 0, err
	}
	s.persistAsset(ctx, col, collection, id)
	return id, nil
}

// TransferAsset reassigns ownership of a rental asset. An active usage right
// survives the transfer untouched.
func (s *Service) TransferAsset(ctx context.Context, caller, collection, from, to domain.Address, id domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := col.Transfer(caller, from, to, id); err != nil {
		return err
	}
	s.persistAsset(ctx, col, collection, id)
	return nil
}

// ApproveAsset grants a single-token delegation.
func (s *Service) ApproveAsset(ctx context.Context, caller, collection, operator domain.Address, id domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	return col.Approve(caller, operator, id)
}

// SetApprovalForAll grants or revokes an operator over all of the caller's
// assets in the collection.
func (s *Service) SetApprovalForAll(ctx context.Context, caller, collection, operator domain.Address, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	return col.SetApprovalForAll(caller, operator, approved)
}

// SetUser grants a usage right on the asset.
func (s *Service) SetUser(ctx context.Context, caller, collection domain.Address, id domain.TokenID, user domain.Address, expires int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := col.SetUser(caller, id, user, expires); err != nil {
		return err
	}
	s.persist("usage", func(p Persister) error {
		right, err := col.UsageRight(id)
		if err != nil {
			return err
		}
		return p.SaveUsageRight(ctx, collection, id, right)
	})
	return nil
}

// UserOf returns the active renter of the asset, zero once expired.
func (s *Service) UserOf(collection domain.Address, id domain.TokenID) (domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return domain.ZeroAddress, err
	}
	return col.UserOf(id)
}

// UserExpires returns the stored expiry of the asset's usage right.
func (s *Service) UserExpires(collection domain.Address, id domain.TokenID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return col.UserExpires(id)
}

// Asset returns the aggregated readable state of one rental asset.
func (s *Service) Asset(collection domain.Address, id domain.TokenID) (AssetInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return AssetInfo{}, err
	}
	owner, err := col.OwnerOf(id)
	if err != nil {
		return AssetInfo{}, err
	}
	uri, _ := col.TokenURI(id)
	user, _ := col.UserOf(id)
	expires, _ := col.UserExpires(id)
	unclaimed, _ := col.UnclaimedEarnings(id)
	return AssetInfo{
		TokenID:   id,
		Owner:     owner,
		URI:       uri,
		User:      user,
		Expires:   expires,
		Unclaimed: unclaimed,
	}, nil
}

// AssetsOf returns the caller's assets in one collection, ascending by id.
func (s *Service) AssetsOf(collection, owner domain.Address) ([]AssetInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	ids := col.TokensOf(owner)
	out := make([]AssetInfo, 0, len(ids))
	for _, id := range ids {
		uri, _ := col.TokenURI(id)
		user, _ := col.UserOf(id)
		expires, _ := col.UserExpires(id)
		unclaimed, _ := col.UnclaimedEarnings(id)
		out = append(out, AssetInfo{
			TokenID:   id,
			Owner:     owner,
			URI:       uri,
			User:      user,
			Expires:   expires,
			Unclaimed: unclaimed,
		})
	}
	return out, nil
}

// PayEarnings collects rent for one asset from its active renter.
func (s *Service) PayEarnings(ctx context.Context, caller, collection domain.Address, id domain.TokenID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := col.PayOutEarnings(caller, id, amount); err != nil {
		return err
	}
	s.persistAsset(ctx, col, collection, id)
	return nil
}

// PayEarningsAllRented splits one payment across every asset the caller
// actively rents in the collection.
func (s *Service) PayEarningsAllRented(ctx context.Context, caller, collection domain.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := col.PayOutEarningsAllRented(caller, amount); err != nil {
		return err
	}
	for _, id := range col.AllTokens() {
		if user, err := col.UserOf(id); err == nil && user == caller {
			s.persistAsset(ctx, col, collection, id)
		}
	}
	return nil
}

// ClaimEarnings pays out an asset's unclaimed balance to its owner, net of
// the platform fee.
func (s *Service) ClaimEarnings(ctx context.Context, caller, collection domain.Address, id domain.TokenID) (paid, fee uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return 0, 0, err
	}
	paid, fee, err = col.ClaimEarnings(caller, id)
	if err != nil {
		return 0, 0, err
	}
	s.persistAsset(ctx, col, collection, id)
	s.logger.Info("earnings claimed",
		"collection", collection, "tokenId", id, "owner", caller,
		"paid", paid, "fee", fee,
	)
	return paid, fee, nil
}

// UnclaimedEarnings reads one asset's escrowed balance.
func (s *Service) UnclaimedEarnings(collection domain.Address, id domain.TokenID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return col.UnclaimedEarnings(id)
}

// UnclaimedEarningsAll sums escrowed balances across all assets the owner
// holds in the collection.
func (s *Service) UnclaimedEarningsAll(collection, owner domain.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return col.UnclaimedEarningsAll(owner), nil
}
