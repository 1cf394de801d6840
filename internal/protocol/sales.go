package protocol

import (
	"context"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

// MarketAccount returns the marketplace's acting account. Sellers approve it
// as operator before listing; buyers approve it to spend the sale price.
func (s *Service) MarketAccount() domain.Address {
	return s.market.Account()
}

// ListForSale creates the active sale listing for an asset.
func (s *Service) ListForSale(ctx context.Context, caller, collection domain.Address, id domain.TokenID, price uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.market.ListForSale(caller, collection, id, price); err != nil {
		return err
	}
	s.persistListing(ctx, collection, id)
	return nil
}

// CancelListing deactivates the caller's own listing.
func (s *Service) CancelListing(ctx context.Context, caller, collection domain.Address, id domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.market.Cancel(caller, collection, id); err != nil {
		return err
	}
	s.persist("listing", func(p Persister) error {
		return p.SaveListing(ctx, domain.Listing{Collection: collection, TokenID: id, Seller: caller, Active: false})
	})
	return nil
}

// Buy atomically exchanges the listed price for the asset.
func (s *Service) Buy(ctx context.Context, caller, collection domain.Address, id domain.TokenID, price uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.market.Buy(caller, collection, id, price); err != nil {
		return err
	}
	if col, err := s.collection(collection); err == nil {
		s.persistAsset(ctx, col, collection, id)
	}
	s.persist("listing", func(p Persister) error {
		return p.SaveListing(ctx, domain.Listing{Collection: collection, TokenID: id, Seller: caller, Price: price, Active: false})
	})
	return nil
}

// IsForSale reports whether an active listing exists for the asset.
func (s *Service) IsForSale(collection domain.Address, id domain.TokenID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market.IsForSale(collection, id)
}

// GetListingAssets returns the collection's active listings in id order.
func (s *Service) GetListingAssets(collection domain.Address) []domain.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market.Listings(collection)
}

func (s *Service) persistListing(ctx context.Context, collection domain.Address, id domain.TokenID) {
	s.persist("listing", func(p Persister) error {
		listing, err := s.market.Listing(collection, id)
		if err != nil {
			return err
		}
		return p.SaveListing(ctx, listing)
	})
}
