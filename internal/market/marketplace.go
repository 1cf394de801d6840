// Package market implements the peer-to-peer sale marketplace: a seller lists
// an asset at a fixed price and a buyer exchanges payment for it atomically.
package market

import (
	"sort"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

// Collection is the slice of a rental collection the marketplace needs.
// *rental.Collection satisfies it.
type Collection interface {
	OwnerOf(id domain.TokenID) (domain.Address, error)
	Approved(id domain.TokenID) domain.Address
	IsApprovedForAll(owner, operator domain.Address) bool
	Transfer(caller, from, to domain.Address, id domain.TokenID) error
	Payment() token.Token
}

// Resolver maps a registered collection address to its ledger.
type Resolver func(collection domain.Address) (Collection, bool)

// Marketplace keeps at most one active listing per (collection, token) pair
// and settles sales through each collection's payment token.
type Marketplace struct {
	account  domain.Address
	resolve  Resolver
	emitter  domain.Emitter
	listings map[domain.Address]map[domain.TokenID]domain.Listing
}

// New builds a marketplace acting under the given account. Sellers must have
// granted that account approval before listing; buyers must have approved it
// to spend the sale price.
func New(account domain.Address, resolve Resolver, emitter domain.Emitter) *Marketplace {
	if emitter == nil {
		emitter = domain.NopEmitter{}
	}
	return &Marketplace{
		account:  account,
		resolve:  resolve,
		emitter:  emitter,
		listings: make(map[domain.Address]map[domain.TokenID]domain.Listing),
	}
}

// Account returns the marketplace's acting account.
func (m *Marketplace) Account() domain.Address { return m.account }

// ListForSale creates the active listing for the asset.
func (m *Marketplace) ListForSale(caller, collection domain.Address, id domain.TokenID, price uint64) error {
	col, ok := m.resolve(collection)
	if !ok {
		return domain.ErrUnknownCollection
	}
	owner, err := col.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return domain.ErrNotOwnerOrApproved
	}
	if col.Approved(id) != m.account && !col.IsApprovedForAll(owner, m.account) {
		return domain.ErrNotApproved
	}
	if existing, ok := m.listings[collection][id]; ok && existing.Active {
		return domain.ErrAlreadyListed
	}

	byID, ok := m.listings[collection]
	if !ok {
		byID = make(map[domain.TokenID]domain.Listing)
		m.listings[collection] = byID
	}
	byID[id] = domain.Listing{
		Collection: collection,
		TokenID:    id,
		Seller:     caller,
		Price:      price,
		Active:     true,
	}
	m.emitter.Emit(domain.Event{
		Type:       domain.EventListed,
		Collection: collection,
		Data:       domain.ListingPayload{TokenID: id, Seller: caller, Price: price},
	})
	return nil
}

// Cancel deactivates the caller's own listing.
func (m *Marketplace) Cancel(caller, collection domain.Address, id domain.TokenID) error {
	listing, ok := m.listings[collection][id]
	if !ok || !listing.Active {
		return domain.ErrNotForSale
	}
	if listing.Seller != caller {
		return domain.ErrNotOwnerOrApproved
	}
	listing.Active = false
	m.listings[collection][id] = listing
	m.emitter.Emit(domain.Event{
		Type:       domain.EventSaleCancelled,
		Collection: collection,
		Data:       domain.ListingPayload{TokenID: id, Seller: caller, Price: listing.Price},
	})
	return nil
}

// IsForSale reports whether an active listing exists for the asset.
func (m *Marketplace) IsForSale(collection domain.Address, id domain.TokenID) bool {
	listing, ok := m.listings[collection][id]
	return ok && listing.Active
}

// Listing returns the active listing for the asset.
func (m *Marketplace) Listing(collection domain.Address, id domain.TokenID) (domain.Listing, error) {
	listing, ok := m.listings[collection][id]
	if !ok || !listing.Active {
		return domain.Listing{}, domain.ErrNotForSale
	}
	return listing, nil
}

// Listings returns the collection's active listings in ascending id order.
func (m *Marketplace) Listings(collection domain.Address) []domain.Listing {
	var out []domain.Listing
	for _, listing := range m.listings[collection] {
		if listing.Active {
			out = append(out, listing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// Buy exchanges the exact listed price for the asset. The listing is consumed
// before either transfer runs so a reentrant buy finds nothing for sale; a
// failed leg restores it along with any moved funds.
func (m *Marketplace) Buy(caller, collection domain.Address, id domain.TokenID, price uint64) error {
	col, ok := m.resolve(collection)
	if !ok {
		return domain.ErrUnknownCollection
	}
	listing, ok := m.listings[collection][id]
	if !ok || !listing.Active {
		return domain.ErrNotForSale
	}
	if price != listing.Price {
		return domain.ErrPriceMismatch
	}

	// A listing goes stale when the seller moves the token or revokes the
	// marketplace after listing. Both legs are validated before any funds
	// move so a failed buy consumes neither balance nor allowance.
	owner, err := col.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != listing.Seller {
		return domain.ErrNotForSale
	}
	if col.Approved(id) != m.account && !col.IsApprovedForAll(owner, m.account) {
		return domain.ErrNotApproved
	}

	pay := col.Payment()
	if pay.BalanceOf(caller) < price {
		return domain.ErrInsufficientBalance
	}
	if pay.Allowance(caller, m.account) < price {
		return domain.ErrInsufficientAllowance
	}

	listing.Active = false
	m.listings[collection][id] = listing

	if err := pay.TransferFrom(m.account, caller, listing.Seller, price); err != nil {
		listing.Active = true
		m.listings[collection][id] = listing
		return err
	}
	if err := col.Transfer(m.account, listing.Seller, caller, id); err != nil {
		_ = pay.Transfer(listing.Seller, caller, price)
		pay.Approve(caller, m.account, pay.Allowance(caller, m.account)+price)
		listing.Active = true
		m.listings[collection][id] = listing
		return err
	}

	m.emitter.Emit(domain.Event{
		Type:       domain.EventSold,
		Collection: collection,
		Data:       domain.ListingPayload{TokenID: id, Seller: listing.Seller, Buyer: caller, Price: price},
	})
	return nil
}
