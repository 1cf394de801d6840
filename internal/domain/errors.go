package domain

import "errors"

// Error taxonomy surfaced by ledger operations. Every failure leaves state
// untouched; callers decide whether to retry.
var (
	// ErrUnknownAsset indicates the token id was never minted.
	ErrUnknownAsset = errors.New("token does not exist")

	// ErrNotOwnerOrApproved indicates the caller is neither the owner of the
	// asset nor an approved delegate.
	ErrNotOwnerOrApproved = errors.New("caller is not token owner or approved")

	// ErrNotCurrentUser indicates the caller is not the active renter of the
	// asset, either because the right expired or was never granted.
	ErrNotCurrentUser = errors.New("caller is not the current user")

	// ErrNoActiveRentals indicates the caller rents nothing at call time.
	ErrNoActiveRentals = errors.New("caller has no active rentals")

	// ErrNoEarnings indicates there is nothing to claim for the asset.
	ErrNoEarnings = errors.New("no earnings to claim")

	// ErrEmptyBalance indicates a funding note has already been drained.
	// The message is part of the ledger's compatibility surface.
	ErrEmptyBalance = errors.New("token has no balance")

	// ErrNotYourToken indicates a batch contained an id the caller does not
	// own. The message is part of the ledger's compatibility surface.
	ErrNotYourToken = errors.New("You entered a tokenId that is not yours")

	// ErrInsufficientAllowance indicates the pre-authorized payment capacity
	// is smaller than the amount an operation needs to collect.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInsufficientBalance indicates the payer's fungible balance is short.
	ErrInsufficientBalance = errors.New("not enough token balance")

	// ErrPriceMismatch indicates the offered price differs from the listing.
	ErrPriceMismatch = errors.New("price is not correct")

	// ErrZeroAddress indicates the null identifier where a real account is
	// required.
	ErrZeroAddress = errors.New("address is zero")

	// ErrWrongOwner indicates a transfer named a from address that does not
	// hold the token.
	ErrWrongOwner = errors.New("transfer from address is not the owner")

	// ErrNotApproved indicates the marketplace was not granted operator
	// approval by the seller.
	ErrNotApproved = errors.New("marketplace is not approved")

	// ErrNotForSale indicates no active listing exists for the asset.
	ErrNotForSale = errors.New("token is not for sale")

	// ErrUnknownCollection indicates the collection is not registered.
	ErrUnknownCollection = errors.New("collection does not exist")

	// ErrCollectionExists indicates the collection is already registered.
	ErrCollectionExists = errors.New("collection already registered")

	// ErrNotAdmin indicates an operation reserved for the administrator role.
	ErrNotAdmin = errors.New("caller is not the administrator")

	// ErrNotAllowlisted indicates the caller is not on the custodial
	// withdrawal allowlist.
	ErrNotAllowlisted = errors.New("caller is not allowlisted")

	// ErrNotStaked indicates the caller did not stake the token.
	ErrNotStaked = errors.New("token is not staked by caller")

	// ErrAlreadyListed indicates an active listing already exists for the
	// (collection, token) pair.
	ErrAlreadyListed = errors.New("token is already listed")

	// ErrEmptyBatch indicates a batch operation was called without token ids.
	ErrEmptyBatch = errors.New("token id list is empty")
)
