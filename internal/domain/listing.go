package domain

// Listing is a sale offer for one asset. Exactly one active listing may exist
// per (collection, token id) pair.
type Listing struct {
	Collection Address `json:"collection"`
	TokenID    TokenID `json:"tokenId"`
	Seller     Address `json:"seller"`
	Price      uint64  `json:"price"`
	Active     bool    `json:"active"`
}

// UsageRight is the (user, expiry) pair attached to an asset, independent of
// ownership. Expires is absolute unix seconds; the right lapses lazily once
// the clock passes it.
type UsageRight struct {
	User    Address `json:"user"`
	Expires int64   `json:"expires"`
}
