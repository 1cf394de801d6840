// Package repository persists the ledger's state layout in the graph
// database: accounts, assets, usage rights, unclaimed balances, the
// collection registry, stake sets, listings and the withdrawal allowlist.
// The in-memory ledger is authoritative; writes land here after each
// committed transition so the layout survives restarts.
package repository

import (
	"context"
	"fmt"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/graph"
)

const upsertCollectionCypher = `
MERGE (c:Collection {address: $address})
SET c.name = $name,
    c.index = $index
`

const upsertAssetCypher = `
MERGE (a:Asset {collection: $collection, tokenId: $tokenId})
SET a.uri = $uri,
    a.unclaimed = $unclaimed
WITH a
OPTIONAL MATCH (prev:Account)-[r:OWNS]->(a)
DELETE r
WITH a
MERGE (o:Account {address: $owner})
MERGE (o)-[:OWNS]->(a)
`

const upsertUsageCypher = `
MATCH (a:Asset {collection: $collection, tokenId: $tokenId})
OPTIONAL MATCH (prev:Account)-[r:RENTS]->(a)
DELETE r
WITH a
SET a.userExpires = $expires
WITH a
WHERE $user <> ''
MERGE (u:Account {address: $user})
MERGE (u)-[:RENTS]->(a)
`

const upsertNoteCypher = `
MERGE (n:Note {tokenId: $tokenId})
SET n.uri = $uri,
    n.balance = $balance
WITH n
OPTIONAL MATCH (prev:Account)-[r:HOLDS]->(n)
DELETE r
WITH n
MERGE (o:Account {address: $owner})
MERGE (o)-[:HOLDS]->(n)
`

const upsertAllowlistCypher = `
MERGE (a:Account {address: $address})
SET a.allowlisted = $allowed
`

const upsertStakeCypher = `
MERGE (h:Account {address: $holder})
MERGE (n:Note {tokenId: $tokenId})
WITH h, n
OPTIONAL MATCH (h)-[r:STAKED]->(n)
DELETE r
WITH h, n
WHERE $active
MERGE (h)-[:STAKED]->(n)
`

const upsertListingCypher = `
MERGE (l:Listing {collection: $collection, tokenId: $tokenId})
SET l.seller = $seller,
    l.price = $price,
    l.active = $active
`

const loadCollectionsCypher = `
MATCH (c:Collection)
RETURN c.address AS address, c.name AS name, c.index AS index
ORDER BY c.index
`

const loadAssetsCypher = `
MATCH (o:Account)-[:OWNS]->(a:Asset {collection: $collection})
OPTIONAL MATCH (u:Account)-[:RENTS]->(a)
RETURN a.tokenId AS tokenId, a.uri AS uri, a.unclaimed AS unclaimed,
       a.userExpires AS userExpires, o.address AS owner, u.address AS user
ORDER BY a.tokenId
`

// Repository implements the protocol's Persister contract on the graph client.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// SaveCollection records one registry entry with its stable index.
func (r *Repository) SaveCollection(ctx context.Context, addr domain.Address, name string, index int) error {
	params := map[string]any{
		"address": string(addr),
		"name":    name,
		"index":   index,
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertCollectionCypher, params); err != nil {
		return fmt.Errorf("save collection %s: %w", addr, err)
	}
	return nil
}

// SaveAsset records the asset's owner, metadata URI and unclaimed balance.
func (r *Repository) SaveAsset(ctx context.Context, collection domain.Address, id domain.TokenID, owner domain.Address, uri string, unclaimed uint64) error {
	params := map[string]any{
		"collection": string(collection),
		"tokenId":    int64(id),
		"owner":      string(owner),
		"uri":        uri,
		"unclaimed":  int64(unclaimed),
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertAssetCypher, params); err != nil {
		return fmt.Errorf("save asset %s/%d: %w", collection, id, err)
	}
	return nil
}

// SaveUsageRight records the asset's current (user, expiry) pair.
func (r *Repository) SaveUsageRight(ctx context.Context, collection domain.Address, id domain.TokenID, right domain.UsageRight) error {
	params := map[string]any{
		"collection": string(collection),
		"tokenId":    int64(id),
		"user":       string(right.User),
		"expires":    right.Expires,
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertUsageCypher, params); err != nil {
		return fmt.Errorf("save usage right %s/%d: %w", collection, id, err)
	}
	return nil
}

// SaveNote records a funding note's owner and balance.
func (r *Repository) SaveNote(ctx context.Context, id domain.TokenID, owner domain.Address, uri string, balance uint64) error {
	params := map[string]any{
		"tokenId": int64(id),
		"owner":   string(owner),
		"uri":     uri,
		"balance": int64(balance),
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertNoteCypher, params); err != nil {
		return fmt.Errorf("save note %d: %w", id, err)
	}
	return nil
}

// SaveAllowlist records an account's custodial withdrawal permission.
func (r *Repository) SaveAllowlist(ctx context.Context, addr domain.Address, allowed bool) error {
	params := map[string]any{
		"address": string(addr),
		"allowed": allowed,
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertAllowlistCypher, params); err != nil {
		return fmt.Errorf("save allowlist %s: %w", addr, err)
	}
	return nil
}

// SaveStake records or clears a (holder, note) stake edge.
func (r *Repository) SaveStake(ctx context.Context, holder domain.Address, id domain.TokenID, active bool) error {
	params := map[string]any{
		"holder":  string(holder),
		"tokenId": int64(id),
		"active":  active,
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertStakeCypher, params); err != nil {
		return fmt.Errorf("save stake %s/%d: %w", holder, id, err)
	}
	return nil
}

// SaveListing records a sale listing's latest state.
func (r *Repository) SaveListing(ctx context.Context, listing domain.Listing) error {
	params := map[string]any{
		"collection": string(listing.Collection),
		"tokenId":    int64(listing.TokenID),
		"seller":     string(listing.Seller),
		"price":      int64(listing.Price),
		"active":     listing.Active,
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertListingCypher, params); err != nil {
		return fmt.Errorf("save listing %s/%d: %w", listing.Collection, listing.TokenID, err)
	}
	return nil
}

// StoredCollection is one persisted registry entry.
type StoredCollection struct {
	Address domain.Address
	Name    string
	Index   int
}

// LoadCollections returns the persisted registry in index order.
func (r *Repository) LoadCollections(ctx context.Context) ([]StoredCollection, error) {
	res, err := r.client.ExecuteRead(ctx, loadCollectionsCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	var out []StoredCollection
	for _, rec := range res.Records {
		out = append(out, StoredCollection{
			Address: domain.Address(toString(rec["address"])),
			Name:    toString(rec["name"]),
			Index:   int(toInt64(rec["index"])),
		})
	}
	return out, nil
}

// StoredAsset is one persisted asset row.
type StoredAsset struct {
	TokenID     domain.TokenID
	Owner       domain.Address
	URI         string
	Unclaimed   uint64
	User        domain.Address
	UserExpires int64
}

// LoadAssets returns a collection's persisted assets in id order.
func (r *Repository) LoadAssets(ctx context.Context, collection domain.Address) ([]StoredAsset, error) {
	params := map[string]any{"collection": string(collection)}
	res, err := r.client.ExecuteRead(ctx, loadAssetsCypher, params)
	if err != nil {
		return nil, fmt.Errorf("load assets %s: %w", collection, err)
	}
	var out []StoredAsset
	for _, rec := range res.Records {
		out = append(out, StoredAsset{
			TokenID:     domain.TokenID(toInt64(rec["tokenId"])),
			Owner:       domain.Address(toString(rec["owner"])),
			URI:         toString(rec["uri"]),
			Unclaimed:   uint64(toInt64(rec["unclaimed"])),
			User:        domain.Address(toString(rec["user"])),
			UserExpires: toInt64(rec["userExpires"]),
		})
	}
	return out, nil
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
