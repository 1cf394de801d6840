// Package protocol wires the collections, funding notes, staking pool and
// marketplace into one registry and serializes every public operation. The
// single mutex is the in-process stand-in for the host environment's
// totally-ordered transaction model: each operation is observed as atomic,
// and a failed operation leaves no partial state behind.
package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/funding"
	"github.com/natreeum/tomaas-staking-protocol/internal/market"
	"github.com/natreeum/tomaas-staking-protocol/internal/rental"
	"github.com/natreeum/tomaas-staking-protocol/internal/staking"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

// Persister receives committed state so the persisted layout survives
// restarts. Writes happen after the in-memory transition commits; a failed
// write is logged, never rolled into the transaction result.
type Persister interface {
	SaveCollection(ctx context.Context, addr domain.Address, name string, index int) error
	SaveAsset(ctx context.Context, collection domain.Address, id domain.TokenID, owner domain.Address, uri string, unclaimed uint64) error
	SaveUsageRight(ctx context.Context, collection domain.Address, id domain.TokenID, right domain.UsageRight) error
	SaveNote(ctx context.Context, id domain.TokenID, owner domain.Address, uri string, balance uint64) error
	SaveAllowlist(ctx context.Context, addr domain.Address, allowed bool) error
	SaveStake(ctx context.Context, holder domain.Address, id domain.TokenID, active bool) error
	SaveListing(ctx context.Context, listing domain.Listing) error
}

// Options assembles the protocol service.
type Options struct {
	Logger  *slog.Logger
	Clock   domain.Clock
	Payment token.Token
	Emitter domain.Emitter
	Repo    Persister // optional

	Admin        domain.Address
	FeeRecipient domain.Address
	FeeRateBps   uint64

	NotesAccount  domain.Address
	NotePriceCap  uint64
	PoolAccount   domain.Address
	MarketAccount domain.Address
}

type collectionEntry struct {
	addr   domain.Address
	rental *rental.Collection
}

// CollectionInfo is the registry's public view of one collection.
type CollectionInfo struct {
	Address domain.Address `json:"address"`
	Name    string         `json:"name"`
}

// AssetInfo aggregates the readable state of one rental asset.
type AssetInfo struct {
	TokenID   domain.TokenID `json:"tokenId"`
	Owner     domain.Address `json:"owner"`
	URI       string         `json:"uri"`
	User      domain.Address `json:"user"`
	Expires   int64          `json:"expires"`
	Unclaimed uint64         `json:"unclaimed"`
}

// NoteInfo aggregates the readable state of one funding note.
type NoteInfo struct {
	TokenID domain.TokenID `json:"tokenId"`
	Owner   domain.Address `json:"owner"`
	URI     string         `json:"uri"`
	Balance uint64         `json:"balance"`
}

// Service is the serialized facade over the whole protocol.
type Service struct {
	mu sync.Mutex

	logger  *slog.Logger
	clock   domain.Clock
	payment token.Token
	emitter domain.Emitter
	repo    Persister

	admin        domain.Address
	feeRecipient domain.Address
	feeRateBps   uint64

	collections []collectionEntry
	index       map[domain.Address]int

	notes  *funding.Notes
	pool   *staking.Pool
	market *market.Marketplace
}

// NewService builds the protocol with its note collection, staking pool and
// marketplace. The pool is allowlisted on the notes at construction so it can
// collect funding for staked notes.
func NewService(opts Options) (*Service, error) {
	if opts.Payment == nil {
		return nil, fmt.Errorf("protocol: payment token is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock
	}
	if opts.Emitter == nil {
		opts.Emitter = domain.NopEmitter{}
	}

	s := &Service{
		logger:       opts.Logger,
		clock:        opts.Clock,
		payment:      opts.Payment,
		emitter:      opts.Emitter,
		repo:         opts.Repo,
		admin:        opts.Admin,
		feeRecipient: opts.FeeRecipient,
		feeRateBps:   opts.FeeRateBps,
		index:        make(map[domain.Address]int),
	}

	notes, err := funding.New(funding.Config{
		Name:     "Tomaas Liquidity Provider Note",
		Payment:  opts.Payment,
		Account:  opts.NotesAccount,
		PriceCap: opts.NotePriceCap,
		Emitter:  stampEmitter{collection: opts.NotesAccount, sink: opts.Emitter},
	})
	if err != nil {
		return nil, fmt.Errorf("protocol: build note collection: %w", err)
	}
	s.notes = notes

	s.pool = staking.NewPool(opts.PoolAccount, notes,
		stampEmitter{collection: opts.NotesAccount, sink: opts.Emitter})
	if err := notes.AddToAllowlist(opts.PoolAccount); err != nil {
		return nil, fmt.Errorf("protocol: allowlist pool: %w", err)
	}

	s.market = market.New(opts.MarketAccount, s.resolveForMarket, opts.Emitter)

	return s, nil
}

// stampEmitter tags events with the collection they originated from.
type stampEmitter struct {
	collection domain.Address
	sink       domain.Emitter
}

func (e stampEmitter) Emit(evt domain.Event) {
	evt.Collection = e.collection
	e.sink.Emit(evt)
}

func (s *Service) resolveForMarket(addr domain.Address) (market.Collection, bool) {
	i, ok := s.index[addr]
	if !ok {
		return nil, false
	}
	return s.collections[i].rental, true
}

func (s *Service) requireAdmin(caller domain.Address) error {
	if caller != s.admin {
		return domain.ErrNotAdmin
	}
	return nil
}

func (s *Service) collection(addr domain.Address) (*rental.Collection, error) {
	i, ok := s.index[addr]
	if !ok {
		return nil, domain.ErrUnknownCollection
	}
	return s.collections[i].rental, nil
}

func (s *Service) persist(op string, fn func(Persister) error) {
	if s.repo == nil {
		return
	}
	if err := fn(s.repo); err != nil {
		s.logger.Warn("state persistence failed", "op", op, "error", err)
	}
}

func (s *Service) persistAsset(ctx context.Context, col *rental.Collection, addr domain.Address, id domain.TokenID) {
	s.persist("asset", func(p Persister) error {
		owner, err := col.OwnerOf(id)
		if err != nil {
			return err
		}
		uri, _ := col.TokenURI(id)
		unclaimed, _ := col.UnclaimedEarnings(id)
		return p.SaveAsset(ctx, addr, id, owner, uri, unclaimed)
	})
}

func (s *Service) persistNote(ctx context.Context, id domain.TokenID) {
	s.persist("note", func(p Persister) error {
		owner, err := s.notes.OwnerOf(id)
		if err != nil {
			return err
		}
		uri, _ := s.notes.TokenURI(id)
		balance, _ := s.notes.NoteBalance(id)
		return p.SaveNote(ctx, id, owner, uri, balance)
	})
}
