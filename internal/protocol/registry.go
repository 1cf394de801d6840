package protocol

import (
	"context"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/rental"
)

// AddCollection registers a new rentable collection under the given address.
// The collection list is append-only and its order is stable.
func (s *Service) AddCollection(ctx context.Context, caller, addr domain.Address, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if addr.IsZero() {
		return domain.ErrZeroAddress
	}
	if _, ok := s.index[addr]; ok {
		return domain.ErrCollectionExists
	}

	col, err := rental.New(rental.Config{
		Name:         name,
		Payment:      s.payment,
		Account:      addr,
		FeeRecipient: s.feeRecipient,
		FeeRateBps:   s.feeRateBps,
		Clock:        s.clock,
		Emitter:      stampEmitter{collection: addr, sink: s.emitter},
	})
	if err != nil {
		return err
	}

	index := len(s.collections)
	s.collections = append(s.collections, collectionEntry{addr: addr, rental: col})
	s.index[addr] = index

	s.persist("collection", func(p Persister) error {
		return p.SaveCollection(ctx, addr, name, index)
	})
	s.logger.Info("collection registered", "address", addr, "name", name, "index", index)
	return nil
}

// Collections returns the registry in insertion order.
func (s *Service) Collections() []CollectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CollectionInfo, 0, len(s.collections))
	for _, e := range s.collections {
		out = append(out, CollectionInfo{Address: e.addr, Name: e.rental.Name()})
	}
	return out
}

// CollectionAt returns the collection registered at the given index.
func (s *Service) CollectionAt(index int) (CollectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.collections) {
		return CollectionInfo{}, domain.ErrUnknownCollection
	}
	e := s.collections[index]
	return CollectionInfo{Address: e.addr, Name: e.rental.Name()}, nil
}

// CollectionIndex returns the registry position of the collection.
func (s *Service) CollectionIndex(addr domain.Address) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[addr]
	if !ok {
		return 0, domain.ErrUnknownCollection
	}
	return i, nil
}

// SetFeeRate updates the platform cut of one collection.
func (s *Service) SetFeeRate(ctx context.Context, caller, collection domain.Address, bps uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	return col.SetFeeRate(bps)
}

// FeeRate reads the platform cut of one collection.
func (s *Service) FeeRate(collection domain.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return col.FeeRate(), nil
}
