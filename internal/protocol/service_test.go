package protocol

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

const fleet = domain.Address("fleet-1")

type fixture struct {
	svc    *Service
	ledger *token.Ledger
	events []domain.Event
}

func (f *fixture) Emit(evt domain.Event) {
	f.events = append(f.events, evt)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{ledger: token.NewLedger()}
	svc, err := NewService(Options{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:         func() time.Time { return time.Unix(1_700_000_000, 0) },
		Payment:       f.ledger,
		Emitter:       f,
		Admin:         "admin",
		FeeRecipient:  "treasury",
		FeeRateBps:    100,
		NotesAccount:  "lpn-escrow",
		NotePriceCap:  100_000_000,
		PoolAccount:   "staking-pool",
		MarketAccount: "marketplace",
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) addFleet(t *testing.T) {
	t.Helper()
	if err := f.svc.AddCollection(context.Background(), "admin", fleet, "Fleet One"); err != nil {
		t.Fatalf("add collection failed: %v", err)
	}
}

func (f *fixture) fund(addr, spender domain.Address, amount uint64) {
	f.ledger.Mint(addr, amount)
	f.ledger.Approve(addr, spender, amount)
}

func TestRegistryOrderAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.AddCollection(ctx, "mallory", "fleet-x", "Nope"); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := f.svc.AddCollection(ctx, "admin", domain.ZeroAddress, "Nope"); !errors.Is(err, domain.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}

	for i, addr := range []domain.Address{"fleet-a", "fleet-b", "fleet-c"} {
		if err := f.svc.AddCollection(ctx, "admin", addr, "Fleet"); err != nil {
			t.Fatalf("add collection %d failed: %v", i, err)
		}
	}
	if err := f.svc.AddCollection(ctx, "admin", "fleet-b", "Fleet"); !errors.Is(err, domain.ErrCollectionExists) {
		t.Fatalf("expected ErrCollectionExists, got %v", err)
	}

	infos := f.svc.Collections()
	if len(infos) != 3 || infos[0].Address != "fleet-a" || infos[2].Address != "fleet-c" {
		t.Fatalf("unexpected registry order: %+v", infos)
	}

	idx, err := f.svc.CollectionIndex("fleet-b")
	if err != nil || idx != 1 {
		t.Fatalf("expected index 1, got %d (err %v)", idx, err)
	}
	info, err := f.svc.CollectionAt(1)
	if err != nil || info.Address != "fleet-b" {
		t.Fatalf("expected fleet-b at index 1, got %+v (err %v)", info, err)
	}
	if _, err := f.svc.CollectionAt(3); !errors.Is(err, domain.ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestFeeRateAdministration(t *testing.T) {
	f := newFixture(t)
	f.addFleet(t)
	ctx := context.Background()

	if err := f.svc.SetFeeRate(ctx, "mallory", fleet, 200); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := f.svc.SetFeeRate(ctx, "admin", fleet, 200); err != nil {
		t.Fatalf("set fee rate failed: %v", err)
	}
	bps, err := f.svc.FeeRate(fleet)
	if err != nil || bps != 200 {
		t.Fatalf("expected fee rate 200, got %d (err %v)", bps, err)
	}
}

func TestEndToEndRentalLifecycle(t *testing.T) {
	f := newFixture(t)
	f.addFleet(t)
	ctx := context.Background()

	if _, err := f.svc.MintAsset(ctx, "alice", fleet, "alice", "ipfs://a"); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin for non-admin mint, got %v", err)
	}

	id, err := f.svc.MintAsset(ctx, "admin", fleet, "alice", "ipfs://a")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if err := f.svc.SetUser(ctx, "alice", fleet, id, "bob", 1_700_003_600); err != nil {
		t.Fatalf("set user failed: %v", err)
	}
	user, err := f.svc.UserOf(fleet, id)
	if err != nil || user != "bob" {
		t.Fatalf("expected user bob, got %q (err %v)", user, err)
	}

	f.fund("bob", fleet, 10_000_000)
	if err := f.svc.PayEarnings(ctx, "bob", fleet, id, 10_000_000); err != nil {
		t.Fatalf("pay earnings failed: %v", err)
	}

	paid, fee, err := f.svc.ClaimEarnings(ctx, "alice", fleet, id)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if paid != 9_900_000 || fee != 100_000 {
		t.Fatalf("expected 9900000/100000, got %d/%d", paid, fee)
	}
	if got := f.ledger.BalanceOf("treasury"); got != 100_000 {
		t.Fatalf("expected treasury fee 100000, got %d", got)
	}

	// Claimed events carry the collection address they originated from.
	var claimed *domain.Event
	for i := range f.events {
		if f.events[i].Type == domain.EventClaimed {
			claimed = &f.events[i]
		}
	}
	if claimed == nil || claimed.Collection != fleet {
		t.Fatalf("expected Claimed event stamped with %s, got %+v", fleet, claimed)
	}
}

func TestNoteLifecycleThroughFacade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fund("carol", "lpn-escrow", 2*f.svc.NotePriceCap())
	ids, err := f.svc.MintNotes(ctx, "carol", "carol", "ipfs://note", 2)
	if err != nil {
		t.Fatalf("mint notes failed: %v", err)
	}

	if _, err := f.svc.WithdrawNote(ctx, "carol", ids[0]); !errors.Is(err, domain.ErrNotAllowlisted) {
		t.Fatalf("expected ErrNotAllowlisted, got %v", err)
	}
	if err := f.svc.SetAllowlisted(ctx, "mallory", "carol", true); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := f.svc.SetAllowlisted(ctx, "admin", "carol", true); err != nil {
		t.Fatalf("allowlist failed: %v", err)
	}
	if !f.svc.IsAllowlisted("carol") {
		t.Fatal("expected carol allowlisted")
	}

	paid, err := f.svc.WithdrawNotes(ctx, "carol", ids)
	if err != nil {
		t.Fatalf("withdraw notes failed: %v", err)
	}
	if paid != 2*f.svc.NotePriceCap() {
		t.Fatalf("expected full funding withdrawal, got %d", paid)
	}

	note, err := f.svc.Note(ids[0])
	if err != nil || note.Balance != 0 {
		t.Fatalf("expected drained note, got %+v (err %v)", note, err)
	}

	f.fund("refunder", "lpn-escrow", f.svc.NotePriceCap())
	if err := f.svc.RefundNote(ctx, "refunder", ids[0], f.svc.NotePriceCap()); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	note, _ = f.svc.Note(ids[0])
	if note.Balance != f.svc.NotePriceCap() {
		t.Fatalf("expected refunded balance, got %d", note.Balance)
	}
}

func TestStakingThroughFacade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fund("carol", "lpn-escrow", 3*f.svc.NotePriceCap())
	ids, err := f.svc.MintNotes(ctx, "carol", "carol", "ipfs://note", 3)
	if err != nil {
		t.Fatalf("mint notes failed: %v", err)
	}

	// Staking needs the pool's operator approval for custody transfers.
	if err := f.svc.StakeNotes(ctx, "carol", ids); err == nil {
		t.Fatal("expected stake without operator approval to fail")
	}
	if err := f.svc.ApproveNoteOperator(ctx, "carol", f.svc.PoolAccount(), true); err != nil {
		t.Fatalf("operator approval failed: %v", err)
	}
	if err := f.svc.StakeNotes(ctx, "carol", ids); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if got := f.svc.StakedTokens("carol"); len(got) != 3 {
		t.Fatalf("expected 3 staked notes, got %v", got)
	}

	if _, err := f.svc.CollectPoolFunding(ctx, "carol", ids); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin for non-admin collection, got %v", err)
	}
	collected, err := f.svc.CollectPoolFunding(ctx, "admin", ids)
	if err != nil {
		t.Fatalf("collect funding failed: %v", err)
	}
	if collected != 3*f.svc.NotePriceCap() {
		t.Fatalf("expected full collection, got %d", collected)
	}

	if err := f.svc.UnstakeAllNotes(ctx, "carol"); err != nil {
		t.Fatalf("unstake all failed: %v", err)
	}
	for _, id := range ids {
		note, err := f.svc.Note(id)
		if err != nil || note.Owner != "carol" {
			t.Fatalf("expected note %d returned to carol, got %+v (err %v)", id, note, err)
		}
	}
}

func TestBatchOperationsRejectEmptyIDList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.StakeNotes(ctx, "carol", nil); !errors.Is(err, domain.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch for empty stake, got %v", err)
	}
	if err := f.svc.UnstakeNotes(ctx, "carol", []domain.TokenID{}); !errors.Is(err, domain.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch for empty unstake, got %v", err)
	}
	if _, err := f.svc.WithdrawNotes(ctx, "carol", nil); !errors.Is(err, domain.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch for empty withdrawal, got %v", err)
	}
}

func TestMarketplaceThroughFacade(t *testing.T) {
	f := newFixture(t)
	f.addFleet(t)
	ctx := context.Background()

	id, err := f.svc.MintAsset(ctx, "admin", fleet, "alice", "ipfs://a")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := f.svc.SetUser(ctx, "alice", fleet, id, "bob", 1_700_003_600); err != nil {
		t.Fatalf("set user failed: %v", err)
	}

	if err := f.svc.SetApprovalForAll(ctx, "alice", fleet, f.svc.MarketAccount(), true); err != nil {
		t.Fatalf("market approval failed: %v", err)
	}
	if err := f.svc.ListForSale(ctx, "alice", fleet, id, 5_000_000); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	f.fund("dave", f.svc.MarketAccount(), 5_000_000)
	if err := f.svc.Buy(ctx, "dave", fleet, id, 4_000_000); !errors.Is(err, domain.ErrPriceMismatch) {
		t.Fatalf("expected ErrPriceMismatch, got %v", err)
	}
	if err := f.svc.Buy(ctx, "dave", fleet, id, 5_000_000); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	asset, err := f.svc.Asset(fleet, id)
	if err != nil {
		t.Fatalf("asset lookup failed: %v", err)
	}
	if asset.Owner != "dave" {
		t.Fatalf("expected dave as owner, got %q", asset.Owner)
	}
	// The rental rides along with the sale.
	if asset.User != "bob" {
		t.Fatalf("expected usage right to survive sale, got %q", asset.User)
	}
	if got := f.ledger.BalanceOf("alice"); got != 5_000_000 {
		t.Fatalf("expected seller proceeds 5000000, got %d", got)
	}
}
