package funding

import (
	"errors"
	"math"
	"testing"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

const priceCap = uint64(100_000_000)

func newNotes(t *testing.T) (*Notes, *token.Ledger) {
	t.Helper()
	ledger := token.NewLedger()
	notes, err := New(Config{
		Name:     "Test Notes",
		Payment:  ledger,
		Account:  "note-escrow",
		PriceCap: priceCap,
	})
	if err != nil {
		t.Fatalf("failed to build notes: %v", err)
	}
	return notes, ledger
}

func fund(ledger *token.Ledger, addr domain.Address, amount uint64) {
	ledger.Mint(addr, amount)
	ledger.Approve(addr, "note-escrow", amount)
}

func TestMintBatchCollectsFullPrice(t *testing.T) {
	notes, ledger := newNotes(t)
	fund(ledger, "carol", 3*priceCap)

	ids, err := notes.MintBatch("carol", "carol", "ipfs://note", 3)
	if err != nil {
		t.Fatalf("mint batch failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(ids))
	}
	if got := ledger.BalanceOf("note-escrow"); got != 3*priceCap {
		t.Fatalf("expected escrow holding 3*priceCap, got %d", got)
	}
	for _, id := range ids {
		bal, err := notes.NoteBalance(id)
		if err != nil || bal != priceCap {
			t.Fatalf("expected note %d funded at priceCap, got %d (err %v)", id, bal, err)
		}
	}
}

func TestMintBatchIsAllOrNothing(t *testing.T) {
	notes, ledger := newNotes(t)

	// Enough balance for five notes but approval only covers four.
	ledger.Mint("carol", 5*priceCap)
	ledger.Approve("carol", "note-escrow", 4*priceCap)

	_, err := notes.MintBatch("carol", "carol", "ipfs://note", 5)
	if !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if got := ledger.BalanceOf("carol"); got != 5*priceCap {
		t.Fatalf("expected no payment collected, caller holds %d", got)
	}
	if notes.Exists(0) {
		t.Fatal("expected no notes minted")
	}

	// Approval in place but balance short.
	ledger.Approve("dave", "note-escrow", 2*priceCap)
	ledger.Mint("dave", priceCap)
	_, err = notes.MintBatch("dave", "dave", "ipfs://note", 2)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestMintBatchRejectsBadArguments(t *testing.T) {
	notes, ledger := newNotes(t)
	fund(ledger, "carol", priceCap)

	if _, err := notes.MintBatch("carol", "carol", "ipfs://note", 0); err == nil {
		t.Fatal("expected error for zero count")
	}
	if _, err := notes.MintBatch("carol", domain.ZeroAddress, "ipfs://note", 1); !errors.Is(err, domain.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}

	// A count large enough to wrap count*priceCap past the allowance check.
	overflowCount := int(math.MaxUint64/priceCap) + 1
	if _, err := notes.MintBatch("carol", "carol", "ipfs://note", overflowCount); err == nil {
		t.Fatal("expected error for overflowing count")
	}
	if notes.Exists(0) {
		t.Fatal("expected no notes minted")
	}
	if got := ledger.BalanceOf("carol"); got != priceCap {
		t.Fatalf("expected caller balance untouched, got %d", got)
	}
}

func TestWithdrawGates(t *testing.T) {
	notes, ledger := newNotes(t)
	fund(ledger, "carol", priceCap)
	ids, err := notes.MintBatch("carol", "carol", "ipfs://note", 1)
	if err != nil {
		t.Fatalf("mint batch failed: %v", err)
	}
	id := ids[0]

	if _, err := notes.Withdraw("carol", id); !errors.Is(err, domain.ErrNotAllowlisted) {
		t.Fatalf("expected ErrNotAllowlisted, got %v", err)
	}

	if err := notes.AddToAllowlist("mallory"); err != nil {
		t.Fatalf("allowlist failed: %v", err)
	}
	if _, err := notes.Withdraw("mallory", id); !errors.Is(err, domain.ErrNotYourToken) {
		t.Fatalf("expected ErrNotYourToken, got %v", err)
	}

	if err := notes.AddToAllowlist("carol"); err != nil {
		t.Fatalf("allowlist failed: %v", err)
	}
	paid, err := notes.Withdraw("carol", id)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if paid != priceCap {
		t.Fatalf("expected withdrawal of priceCap, got %d", paid)
	}
	if got := ledger.BalanceOf("carol"); got != priceCap {
		t.Fatalf("expected caller balance restored to priceCap, got %d", got)
	}

	// The balance is spent, not reset.
	if _, err := notes.Withdraw("carol", id); !errors.Is(err, domain.ErrEmptyBalance) {
		t.Fatalf("expected ErrEmptyBalance on second withdrawal, got %v", err)
	}
}

func TestWithdrawBatchFailsWhole(t *testing.T) {
	notes, ledger := newNotes(t)
	fund(ledger, "carol", 2*priceCap)
	fund(ledger, "dave", priceCap)

	carolIDs, err := notes.MintBatch("carol", "carol", "ipfs://note", 2)
	if err != nil {
		t.Fatalf("mint batch failed: %v", err)
	}
	daveIDs, err := notes.MintBatch("dave", "dave", "ipfs://note", 1)
	if err != nil {
		t.Fatalf("mint batch failed: %v", err)
	}

	if err := notes.AddToAllowlist("carol"); err != nil {
		t.Fatalf("allowlist failed: %v", err)
	}

	mixed := append(append([]domain.TokenID{}, carolIDs...), daveIDs...)
	if _, err := notes.WithdrawBatch("carol", mixed); !errors.Is(err, domain.ErrNotYourToken) {
		t.Fatalf("expected ErrNotYourToken for mixed batch, got %v", err)
	}
	for _, id := range carolIDs {
		bal, _ := notes.NoteBalance(id)
		if bal != priceCap {
			t.Fatalf("expected note %d untouched after failed batch, got %d", id, bal)
		}
	}

	total, err := notes.WithdrawBatch("carol", carolIDs)
	if err != nil {
		t.Fatalf("withdraw batch failed: %v", err)
	}
	if total != 2*priceCap {
		t.Fatalf("expected total 2*priceCap, got %d", total)
	}
}

func TestRefundRestoresCap(t *testing.T) {
	notes, ledger := newNotes(t)
	fund(ledger, "carol", priceCap)
	ids, err := notes.MintBatch("carol", "carol", "ipfs://note", 1)
	if err != nil {
		t.Fatalf("mint batch failed: %v", err)
	}
	id := ids[0]

	if err := notes.AddToAllowlist("carol"); err != nil {
		t.Fatalf("allowlist failed: %v", err)
	}
	if _, err := notes.Withdraw("carol", id); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	// Over-refunding past the priceCap is rejected.
	fund(ledger, "refunder", 2*priceCap)
	if err := notes.Refund("refunder", id, priceCap+1); err == nil {
		t.Fatal("expected refund above priceCap to fail")
	}

	if err := notes.Refund("refunder", id, priceCap); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	bal, _ := notes.NoteBalance(id)
	if bal != priceCap {
		t.Fatalf("expected note refunded to priceCap, got %d", bal)
	}

	// A new funding cycle means the note is withdrawable again.
	if paid, err := notes.Withdraw("carol", id); err != nil || paid != priceCap {
		t.Fatalf("expected second cycle withdrawal of priceCap, got %d (err %v)", paid, err)
	}
}

func TestAllowlistRemove(t *testing.T) {
	notes, _ := newNotes(t)
	if err := notes.AddToAllowlist("carol"); err != nil {
		t.Fatalf("allowlist failed: %v", err)
	}
	if !notes.IsAllowlisted("carol") {
		t.Fatal("expected carol allowlisted")
	}
	notes.RemoveFromAllowlist("carol")
	if notes.IsAllowlisted("carol") {
		t.Fatal("expected carol removed from allowlist")
	}
	if err := notes.AddToAllowlist(domain.ZeroAddress); !errors.Is(err, domain.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
}
