package asset

import (
	"errors"
	"testing"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

type recordingEmitter struct {
	events []domain.Event
}

func (r *recordingEmitter) Emit(evt domain.Event) {
	r.events = append(r.events, evt)
}

func TestMintAssignsSequentialIDs(t *testing.T) {
	rec := &recordingEmitter{}
	l := NewLedger(rec)

	for want := domain.TokenID(0); want < 3; want++ {
		id, err := l.Mint("alice", "ipfs://x")
		if err != nil {
			t.Fatalf("mint failed: %v", err)
		}
		if id != want {
			t.Fatalf("expected id %d, got %d", want, id)
		}
	}
	if l.BalanceOf("alice") != 3 {
		t.Fatalf("expected balance 3, got %d", l.BalanceOf("alice"))
	}

	if _, err := l.Mint(domain.ZeroAddress, "ipfs://x"); !errors.Is(err, domain.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}

	if len(rec.events) != 3 || rec.events[0].Type != domain.EventTransfer {
		t.Fatalf("expected 3 transfer events, got %+v", rec.events)
	}
	payload, ok := rec.events[0].Data.(domain.TransferPayload)
	if !ok || !payload.From.IsZero() || payload.To != "alice" {
		t.Fatalf("unexpected mint payload: %+v", rec.events[0].Data)
	}
}

func TestTransferChecksOwnerAndClearsApproval(t *testing.T) {
	l := NewLedger(nil)
	id, _ := l.Mint("alice", "ipfs://x")

	if err := l.Transfer("mallory", "alice", "bob", id); !errors.Is(err, domain.ErrNotOwnerOrApproved) {
		t.Fatalf("expected ErrNotOwnerOrApproved, got %v", err)
	}
	if err := l.Transfer("alice", "carol", "bob", id); !errors.Is(err, domain.ErrWrongOwner) {
		t.Fatalf("expected ErrWrongOwner for stale from, got %v", err)
	}

	if err := l.Approve("alice", "agent", id); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := l.Transfer("agent", "alice", "bob", id); err != nil {
		t.Fatalf("approved transfer failed: %v", err)
	}
	owner, _ := l.OwnerOf(id)
	if owner != "bob" {
		t.Fatalf("expected bob as owner, got %q", owner)
	}
	if got := l.Approved(id); !got.IsZero() {
		t.Fatalf("expected single-token approval cleared, got %q", got)
	}
}

func TestOperatorApproval(t *testing.T) {
	l := NewLedger(nil)
	a, _ := l.Mint("alice", "ipfs://x")
	b, _ := l.Mint("alice", "ipfs://y")

	if err := l.SetApprovalForAll("alice", "operator", true); err != nil {
		t.Fatalf("set approval for all failed: %v", err)
	}
	for _, id := range []domain.TokenID{a, b} {
		ok, err := l.IsApprovedOrOwner("operator", id)
		if err != nil || !ok {
			t.Fatalf("expected operator approved for %d (err %v)", id, err)
		}
	}

	if err := l.SetApprovalForAll("alice", "operator", false); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if l.IsApprovedForAll("alice", "operator") {
		t.Fatal("expected operator approval revoked")
	}
}

func TestTokensOfSorted(t *testing.T) {
	l := NewLedger(nil)
	var ids []domain.TokenID
	for i := 0; i < 4; i++ {
		id, _ := l.Mint("alice", "ipfs://x")
		ids = append(ids, id)
	}
	// Move the middle ones away and back to churn map ordering.
	_ = l.Transfer("alice", "alice", "bob", ids[1])
	_ = l.Transfer("bob", "bob", "alice", ids[1])

	got := l.TokensOf("alice")
	if len(got) != 4 {
		t.Fatalf("expected 4 tokens, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("expected ascending ids, got %v", got)
		}
	}
}

func TestUnknownTokenLookups(t *testing.T) {
	l := NewLedger(nil)
	if _, err := l.OwnerOf(7); !errors.Is(err, domain.ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	if _, err := l.TokenURI(7); !errors.Is(err, domain.ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	if l.Exists(7) {
		t.Fatal("expected token 7 to not exist")
	}
}
