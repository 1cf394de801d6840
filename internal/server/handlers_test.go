package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/natreeum/tomaas-staking-protocol/internal/auth"
	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/protocol"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

type testAPI struct {
	router http.Handler
	auth   *auth.Service
	ledger *token.Ledger
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return time.Unix(1_700_000_000, 0) }
	ledger := token.NewLedger()

	svc, err := protocol.NewService(protocol.Options{
		Logger:        logger,
		Clock:         clock,
		Payment:       ledger,
		Admin:         "admin",
		FeeRecipient:  "treasury",
		FeeRateBps:    100,
		NotesAccount:  "lpn-escrow",
		NotePriceCap:  100_000_000,
		PoolAccount:   "staking-pool",
		MarketAccount: "marketplace",
	})
	if err != nil {
		t.Fatalf("failed to build protocol service: %v", err)
	}

	authSvc := auth.New([]byte("test-secret"), time.Hour, "admin", clock)
	handlers := NewHandlers(logger, svc, authSvc, ledger)
	router := NewRouter(logger, RouterDependencies{API: handlers})

	return &testAPI{router: router, auth: authSvc, ledger: ledger}
}

func (a *testAPI) login(t *testing.T, addr string) string {
	t.Helper()
	if err := a.auth.Register(domain.Address(addr), "pw-"+addr); err != nil {
		t.Fatalf("failed to register %s: %v", addr, err)
	}
	tok, err := a.auth.Login(domain.Address(addr), "pw-"+addr)
	if err != nil {
		t.Fatalf("failed to login %s: %v", addr, err)
	}
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var payload T
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestMutatingRoutesRequireBearerToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/collections", "", map[string]string{
		"address": "fleet-1",
		"name":    "Fleet One",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/collections", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for garbage token, got %d", rec.Code)
	}
}

func TestCollectionRegistration(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin")
	alice := api.login(t, "alice")

	rec := api.do(t, http.MethodPost, "/collections", alice, map[string]string{
		"address": "fleet-1",
		"name":    "Fleet One",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for non-admin, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/collections", admin, map[string]string{
		"address": "fleet-1",
		"name":    "Fleet One",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodPost, "/collections", admin, map[string]string{
		"address": "fleet-1",
		"name":    "Fleet One Again",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/collections", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	list := decodeBody[collectionsResponse](t, rec)
	if len(list.Items) != 1 || list.Items[0].Address != "fleet-1" {
		t.Fatalf("unexpected collections payload: %+v", list)
	}

	rec = api.do(t, http.MethodGet, "/collections/0", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for index lookup, got %d", rec.Code)
	}
}

func TestRentalEarningsFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin")
	alice := api.login(t, "alice")
	bob := api.login(t, "bob")

	rec := api.do(t, http.MethodPost, "/collections", admin, map[string]string{
		"address": "fleet-1", "name": "Fleet One",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add collection: expected 201, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/collections/fleet-1/assets", admin, map[string]string{
		"to": "alice", "uri": "ipfs://asset-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("mint asset: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	minted := decodeBody[tokenIDResponse](t, rec)
	if minted.TokenID != 0 {
		t.Fatalf("expected first token id 0, got %d", minted.TokenID)
	}

	rec = api.do(t, http.MethodPost, "/collections/fleet-1/assets/0/user", alice, map[string]any{
		"user": "bob", "expires": int64(1_700_100_000),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set user: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Fund the renter and let the collection escrow pull from them.
	rec = api.do(t, http.MethodPost, "/token/faucet", admin, map[string]string{
		"to": "bob", "amount": "100",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("faucet: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = api.do(t, http.MethodPost, "/token/approve", bob, map[string]string{
		"spender": "fleet-1", "amount": "100",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/collections/fleet-1/assets/0/earnings", bob, map[string]string{
		"amount": "10",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pay earnings: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/collections/fleet-1/assets/0", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get asset: expected 200, got %d", rec.Code)
	}
	asset := decodeBody[assetResponse](t, rec)
	if asset.Unclaimed != "10" {
		t.Fatalf("expected unclaimed 10, got %q", asset.Unclaimed)
	}

	rec = api.do(t, http.MethodPost, "/collections/fleet-1/assets/0/claim", bob, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("claim by non-owner: expected 403, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/collections/fleet-1/assets/0/claim", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	claim := decodeBody[claimResponse](t, rec)
	if claim.Paid != "9.9" || claim.Fee != "0.1" {
		t.Fatalf("unexpected claim split: paid=%q fee=%q", claim.Paid, claim.Fee)
	}
}

func TestUnknownAssetReturnsNotFound(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin")

	rec := api.do(t, http.MethodPost, "/collections", admin, map[string]string{
		"address": "fleet-1", "name": "Fleet One",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add collection: expected 201, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/collections/fleet-1/assets/42", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/collections/no-such/assets/1", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown collection, got %d", rec.Code)
	}
}

func TestNoteMintAndWithdrawOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin")
	carol := api.login(t, "carol")

	rec := api.do(t, http.MethodPost, "/token/faucet", admin, map[string]string{
		"to": "carol", "amount": "300",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("faucet: expected 200, got %d", rec.Code)
	}
	rec = api.do(t, http.MethodPost, "/token/approve", carol, map[string]string{
		"spender": "lpn-escrow", "amount": "300",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/notes/mint", carol, map[string]any{
		"uri": "ipfs://note", "count": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("mint notes: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	minted := decodeBody[tokenIDsResponse](t, rec)
	if len(minted.TokenIDs) != 2 {
		t.Fatalf("expected 2 note ids, got %v", minted.TokenIDs)
	}

	// Withdrawal stays gated until the holder is allowlisted.
	rec = api.do(t, http.MethodPost, "/notes/0/withdraw", carol, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before allowlisting, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/notes/allowlist", admin, map[string]any{
		"address": "carol", "allowed": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("allowlist: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodPost, "/notes/0/withdraw", carol, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	paid := decodeBody[amountResponse](t, rec)
	if paid.Amount != "100" {
		t.Fatalf("expected withdrawal of 100, got %q", paid.Amount)
	}

	rec = api.do(t, http.MethodPost, "/notes/0/withdraw", carol, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on empty note, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFaucetRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	alice := api.login(t, "alice")

	rec := api.do(t, http.MethodPost, "/token/faucet", alice, map[string]string{
		"to": "alice", "amount": "100",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}
