package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/natreeum/tomaas-staking-protocol/internal/auth"
	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/protocol"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

// Handlers exposes HTTP handlers for the REST API.
type Handlers struct {
	logger  *slog.Logger
	service *protocol.Service
	auth    *auth.Service
	payment *token.Ledger
}

// NewHandlers constructs a Handlers instance.
func NewHandlers(logger *slog.Logger, svc *protocol.Service, authSvc *auth.Service, payment *token.Ledger) *Handlers {
	return &Handlers{
		logger:  logger,
		service: svc,
		auth:    authSvc,
		payment: payment,
	}
}

type contextKey string

const claimsContextKey contextKey = "claims"

func contextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// requireAuth rejects requests without a valid bearer token and stores
// the claims on the request context for the handler.
func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.auth.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}

		ctx := contextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) caller(r *http.Request) domain.Address {
	if claims, ok := r.Context().Value(claimsContextKey).(*auth.Claims); ok {
		return domain.Address(claims.Address)
	}
	return domain.ZeroAddress
}

// --- Auth ---

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload credentialsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Address == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "address and password are required")
		return
	}

	if err := h.auth.Register(domain.Address(payload.Address), payload.Password); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: payload.Address})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentialsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := h.auth.Login(domain.Address(payload.Address), payload.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{Token: tok})
}

// --- Registry ---

func (h *Handlers) handleAddCollection(w http.ResponseWriter, r *http.Request) {
	var payload collectionRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.AddCollection(r.Context(), h.caller(r), domain.Address(payload.Address), payload.Name); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: payload.Address})
}

func (h *Handlers) handleListCollections(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, collectionsResponse{Items: h.service.Collections()})
}

func (h *Handlers) handleCollectionAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection index")
		return
	}

	info, err := h.service.CollectionAt(index)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (h *Handlers) handleSetFeeRate(w http.ResponseWriter, r *http.Request) {
	var payload feeRateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	collection := domain.Address(mux.Vars(r)["collection"])
	if err := h.service.SetFeeRate(r.Context(), h.caller(r), collection, payload.FeeRateBps); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: string(collection)})
}

// --- Rental assets ---

func (h *Handlers) handleMintAsset(w http.ResponseWriter, r *http.Request) {
	var payload mintAssetRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	collection := domain.Address(mux.Vars(r)["collection"])
	id, err := h.service.MintAsset(r.Context(), h.caller(r), collection, domain.Address(payload.To), payload.URI)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, tokenIDResponse{TokenID: id})
}

func (h *Handlers) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := h.assetVars(w, r)
	if !ok {
		return
	}

	info, err := h.service.Asset(collection, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assetResponse{
		AssetInfo: info,
		Unclaimed: domain.FormatAmount(info.Unclaimed),
	})
}

func (h *Handlers) handleAssetsOf(w http.ResponseWriter, r *http.Request) {
	collection := domain.Address(mux.Vars(r)["collection"])
	owner := domain.Address(r.URL.Query().Get("owner"))

	assets, err := h.service.AssetsOf(collection, owner)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	items := make([]assetResponse, 0, len(assets))
	for _, info := range assets {
		items = append(items, assetResponse{
			AssetInfo: info,
			Unclaimed: domain.FormatAmount(info.Unclaimed),
		})
	}

	respondJSON(w, http.StatusOK, assetsResponse{Items: items})
}

func (h *Handlers) handleTransferAsset(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := h.assetVars(w, r)
	if !ok {
		return
	}

	var payload transferRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.service.TransferAsset(r.Context(), h.caller(r), collection, domain.Address(payload.From), domain.Address(payload.To), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenIDResponse{TokenID: id})
}

func (h *Handlers) handleApproveAsset(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := h.assetVars(w, r)
	if !ok {
		return
	}

	var payload operatorRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.ApproveAsset(r.Context(), h.caller(r), collection, domain.Address(payload.Operator), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenIDResponse{TokenID: id})
}

func (h *Handlers) handleSetOperator(w http.ResponseWriter, r *http.Request) {
	var payload operatorRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	collection := domain.Address(mux.Vars(r)["collection"])
	err := h.service.SetApprovalForAll(r.Context(), h.caller(r), collection, domain.Address(payload.Operator), payload.Approved)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: payload.Operator})
}

func (h *Handlers) handleSetUser(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := h.assetVars(w, r)
	if !ok {
		return
	}

	var payload setUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.service.SetUser(r.Context(), h.caller(r), collection, id, domain.Address(payload.User), payload.Expires)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenIDResponse{TokenID: id})
}

func (h *Handlers) handlePayEarnings(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := h.assetVars(w, r)
	if !ok {
		return
	}

	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}

	if err := h.service.PayEarnings(r.Context(), h.caller(r), collection, id, amount); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, amountResponse{Amount: domain.FormatAmount(amount)})
}

func (h *Handlers) handlePayEarningsAllRented(w http.ResponseWriter, r *http.Request) {
	collection := domain.Address(mux.Vars(r)["collection"])

	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}

	if err := h.service.PayEarningsAllRented(r.Context(), h.caller(r), collection, amount); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, amountResponse{Amount: domain.FormatAmount(amount)})
}

func (h *Handlers) handleClaimEarnings(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := h.assetVars(w, r)
	if !ok {
		return
	}

	paid, fee, err := h.service.ClaimEarnings(r.Context(), h.caller(r), collection, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, claimResponse{
		Paid: domain.FormatAmount(paid),
		Fee:  domain.FormatAmount(fee),
	})
}

func (h *Handlers) handleUnclaimedAll(w http.ResponseWriter, r *http.Request) {
	collection := domain.Address(mux.Vars(r)["collection"])
	owner := domain.Address(r.URL.Query().Get("owner"))

	total, err := h.service.UnclaimedEarningsAll(collection, owner)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, amountResponse{Amount: domain.FormatAmount(total)})
}

// --- Funding notes ---

func (h *Handlers) handleMintNotes(w http.ResponseWriter, r *http.Request) {
	var payload mintNotesRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Count <= 0 {
		writeError(w, http.StatusBadRequest, "count must be positive")
		return
	}

	to := domain.Address(payload.To)
	if to.IsZero() {
		to = h.caller(r)
	}

	ids, err := h.service.MintNotes(r.Context(), h.caller(r), to, payload.URI, payload.Count)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, tokenIDsResponse{TokenIDs: ids})
}

func (h *Handlers) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenIDVar(w, r)
	if !ok {
		return
	}

	info, err := h.service.Note(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, noteResponse{
		NoteInfo: info,
		Balance:  domain.FormatAmount(info.Balance),
	})
}

func (h *Handlers) handleWithdrawNote(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenIDVar(w, r)
	if !ok {
		return
	}

	paid, err := h.service.WithdrawNote(r.Context(), h.caller(r), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, amountResponse{Amount: domain.FormatAmount(paid)})
}

func (h *Handlers) handleWithdrawNotes(w http.ResponseWriter, r *http.Request) {
	var payload tokenIDsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	paid, err := h.service.WithdrawNotes(r.Context(), h.caller(r), payload.TokenIDs)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, amountResponse{Amount: domain.FormatAmount(paid)})
}

func (h *Handlers) handleRefundNote(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenIDVar(w, r)
	if !ok {
		return
	}

	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}

	if err := h.service.RefundNote(r.Context(), h.caller(r), id, amount); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, amountResponse{Amount: domain.FormatAmount(amount)})
}

func (h *Handlers) handleNoteOperator(w http.ResponseWriter, r *http.Request) {
	var payload operatorRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.service.ApproveNoteOperator(r.Context(), h.caller(r), domain.Address(payload.Operator), payload.Approved)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: payload.Operator})
}

func (h *Handlers) handleAllowlist(w http.ResponseWriter, r *http.Request) {
	var payload allowlistRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.service.SetAllowlisted(r.Context(), h.caller(r), domain.Address(payload.Address), payload.Allowed)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: payload.Address})
}

// --- Staking ---

func (h *Handlers) handleStake(w http.ResponseWriter, r *http.Request) {
	var payload tokenIDsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.StakeNotes(r.Context(), h.caller(r), payload.TokenIDs); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenIDsResponse{TokenIDs: payload.TokenIDs})
}

func (h *Handlers) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var payload unstakeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := h.caller(r)
	if payload.All {
		if err := h.service.UnstakeAllNotes(r.Context(), caller); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: string(caller)})
		return
	}

	if err := h.service.UnstakeNotes(r.Context(), caller, payload.TokenIDs); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenIDsResponse{TokenIDs: payload.TokenIDs})
}

func (h *Handlers) handleStakedTokens(w http.ResponseWriter, r *http.Request) {
	holder := domain.Address(mux.Vars(r)["holder"])
	respondJSON(w, http.StatusOK, tokenIDsResponse{TokenIDs: h.service.StakedTokens(holder)})
}

func (h *Handlers) handleCollectFunding(w http.ResponseWriter, r *http.Request) {
	var payload tokenIDsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	collected, err := h.service.CollectPoolFunding(r.Context(), h.caller(r), payload.TokenIDs)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, amountResponse{Amount: domain.FormatAmount(collected)})
}

// --- Marketplace ---

func (h *Handlers) handleListForSale(w http.ResponseWriter, r *http.Request) {
	var payload listingRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	price, err := domain.ParseAmount(payload.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	err = h.service.ListForSale(r.Context(), h.caller(r), domain.Address(payload.Collection), payload.TokenID, price)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, tokenIDResponse{TokenID: payload.TokenID})
}

func (h *Handlers) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := h.assetVars(w, r)
	if !ok {
		return
	}

	if err := h.service.CancelListing(r.Context(), h.caller(r), collection, id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenIDResponse{TokenID: id})
}

func (h *Handlers) handleBuy(w http.ResponseWriter, r *http.Request) {
	var payload listingRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	price, err := domain.ParseAmount(payload.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	err = h.service.Buy(r.Context(), h.caller(r), domain.Address(payload.Collection), payload.TokenID, price)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenIDResponse{TokenID: payload.TokenID})
}

func (h *Handlers) handleListings(w http.ResponseWriter, r *http.Request) {
	collection := domain.Address(mux.Vars(r)["collection"])

	listings := h.service.GetListingAssets(collection)
	items := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		items = append(items, listingResponse{
			Collection: l.Collection,
			TokenID:    l.TokenID,
			Seller:     l.Seller,
			Price:      domain.FormatAmount(l.Price),
		})
	}

	respondJSON(w, http.StatusOK, listingsResponse{Items: items})
}

// --- Payment token ---

func (h *Handlers) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(mux.Vars(r)["address"])
	respondJSON(w, http.StatusOK, balanceResponse{
		Address: addr,
		Balance: domain.FormatAmount(h.payment.BalanceOf(addr)),
	})
}

func (h *Handlers) handleTokenApprove(w http.ResponseWriter, r *http.Request) {
	var payload approveRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := domain.ParseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	h.payment.Approve(h.caller(r), domain.Address(payload.Spender), amount)
	respondJSON(w, http.StatusOK, amountResponse{Amount: domain.FormatAmount(amount)})
}

// handleTokenFaucet credits a balance out of thin air. Admin only,
// meant for development and demo environments.
func (h *Handlers) handleTokenFaucet(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(claimsContextKey).(*auth.Claims)
	if !ok || !claims.Admin {
		h.writeDomainError(w, r, domain.ErrNotAdmin)
		return
	}

	var payload faucetRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := domain.ParseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	h.payment.Mint(domain.Address(payload.To), amount)
	respondJSON(w, http.StatusOK, balanceResponse{
		Address: domain.Address(payload.To),
		Balance: domain.FormatAmount(h.payment.BalanceOf(domain.Address(payload.To))),
	})
}

// --- Request & Response DTOs ---

type credentialsRequest struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type collectionRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type collectionsResponse struct {
	Items []protocol.CollectionInfo `json:"items"`
}

type feeRateRequest struct {
	FeeRateBps uint64 `json:"feeRateBps"`
}

type mintAssetRequest struct {
	To  string `json:"to"`
	URI string `json:"uri"`
}

type transferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type operatorRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

type setUserRequest struct {
	User    string `json:"user"`
	Expires int64  `json:"expires"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type mintNotesRequest struct {
	To    string `json:"to"`
	URI   string `json:"uri"`
	Count int    `json:"count"`
}

type allowlistRequest struct {
	Address string `json:"address"`
	Allowed bool   `json:"allowed"`
}

type tokenIDsRequest struct {
	TokenIDs []domain.TokenID `json:"tokenIds"`
}

type unstakeRequest struct {
	TokenIDs []domain.TokenID `json:"tokenIds"`
	All      bool             `json:"all"`
}

type listingRequest struct {
	Collection string         `json:"collection"`
	TokenID    domain.TokenID `json:"tokenId"`
	Price      string         `json:"price"`
}

type approveRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type faucetRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type assetResponse struct {
	protocol.AssetInfo
	Unclaimed string `json:"unclaimed"`
}

type assetsResponse struct {
	Items []assetResponse `json:"items"`
}

type noteResponse struct {
	protocol.NoteInfo
	Balance string `json:"balance"`
}

type tokenIDResponse struct {
	TokenID domain.TokenID `json:"tokenId"`
}

type tokenIDsResponse struct {
	TokenIDs []domain.TokenID `json:"tokenIds"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}

type claimResponse struct {
	Paid string `json:"paid"`
	Fee  string `json:"fee"`
}

type listingResponse struct {
	Collection domain.Address `json:"collection"`
	TokenID    domain.TokenID `json:"tokenId"`
	Seller     domain.Address `json:"seller"`
	Price      string         `json:"price"`
}

type listingsResponse struct {
	Items []listingResponse `json:"items"`
}

type balanceResponse struct {
	Address domain.Address `json:"address"`
	Balance string         `json:"balance"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// --- Helpers ---

func (h *Handlers) assetVars(w http.ResponseWriter, r *http.Request) (domain.Address, domain.TokenID, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return domain.ZeroAddress, 0, false
	}
	return domain.Address(vars["collection"]), domain.TokenID(id), true
}

func tokenIDVar(w http.ResponseWriter, r *http.Request) (domain.TokenID, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return 0, false
	}
	return domain.TokenID(id), true
}

func (h *Handlers) decodeAmount(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	var payload amountRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	amount, err := domain.ParseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return 0, false
	}
	return amount, true
}

func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err, "path", r.URL.Path)
	}
	writeError(w, status, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownAsset),
		errors.Is(err, domain.ErrUnknownCollection),
		errors.Is(err, domain.ErrNotForSale):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAdmin),
		errors.Is(err, domain.ErrNotOwnerOrApproved),
		errors.Is(err, domain.ErrNotCurrentUser),
		errors.Is(err, domain.ErrNotAllowlisted),
		errors.Is(err, domain.ErrNotYourToken),
		errors.Is(err, domain.ErrNotApproved),
		errors.Is(err, domain.ErrWrongOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCollectionExists),
		errors.Is(err, domain.ErrAlreadyListed),
		errors.Is(err, domain.ErrEmptyBalance),
		errors.Is(err, domain.ErrNotStaked):
		return http.StatusConflict
	case errors.Is(err, domain.ErrZeroAddress),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrPriceMismatch),
		errors.Is(err, domain.ErrNoActiveRentals),
		errors.Is(err, domain.ErrNoEarnings),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientAllowance):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
