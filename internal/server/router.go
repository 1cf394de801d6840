package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Health           HealthService
	API              *Handlers
	Events           http.HandlerFunc
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewRouter wires the HTTP routes exposed by the ledger API.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{
			"status": "ok",
		}

		if deps.Health != nil {
			if err := deps.Health.Probe(ctx); err != nil {
				logger.Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}

		respondJSON(w, status, payload)
	}).Methods(http.MethodGet)

	if h := deps.API; h != nil {
		r.HandleFunc("/auth/register", h.handleRegister).Methods(http.MethodPost)
		r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)

		r.HandleFunc("/collections", h.handleListCollections).Methods(http.MethodGet)
		r.HandleFunc("/collections/{index:[0-9]+}", h.handleCollectionAt).Methods(http.MethodGet)
		r.HandleFunc("/collections/{collection}/assets", h.handleAssetsOf).
			Methods(http.MethodGet).Queries("owner", "{owner}")
		r.HandleFunc("/collections/{collection}/assets/{id:[0-9]+}", h.handleGetAsset).Methods(http.MethodGet)
		r.HandleFunc("/collections/{collection}/earnings", h.handleUnclaimedAll).
			Methods(http.MethodGet).Queries("owner", "{owner}")
		r.HandleFunc("/collections/{collection}/listings", h.handleListings).Methods(http.MethodGet)
		r.HandleFunc("/notes/{id:[0-9]+}", h.handleGetNote).Methods(http.MethodGet)
		r.HandleFunc("/stakes/{holder}", h.handleStakedTokens).Methods(http.MethodGet)
		r.HandleFunc("/token/balance/{address}", h.handleTokenBalance).Methods(http.MethodGet)

		protected := r.NewRoute().Subrouter()
		protected.Use(h.requireAuth)

		protected.HandleFunc("/collections", h.handleAddCollection).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/fee", h.handleSetFeeRate).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/assets", h.handleMintAsset).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/assets/{id:[0-9]+}/transfer", h.handleTransferAsset).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/assets/{id:[0-9]+}/approve", h.handleApproveAsset).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/operators", h.handleSetOperator).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/assets/{id:[0-9]+}/user", h.handleSetUser).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/assets/{id:[0-9]+}/earnings", h.handlePayEarnings).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/earnings", h.handlePayEarningsAllRented).Methods(http.MethodPost)
		protected.HandleFunc("/collections/{collection}/assets/{id:[0-9]+}/claim", h.handleClaimEarnings).Methods(http.MethodPost)

		protected.HandleFunc("/notes/mint", h.handleMintNotes).Methods(http.MethodPost)
		protected.HandleFunc("/notes/withdrawals", h.handleWithdrawNotes).Methods(http.MethodPost)
		protected.HandleFunc("/notes/{id:[0-9]+}/withdraw", h.handleWithdrawNote).Methods(http.MethodPost)
		protected.HandleFunc("/notes/{id:[0-9]+}/refund", h.handleRefundNote).Methods(http.MethodPost)
		protected.HandleFunc("/notes/operators", h.handleNoteOperator).Methods(http.MethodPost)
		protected.HandleFunc("/notes/allowlist", h.handleAllowlist).Methods(http.MethodPost)

		protected.HandleFunc("/stakes", h.handleStake).Methods(http.MethodPost)
		protected.HandleFunc("/stakes/unstake", h.handleUnstake).Methods(http.MethodPost)
		protected.HandleFunc("/pool/collect", h.handleCollectFunding).Methods(http.MethodPost)

		protected.HandleFunc("/market/listings", h.handleListForSale).Methods(http.MethodPost)
		protected.HandleFunc("/market/listings/{collection}/{id:[0-9]+}", h.handleCancelListing).Methods(http.MethodDelete)
		protected.HandleFunc("/market/buy", h.handleBuy).Methods(http.MethodPost)

		protected.HandleFunc("/token/approve", h.handleTokenApprove).Methods(http.MethodPost)
		protected.HandleFunc("/token/faucet", h.handleTokenFaucet).Methods(http.MethodPost)
	}

	if deps.Events != nil {
		r.HandleFunc("/ws/events", deps.Events).Methods(http.MethodGet)
	}

	handler := http.Handler(loggingMiddleware(logger, r))
	if len(deps.AllowedOrigins) > 0 {
		handler = corsMiddleware(deps.AllowedOrigins, deps.AllowCredentials)(handler)
	}
	return handler
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func corsMiddleware(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	normalized := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		normalized[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!containsOrigin(normalized, origin) && !containsOrigin(normalized, "*")) {
				if r.Method == http.MethodOptions {
					// Reject bare pre-flight if origin is not whitelisted.
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			if allowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(set map[string]struct{}, origin string) bool {
	_, ok := set[origin]
	return ok
}
