package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/natreeum/tomaas-staking-protocol/internal/auth"
	"github.com/natreeum/tomaas-staking-protocol/internal/config"
	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/events"
	"github.com/natreeum/tomaas-staking-protocol/internal/graph"
	"github.com/natreeum/tomaas-staking-protocol/internal/logging"
	"github.com/natreeum/tomaas-staking-protocol/internal/protocol"
	"github.com/natreeum/tomaas-staking-protocol/internal/repository"
	"github.com/natreeum/tomaas-staking-protocol/internal/server"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	var persister protocol.Persister
	if graphClient != nil {
		persister = repository.New(graphClient)
	} else {
		logger.Warn("running without state persistence, set GRAPH_URI to enable it")
	}

	hub := events.NewHub(logger, domain.SystemClock)
	ledger := token.NewLedger()

	svc, err := protocol.NewService(protocol.Options{
		Logger:        logger,
		Clock:         domain.SystemClock,
		Payment:       ledger,
		Emitter:       hub,
		Repo:          persister,
		Admin:         domain.Address(cfg.Ledger.AdminAddress),
		FeeRecipient:  domain.Address(cfg.Ledger.FeeRecipient),
		FeeRateBps:    cfg.Ledger.FeeRateBps,
		NotesAccount:  domain.Address(cfg.Ledger.NotesAccount),
		NotePriceCap:  cfg.Ledger.NotePriceCap,
		PoolAccount:   domain.Address(cfg.Ledger.PoolAccount),
		MarketAccount: domain.Address(cfg.Ledger.MarketAccount),
	})
	if err != nil {
		logger.Error("failed to build protocol service", "error", err)
		os.Exit(1)
	}

	authSvc := auth.New([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, domain.Address(cfg.Ledger.AdminAddress), domain.SystemClock)
	handlers := server.NewHandlers(logger, svc, authSvc, ledger)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.GraphHealthService{Client: graphClient},
		API:              handlers,
		Events:           hub.Handler,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildGraphClient returns a nil client when no graph URI is configured. The
// ledger then runs purely in memory.
func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	return graph.NewNeo4jClient(connectCtx, opts)
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
