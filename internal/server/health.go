package server

import (
	"context"

	"github.com/natreeum/tomaas-staking-protocol/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService reports the state-persistence backend's reachability.
// The ledger itself is always live in memory, so a nil client (persistence
// disabled) probes healthy rather than degraded.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}
