// Package handler serves liveness and readiness over HTTP and the standard gRPC health service.
package handler

import (
	"context"
	"fmt"
	"time"
)

// readinessTimeout bounds one readiness check.
const readinessTimeout = 2 * time.Second

// Pinger checks DB connectivity. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker checks that the policy engine is ready.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker runs the readiness checks. Nil dependencies are skipped, so a database-less
// local run is ready as soon as it starts.
type Checker struct {
	pinger Pinger
	policy PolicyChecker
}

// NewChecker returns a Checker. Either argument may be nil.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy}
}

// Check returns the first failing dependency.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	if c.pinger != nil {
		if err := c.pinger.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			return fmt.Errorf("policy engine: %w", err)
		}
	}
	return nil
}
