// Package engine decides role-based access with an in-process OPA Rego policy.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Action names a protected operation checked by the Authorizer.
type Action string

const (
	ActionReadOwnProfile Action = "auth:me"
	ActionManageSessions Action = "auth:sessions"
	ActionReadUser       Action = "admin:users:read"
	ActionSetUserActive  Action = "admin:users:set_active"
	ActionReadAuditLog   Action = "admin:audit:read"
)

const allowQuery = "data.medconsult.authz.allow"

// DefaultPolicy grants every authenticated role access to its own account
// and admin actions to ADMIN only.
const DefaultPolicy = `package medconsult.authz

default allow := false

self_service := {"auth:me", "auth:sessions"}

admin_actions := {"admin:users:read", "admin:users:set_active", "admin:audit:read"}

allow if {
	input.role in {"PATIENT", "DOCTOR", "ADMIN"}
	input.action in self_service
}

allow if {
	input.role == "ADMIN"
	input.action in admin_actions
}
`

// Authorizer answers whether a role may perform an action.
type Authorizer interface {
	Allow(ctx context.Context, role string, action Action) (bool, error)
}

// OPAAuthorizer evaluates a prepared Rego query.
type OPAAuthorizer struct {
	query rego.PreparedEvalQuery
}

// Option configures NewOPAAuthorizer.
type Option func(*options)

type options struct {
	policy string
}

// WithPolicy replaces DefaultPolicy. The module must define data.medconsult.authz.allow.
func WithPolicy(module string) Option {
	return func(o *options) { o.policy = module }
}

// NewOPAAuthorizer compiles the policy once. Compile errors are returned immediately.
func NewOPAAuthorizer(ctx context.Context, opts ...Option) (*OPAAuthorizer, error) {
	o := options{policy: DefaultPolicy}
	for _, opt := range opts {
		opt(&o)
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": o.policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAAuthorizer{query: pq}, nil
}

// Allow evaluates the policy for role and action. Undefined results deny.
func (a *OPAAuthorizer) Allow(ctx context.Context, role string, action Action) (bool, error) {
	input := map[string]interface{}{
		"role":   role,
		"action": string(action),
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, errors.New("policy allow is not a boolean")
	}
	return allowed, nil
}

// HealthCheck evaluates a known-denied input to confirm the engine answers.
func (a *OPAAuthorizer) HealthCheck(ctx context.Context) error {
	allowed, err := a.Allow(ctx, "", ActionReadAuditLog)
	if err != nil {
		return err
	}
	if allowed {
		return errors.New("policy allowed an anonymous admin action")
	}
	return nil
}
