package auth

import (
	"context"
	"strings"
)

// Operation names a protected action, e.g. "drafts.update"
type Operation string

const (
	OpLogin             Operation = "auth.login"
	OpRegister          Operation = "auth.register"
	OpConfirmEmail      Operation = "auth.confirm"
	OpLogout            Operation = "auth.logout"
	OpUserInfo          Operation = "auth.userinfo"
	OpInitPasswordReset Operation = "auth.init-password-reset"
	OpPasswordReset     Operation = "auth.password-reset"
	OpListPosts         Operation = "posts.list"
	OpGetPost           Operation = "posts.get"
	OpListDrafts        Operation = "drafts.list"
	OpCreateDraft       Operation = "drafts.create"
	OpUpdateDraft       Operation = "drafts.update"
	OpDeleteDraft       Operation = "drafts.delete"
	OpManageUserRoles   Operation = "users.roles"
)

// Rule is the declarative policy of one operation. The zero Rule requires
// an authenticated caller and nothing else.
type Rule struct {
	// Anonymous exempts the operation from authentication
	Anonymous bool
	// Roles, when not empty, lists roles of which the caller needs one
	Roles []Role
	// OwnerCheck requires the caller to own the loaded resource
	OwnerCheck bool
}

// Policy maps operations to rules. Operations missing from the table get
// the zero Rule.
type Policy map[Operation]Rule

// DefaultBlogPolicy is the policy table of the blog
func DefaultBlogPolicy() Policy {
	publishers := []Role{RoleAdmin, RoleEditor}
	return Policy{
		OpLogin:             {Anonymous: true},
		OpRegister:          {Anonymous: true},
		OpConfirmEmail:      {Anonymous: true},
		OpInitPasswordReset: {Anonymous: true},
		OpPasswordReset:     {Anonymous: true},
		OpListPosts:         {Anonymous: true},
		OpGetPost:           {Anonymous: true},
		OpLogout:            {},
		OpUserInfo:          {},
		OpListDrafts:        {Roles: publishers},
		OpCreateDraft:       {Roles: publishers},
		OpUpdateDraft:       {Roles: publishers, OwnerCheck: true},
		OpDeleteDraft:       {Roles: publishers, OwnerCheck: true},
		OpManageUserRoles:   {Roles: []Role{RoleAdmin}},
	}
}

// OwnedResource is anything with a recorded owner, e.g. a draft's AuthorId
type OwnedResource interface {
	OwnerID() string
}

// ResourceLoader fetches the current state of a resource. Lookups of a
// missing resource return a NotFound category error.
type ResourceLoader interface {
	LoadResource(ctx context.Context, id string) (OwnedResource, error)
}

// ResourceLoaderFunc adapts a function to ResourceLoader
type ResourceLoaderFunc func(ctx context.Context, id string) (OwnedResource, error)

func (f ResourceLoaderFunc) LoadResource(ctx context.Context, id string) (OwnedResource, error) {
	return f(ctx, id)
}

// Gatekeeper evaluates the policy table. It holds no request state.
type Gatekeeper struct {
	policy Policy
	logger Logger
}

// NewGatekeeper creates a gatekeeper over policy
func NewGatekeeper(policy Policy) *Gatekeeper {
	if policy == nil {
		policy = Policy{}
	}
	return &Gatekeeper{policy: policy, logger: defLogger{}}
}

func (g *Gatekeeper) WithLogger(logger Logger) *Gatekeeper {
	g.logger = normalizeLogger(logger)
	return g
}

// Rule returns the rule for op
func (g *Gatekeeper) Rule(op Operation) Rule {
	return g.policy[op]
}

// Authorize runs the static checks in order: anonymous exemption,
// authentication, then role membership.
func (g *Gatekeeper) Authorize(op Operation, p *Principal) error {
	rule := g.policy[op]

	if rule.Anonymous {
		return nil
	}

	if _, err := UserIDOf(p); err != nil {
		return err
	}

	if len(rule.Roles) > 0 && !p.HasAnyRole(rule.Roles...) {
		g.logger.Info("authorization denied",
			"operation", op,
			"user_id", p.UserID,
			"required", joinRoles(rule.Roles),
		)
		return Annotate(ErrInsufficientRole, nil, map[string]any{
			"operation": string(op),
		})
	}

	return nil
}

// AuthorizeOwner runs Authorize and, for operations with an owner check,
// loads the resource at check time and compares its owner with the caller.
// The loaded resource is returned so callers act on what was checked.
func (g *Gatekeeper) AuthorizeOwner(ctx context.Context, op Operation, p *Principal, loader ResourceLoader, resourceID string) (OwnedResource, error) {
	if err := g.Authorize(op, p); err != nil {
		return nil, err
	}

	resource, err := loader.LoadResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if resource == nil {
		return nil, Annotate(ErrNotFound, nil, map[string]any{"resource_id": resourceID})
	}

	if !g.policy[op].OwnerCheck {
		return resource, nil
	}

	if err := RequireOwner(p, resource); err != nil {
		g.logger.Info("ownership check failed", "operation", op, "user_id", p.UserID, "resource_id", resourceID)
		return nil, err
	}

	return resource, nil
}

// RequireOwner fails with ErrNotOwner unless p owns resource
func RequireOwner(p *Principal, resource OwnedResource) error {
	uid, err := UserIDOf(p)
	if err != nil {
		return err
	}
	if resource == nil || resource.OwnerID() != uid {
		return ErrNotOwner
	}
	return nil
}

func joinRoles(roles []Role) string {
	return strings.Join(RoleStrings(roles), ",")
}
