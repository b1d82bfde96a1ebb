// Package policy decides whether an actor may mutate an owned resource.
//
// The rule is the same for every owner-scoped resource: ADMIN always may,
// anyone else only when they own the resource. Evaluate performs no I/O and
// is safe for concurrent use.
package policy

import "github.com/wfm/task-system/internal/core/domain"

const (
	ReasonAdmin    = "admin override"
	ReasonOwner    = "owner"
	ReasonNotOwner = "not owner"
)

// Actor is the identity the policy reasons about.
type Actor struct {
	ID   string
	Role domain.Role
}

// ActorFrom builds an Actor from an authenticated principal.
func ActorFrom(p domain.Principal) Actor {
	return Actor{ID: p.ID, Role: p.Role}
}

// Decision is the outcome of a policy check.
type Decision struct {
	Permit bool
	Reason string
}

// CanMutate reports whether actor may change or delete a resource owned by ownerID.
func CanMutate(actor Actor, ownerID string) bool {
	return Evaluate(actor, ownerID).Permit
}

// Evaluate returns the decision together with its reason.
func Evaluate(actor Actor, ownerID string) Decision {
	if actor.Role == domain.RoleAdmin {
		return Decision{Permit: true, Reason: ReasonAdmin}
	}
	if actor.ID != "" && actor.ID == ownerID {
		return Decision{Permit: true, Reason: ReasonOwner}
	}
	return Decision{Permit: false, Reason: ReasonNotOwner}
}
