package models

import (
	"context"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the resolved caller of a request. Exactly one of the record
// pointers is set, selected by Kind.
type Actor struct {
	Kind     ActorKind
	Owner    *Business
	Employee *Employee
	Admin    *Admin
	Support  *Support
}

func OwnerActor(b *Business) *Actor    { return &Actor{Kind: ActorOwner, Owner: b} }
func EmployeeActor(e *Employee) *Actor { return &Actor{Kind: ActorEmployee, Employee: e} }
func AdminActor(a *Admin) *Actor       { return &Actor{Kind: ActorAdmin, Admin: a} }
func SupportActor(s *Support) *Actor   { return &Actor{Kind: ActorSupport, Support: s} }

func (a *Actor) ID() primitive.ObjectID {
	switch a.Kind {
	case ActorOwner:
		return a.Owner.ID
	case ActorEmployee:
		return a.Employee.ID
	case ActorAdmin:
		return a.Admin.ID
	case ActorSupport:
		return a.Support.ID
	}
	return primitive.NilObjectID
}

func (a *Actor) Email() string {
	switch a.Kind {
	case ActorOwner:
		return a.Owner.Email
	case ActorEmployee:
		return a.Employee.Email
	case ActorAdmin:
		return a.Admin.Email
	case ActorSupport:
		return a.Support.Email
	}
	return ""
}

// TenantID is the business the actor belongs to. Admin and Support are
// global and have none.
func (a *Actor) TenantID() (primitive.ObjectID, bool) {
	switch a.Kind {
	case ActorOwner:
		return a.Owner.ID, true
	case ActorEmployee:
		return a.Employee.BusinessID, true
	}
	return primitive.NilObjectID, false
}

// IsPrivileged reports whether the actor is Admin or Support.
func (a *Actor) IsPrivileged() bool {
	return a.Kind == ActorAdmin || a.Kind == ActorSupport
}

// CanAccessTenant reports whether the actor may act on tenantID at all.
func (a *Actor) CanAccessTenant(tenantID primitive.ObjectID) bool {
	switch a.Kind {
	case ActorAdmin:
		return true
	case ActorSupport:
		return slices.Contains(a.Support.AssignedCompanies, tenantID)
	}
	own, ok := a.TenantID()
	return ok && own == tenantID
}

// WithActor stores the actor and its tenant on ctx.
func WithActor(ctx context.Context, a *Actor) context.Context {
	ctx = context.WithValue(ctx, ActorKey, a)
	if tenantID, ok := a.TenantID(); ok {
		ctx = context.WithValue(ctx, TenantIDKey, tenantID.Hex())
	}
	return ctx
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(ActorKey).(*Actor)
	return a, ok && a != nil
}
