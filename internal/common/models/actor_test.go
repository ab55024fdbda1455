package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestActorTenantScope(t *testing.T) {
	tenant := primitive.NewObjectID()
	other := primitive.NewObjectID()

	owner := OwnerActor(&Business{ID: tenant, Email: "owner@acme.io"})
	employee := EmployeeActor(&Employee{ID: primitive.NewObjectID(), BusinessID: tenant})
	admin := AdminActor(&Admin{ID: primitive.NewObjectID()})
	support := SupportActor(&Support{ID: primitive.NewObjectID(), AssignedCompanies: []primitive.ObjectID{other}})

	assert.True(t, owner.CanAccessTenant(tenant))
	assert.False(t, owner.CanAccessTenant(other))
	assert.True(t, employee.CanAccessTenant(tenant))
	assert.False(t, employee.CanAccessTenant(other))
	assert.True(t, admin.CanAccessTenant(tenant))
	assert.True(t, support.CanAccessTenant(other))
	assert.False(t, support.CanAccessTenant(tenant))

	id, ok := employee.TenantID()
	assert.True(t, ok)
	assert.Equal(t, tenant, id)

	_, ok = admin.TenantID()
	assert.False(t, ok)
	assert.True(t, support.IsPrivileged())
	assert.False(t, owner.IsPrivileged())
	assert.Equal(t, "owner@acme.io", owner.Email())
}

func TestWithActor(t *testing.T) {
	tenant := primitive.NewObjectID()
	ctx := WithActor(context.Background(), OwnerActor(&Business{ID: tenant}))

	a, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, ActorOwner, a.Kind)
	assert.Equal(t, tenant.Hex(), ctx.Value(TenantIDKey))

	_, ok = ActorFromContext(context.Background())
	assert.False(t, ok)
}

func TestActorKindValid(t *testing.T) {
	assert.True(t, ActorSupport.Valid())
	assert.False(t, ActorKind("root").Valid())
}
