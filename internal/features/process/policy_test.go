package process

import (
	"errors"
	"testing"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthorize(t *testing.T) {
	tenant := primitive.NewObjectID()
	otherTenant := primitive.NewObjectID()

	owner := models.OwnerActor(&models.Business{ID: tenant})
	strangerOwner := models.OwnerActor(&models.Business{ID: otherTenant})
	member := models.EmployeeActor(&models.Employee{ID: primitive.NewObjectID(), BusinessID: tenant})
	outsider := models.EmployeeActor(&models.Employee{ID: primitive.NewObjectID(), BusinessID: tenant})
	admin := models.AdminActor(&models.Admin{ID: primitive.NewObjectID()})
	support := models.SupportActor(&models.Support{ID: primitive.NewObjectID(), AssignedCompanies: []primitive.ObjectID{tenant}})
	unassigned := models.SupportActor(&models.Support{ID: primitive.NewObjectID(), AssignedCompanies: []primitive.ObjectID{otherTenant}})

	open := &Process{Creator: tenant, Owners: []primitive.ObjectID{member.ID()}}
	verified := &Process{Creator: tenant, Owners: []primitive.ObjectID{member.ID()}, IsVerified: true}

	tests := []struct {
		name    string
		actor   *models.Actor
		p       *Process
		action  Action
		allowed bool
		reason  string
	}{
		{"owner reads own", owner, open, ActionRead, true, ""},
		{"owner of other tenant cannot read", strangerOwner, open, ActionRead, false, "not permitted"},
		{"member reads", member, open, ActionRead, true, ""},
		{"outsider cannot read", outsider, open, ActionRead, false, "not permitted"},
		{"admin reads", admin, open, ActionRead, true, ""},
		{"assigned support reads", support, open, ActionRead, true, ""},
		{"unassigned support cannot read", unassigned, open, ActionRead, false, "not permitted"},

		{"owner creates", owner, nil, ActionCreate, true, ""},
		{"employee creates", member, nil, ActionCreate, true, ""},
		{"admin cannot create", admin, nil, ActionCreate, false, "create"},
		{"support cannot create", support, nil, ActionCreate, false, "create"},

		{"owner edits", owner, open, ActionEdit, true, ""},
		{"owner blocked by lock", owner, verified, ActionEdit, false, "verified"},
		{"member edits", member, open, ActionEdit, true, ""},
		{"member blocked by lock", member, verified, ActionEdit, false, "verified"},
		{"outsider cannot edit", outsider, open, ActionEdit, false, "not permitted"},
		{"outsider told not permitted on verified", outsider, verified, ActionEdit, false, "not permitted"},
		{"admin bypasses lock", admin, verified, ActionEdit, true, ""},
		{"support bypasses lock", support, verified, ActionEdit, true, ""},
		{"unassigned support cannot edit", unassigned, open, ActionEdit, false, "not permitted"},

		{"owner deletes", owner, open, ActionDelete, true, ""},
		{"member cannot delete", member, open, ActionDelete, false, "not permitted"},
		{"admin cannot delete", admin, open, ActionDelete, false, "not permitted"},
		{"owner toggles", owner, verified, ActionToggleVerify, true, ""},
		{"member cannot toggle", member, open, ActionToggleVerify, false, "not permitted"},
		{"support cannot toggle", support, open, ActionToggleVerify, false, "not permitted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.p, tt.action)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrForbidden))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestLogsEdit(t *testing.T) {
	assert.True(t, LogsEdit(models.OwnerActor(&models.Business{})))
	assert.True(t, LogsEdit(models.EmployeeActor(&models.Employee{})))
	assert.False(t, LogsEdit(models.AdminActor(&models.Admin{})))
	assert.False(t, LogsEdit(models.SupportActor(&models.Support{})))
}

func TestNextVersion(t *testing.T) {
	assert.Equal(t, "V1", nextVersion("V0"))
	assert.Equal(t, "V10", nextVersion("V9"))
	assert.Equal(t, "V1", nextVersion(""))
	assert.Equal(t, "V1", nextVersion("draft"))
}
