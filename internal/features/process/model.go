package process

import (
	"time"

	"go-bpm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const InitialVersion = "V0"

// Log actions.
const (
	LogCreated    = "created"
	LogUpdated    = "updated"
	LogVerified   = "verified"
	LogUnverified = "unverified"
)

// Process is a stored BPMN diagram. XML is opaque here.
type Process struct {
	ID            primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name          string               `json:"name" bson:"name"`
	XML           string               `json:"xml" bson:"xml"`
	Creator       primitive.ObjectID   `json:"creator" bson:"creator"`
	Owners        []primitive.ObjectID `json:"owners" bson:"owners"`
	AssignedRoles []primitive.ObjectID `json:"assignedRoles" bson:"assigned_roles"`
	Department    *primitive.ObjectID  `json:"department" bson:"department,omitempty"`
	IsVerified    bool                 `json:"isVerified" bson:"is_verified"`
	Version       string               `json:"version" bson:"version"`
	Logs          []LogEntry           `json:"logs" bson:"logs"`
	CreatedAt     time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updatedAt" bson:"updated_at"`
}

// LogEntry is one append-only audit line embedded in the process.
type LogEntry struct {
	ActorID    primitive.ObjectID `json:"actorId" bson:"actor_id"`
	ActorEmail string             `json:"actorEmail" bson:"actor_email"`
	ActorKind  models.ActorKind   `json:"actorKind" bson:"actor_kind"`
	Action     string             `json:"action" bson:"action"`
	Timestamp  time.Time          `json:"timestamp" bson:"timestamp"`
}

func newLogEntry(actor *models.Actor, action string) LogEntry {
	return LogEntry{
		ActorID:    actor.ID(),
		ActorEmail: actor.Email(),
		ActorKind:  actor.Kind,
		Action:     action,
		Timestamp:  time.Now().UTC(),
	}
}

// Summary is the list view; it leaves out the diagram and the log.
type Summary struct {
	ID            primitive.ObjectID   `json:"_id" bson:"_id"`
	Name          string               `json:"name" bson:"name"`
	Creator       primitive.ObjectID   `json:"creator" bson:"creator"`
	Owners        []primitive.ObjectID `json:"owners" bson:"owners"`
	AssignedRoles []primitive.ObjectID `json:"assignedRoles" bson:"assigned_roles"`
	Department    *primitive.ObjectID  `json:"department" bson:"department,omitempty"`
	IsVerified    bool                 `json:"isVerified" bson:"is_verified"`
	Version       string               `json:"version" bson:"version"`
	UpdatedAt     time.Time            `json:"updatedAt" bson:"updated_at"`
}

type CreateProcessRequest struct {
	Name          string               `json:"name" validate:"required,max=200"`
	XML           string               `json:"xml" validate:"required"`
	OwnerIDs      []primitive.ObjectID `json:"ownerIds"`
	AssignedRoles []primitive.ObjectID `json:"assignedRoles"`
	Department    *primitive.ObjectID  `json:"department"`
}

// UpdateProcessRequest is a patch: nil fields are left alone. Department
// takes a hex id, or an empty string to clear it.
type UpdateProcessRequest struct {
	Name          *string               `json:"name" validate:"omitempty,max=200"`
	XML           *string               `json:"xml"`
	OwnerIDs      *[]primitive.ObjectID `json:"ownerIds"`
	AssignedRoles *[]primitive.ObjectID `json:"assignedRoles"`
	Department    *string               `json:"department"`
}

func (r UpdateProcessRequest) empty() bool {
	return r.Name == nil && r.XML == nil && r.OwnerIDs == nil && r.AssignedRoles == nil && r.Department == nil
}

// ListFilter scopes a listing. All wins over the other fields; an empty
// filter matches nothing.
type ListFilter struct {
	All      bool
	Creators []primitive.ObjectID
	Owner    *primitive.ObjectID
}
