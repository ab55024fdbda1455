package models

import (
	"time"
)

type ContextKey string

const (
	TenantIDKey ContextKey = "tenant_id"
	ActorKey    ContextKey = "actor"
)

// ActorKind discriminates the four kinds of authenticated callers.
type ActorKind string

const (
	ActorOwner    ActorKind = "owner"
	ActorEmployee ActorKind = "employee"
	ActorAdmin    ActorKind = "admin"
	ActorSupport  ActorKind = "support"
)

// ActorKinds is the allow-list checked before a token payload is trusted.
var ActorKinds = []ActorKind{ActorOwner, ActorEmployee, ActorAdmin, ActorSupport}

func (k ActorKind) Valid() bool {
	for _, v := range ActorKinds {
		if v == k {
			return true
		}
	}
	return false
}

// StructureKind selects one of the two parallel hierarchies.
type StructureKind string

const (
	StructureRoles       StructureKind = "roles"
	StructureDepartments StructureKind = "departments"
)

// Log is one persisted application log line.
type Log struct {
	AppId        string    `bson:"app_id" json:"app_id"`
	Message      string    `bson:"message" json:"message"`
	IpAddress    string    `bson:"ip_address" json:"ip_address"`
	ActorID      string    `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	TenantID     string    `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
