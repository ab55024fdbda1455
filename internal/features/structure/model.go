package structure

import (
	"time"

	"go-bpm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind describes one of the two isomorphic hierarchies.
type Kind struct {
	Name           models.StructureKind
	Label          string
	ChildLabel     string
	RootCollection string
	NodeCollection string
}

var (
	RoleKind = Kind{
		Name:           models.StructureRoles,
		Label:          "Role",
		ChildLabel:     "sub-roles",
		RootCollection: "company_structures",
		NodeCollection: "roles",
	}
	DepartmentKind = Kind{
		Name:           models.StructureDepartments,
		Label:          "Department",
		ChildLabel:     "sub-departments",
		RootCollection: "department_structures",
		NodeCollection: "departments",
	}
)

// Node is a Role or a Department.
type Node struct {
	ID                primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Owner             primitive.ObjectID   `json:"owner" bson:"owner"`
	Name              string               `json:"name" bson:"name"`
	Children          []primitive.ObjectID `json:"children" bson:"children"`
	AssignedProcesses []primitive.ObjectID `json:"assignedProcesses" bson:"assigned_processes"`
	CreatedAt         time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time            `json:"updatedAt" bson:"updated_at"`
}

// Root holds the top level of one tenant's tree.
type Root struct {
	ID            primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Owner         primitive.ObjectID   `json:"owner" bson:"owner"`
	TopLevelNodes []primitive.ObjectID `json:"topLevelNodes" bson:"top_level_nodes"`
	CreatedAt     time.Time            `json:"createdAt" bson:"created_at"`
}

// TreeNode is a node with its children materialized.
type TreeNode struct {
	ID                primitive.ObjectID   `json:"_id"`
	Name              string               `json:"name"`
	AssignedProcesses []primitive.ObjectID `json:"assignedProcesses"`
	Children          []*TreeNode          `json:"children"`
}

// Tree is a fully populated Root.
type Tree struct {
	ID            primitive.ObjectID `json:"_id"`
	Owner         primitive.ObjectID `json:"owner"`
	TopLevelNodes []*TreeNode        `json:"topLevelNodes"`
}

type AddNodeRequest struct {
	ParentID *primitive.ObjectID `json:"parentId"`
	Name     string              `json:"name" validate:"required,max=200"`
}

type EditNodeRequest struct {
	NodeID primitive.ObjectID `json:"nodeId" validate:"required"`
	Name   string             `json:"name" validate:"required,max=200"`
}

type DeleteNodeRequest struct {
	NodeID primitive.ObjectID `json:"nodeId" validate:"required"`
}

type AssignProcessesRequest struct {
	NodeID     primitive.ObjectID   `json:"nodeId" validate:"required"`
	ProcessIDs []primitive.ObjectID `json:"processIds" validate:"required"`
}

type RemoveAssignmentRequest struct {
	NodeID    primitive.ObjectID `json:"nodeId" validate:"required"`
	ProcessID primitive.ObjectID `json:"processId" validate:"required"`
}
