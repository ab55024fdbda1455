package structure

import (
	"context"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/config"
	"go-bpm/internal/database"
	"go-bpm/internal/features/events"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Structures holds the role and department hierarchies side by side.
type Structures struct {
	Roles       Service
	Departments Service

	repos map[models.StructureKind]Repository
	locks *tenantLocks
}

// Repositories bundles the per-kind repositories for fx.
type Repositories struct {
	Roles       Repository
	Departments Repository
}

func NewRepositories(mongodb *database.MongodbDB) *Repositories {
	return &Repositories{
		Roles:       NewRepository(mongodb, RoleKind),
		Departments: NewRepository(mongodb, DepartmentKind),
	}
}

func NewStructures(repos *Repositories, processes ProcessSide, tx database.TxRunner, publisher events.Publisher, logger *zap.Logger, cfg *config.Config) *Structures {
	locks := newTenantLocks()
	return &Structures{
		Roles:       newService(RoleKind, repos.Roles, processes, tx, publisher, logger, cfg.MaxTreeDepth, locks),
		Departments: newService(DepartmentKind, repos.Departments, processes, tx, publisher, logger, cfg.MaxTreeDepth, locks),
		repos: map[models.StructureKind]Repository{
			models.StructureRoles:       repos.Roles,
			models.StructureDepartments: repos.Departments,
		},
		locks: locks,
	}
}

// LockTenant takes the lock that serializes link writes for tenantID. Both
// hierarchies share it, as do process writes and the reconciler.
func (s *Structures) LockTenant(tenantID primitive.ObjectID) (unlock func()) {
	return s.locks.Lock(tenantID)
}

func (s *Structures) repo(kind models.StructureKind) (Repository, error) {
	r, ok := s.repos[kind]
	if !ok {
		return nil, apperr.Invalid("unknown structure kind %q", kind)
	}
	return r, nil
}

// NodeExists fails with NotFound unless nodeID is a node of tenantID.
func (s *Structures) NodeExists(ctx context.Context, kind models.StructureKind, tenantID, nodeID primitive.ObjectID) error {
	r, err := s.repo(kind)
	if err != nil {
		return err
	}
	_, err = r.FindNode(ctx, tenantID, nodeID)
	return err
}

// VerifyNodes fails with NotFound unless every id is a node of tenantID.
func (s *Structures) VerifyNodes(ctx context.Context, kind models.StructureKind, tenantID primitive.ObjectID, nodeIDs []primitive.ObjectID) error {
	nodeIDs = dedupeIDs(nodeIDs)
	if len(nodeIDs) == 0 {
		return nil
	}
	r, err := s.repo(kind)
	if err != nil {
		return err
	}
	n, err := r.CountNodes(ctx, tenantID, nodeIDs)
	if err != nil {
		return err
	}
	if n != int64(len(nodeIDs)) {
		label := RoleKind.Label
		if kind == models.StructureDepartments {
			label = DepartmentKind.Label
		}
		return apperr.NotFound("One or more %ss not found", label)
	}
	return nil
}

// AttachProcess adds processID to each node's assigned processes.
func (s *Structures) AttachProcess(ctx context.Context, kind models.StructureKind, nodeIDs []primitive.ObjectID, processID primitive.ObjectID) error {
	r, err := s.repo(kind)
	if err != nil {
		return err
	}
	return r.AddProcesses(ctx, nodeIDs, []primitive.ObjectID{processID})
}

// DetachProcess removes processID from nodeIDs, or from every node when nodeIDs is nil.
func (s *Structures) DetachProcess(ctx context.Context, kind models.StructureKind, nodeIDs []primitive.ObjectID, processID primitive.ObjectID) error {
	r, err := s.repo(kind)
	if err != nil {
		return err
	}
	return r.PullProcesses(ctx, nodeIDs, []primitive.ObjectID{processID})
}
