package structure

import (
	"context"
	"errors"
	"strings"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/database"
	"go-bpm/internal/features/events"
	"go-bpm/internal/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ProcessSide is the process half of an assignment link.
type ProcessSide interface {
	// CountOwned counts how many of ids are processes created by tenantID.
	CountOwned(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	// Link records nodeID on each process. For single-valued links it returns
	// the node each process was moved away from, keyed by that node.
	Link(ctx context.Context, kind models.StructureKind, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error)
	// Unlink removes nodeID from processIDs, or from every process when processIDs is nil.
	Unlink(ctx context.Context, kind models.StructureKind, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) error
}

type Service interface {
	Kind() Kind
	AddNode(ctx context.Context, tenantID primitive.ObjectID, parentID *primitive.ObjectID, name string) (*Node, error)
	EditNode(ctx context.Context, tenantID, nodeID primitive.ObjectID, name string) error
	DeleteNode(ctx context.Context, tenantID, nodeID primitive.ObjectID) error
	GetTree(ctx context.Context, tenantID primitive.ObjectID) (*Tree, error)
	AssignProcesses(ctx context.Context, tenantID, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) (*Node, error)
	UnassignProcess(ctx context.Context, tenantID, nodeID, processID primitive.ObjectID) error
}

type ServiceImpl struct {
	kind      Kind
	repo      Repository
	processes ProcessSide
	tx        database.TxRunner
	publisher events.Publisher
	logger    *zap.Logger
	locks     *tenantLocks
	maxDepth  int
}

func NewService(kind Kind, repo Repository, processes ProcessSide, tx database.TxRunner, publisher events.Publisher, logger *zap.Logger, maxDepth int) Service {
	return newService(kind, repo, processes, tx, publisher, logger, maxDepth, newTenantLocks())
}

func newService(kind Kind, repo Repository, processes ProcessSide, tx database.TxRunner, publisher events.Publisher, logger *zap.Logger, maxDepth int, locks *tenantLocks) *ServiceImpl {
	if maxDepth <= 0 {
		maxDepth = 64
	}
	return &ServiceImpl{
		kind:      kind,
		repo:      repo,
		processes: processes,
		tx:        tx,
		publisher: publisher,
		logger:    logger.With(zap.String("structure", string(kind.Name))),
		locks:     locks,
		maxDepth:  maxDepth,
	}
}

func (s *ServiceImpl) Kind() Kind {
	return s.kind
}

func (s *ServiceImpl) mutated(op string, tenantID, subjectID primitive.ObjectID, eventType string) {
	metrics.StructureMutations.WithLabelValues(string(s.kind.Name), op).Inc()
	s.publisher.Publish(events.Event{Type: eventType, TenantID: tenantID, SubjectID: subjectID})
}

func (s *ServiceImpl) AddNode(ctx context.Context, tenantID primitive.ObjectID, parentID *primitive.ObjectID, name string) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("%s name is required", s.kind.Label)
	}

	unlock := s.locks.Lock(tenantID)
	defer unlock()

	var node *Node
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		node = &Node{Owner: tenantID, Name: name}

		if parentID != nil {
			if _, err := s.repo.FindNode(ctx, tenantID, *parentID); err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return apperr.NotFound("Parent %s not found", s.kind.Label)
				}
				return err
			}
			if err := s.repo.CreateNode(ctx, node); err != nil {
				return err
			}
			return s.repo.AppendChild(ctx, tenantID, *parentID, node.ID)
		}

		root, err := s.repo.FindOrCreateRoot(ctx, tenantID)
		if err != nil {
			return err
		}
		if err := s.repo.CreateNode(ctx, node); err != nil {
			return err
		}
		return s.repo.AppendTopLevel(ctx, root.ID, node.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node added",
		zap.String("tenantId", tenantID.Hex()),
		zap.String("nodeId", node.ID.Hex()),
		zap.Bool("topLevel", parentID == nil),
	)
	s.mutated("add", tenantID, node.ID, events.NodeAdded)
	return node, nil
}

func (s *ServiceImpl) EditNode(ctx context.Context, tenantID, nodeID primitive.ObjectID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Invalid("%s name is required", s.kind.Label)
	}
	if err := s.repo.RenameNode(ctx, tenantID, nodeID, name); err != nil {
		return err
	}
	s.mutated("edit", tenantID, nodeID, events.NodeRenamed)
	return nil
}

func (s *ServiceImpl) DeleteNode(ctx context.Context, tenantID, nodeID primitive.ObjectID) error {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		node, err := s.repo.FindNode(ctx, tenantID, nodeID)
		if err != nil {
			return err
		}
		if len(node.Children) > 0 {
			return apperr.Conflict("Cannot delete %s: it has %s", s.kind.Label, s.kind.ChildLabel)
		}
		if err := s.repo.DeleteLeaf(ctx, tenantID, nodeID); err != nil {
			return err
		}
		if err := s.repo.PullChild(ctx, nodeID); err != nil {
			return err
		}
		if err := s.repo.PullTopLevel(ctx, nodeID); err != nil {
			return err
		}
		// every process, not only node.AssignedProcesses, so half-links go too
		return s.processes.Unlink(ctx, s.kind.Name, nodeID, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info("node deleted", zap.String("tenantId", tenantID.Hex()), zap.String("nodeId", nodeID.Hex()))
	s.mutated("delete", tenantID, nodeID, events.NodeDeleted)
	return nil
}

func (s *ServiceImpl) GetTree(ctx context.Context, tenantID primitive.ObjectID) (*Tree, error) {
	root, err := s.repo.FindRoot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.repo.FindNodesByOwner(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	tree, err := buildTree(s.kind, root, nodes, s.maxDepth)
	if err != nil {
		s.logger.Warn("tree read refused", zap.String("tenantId", tenantID.Hex()), zap.Error(err))
		return nil, err
	}
	return tree, nil
}

func dedupeIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *ServiceImpl) AssignProcesses(ctx context.Context, tenantID, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) (*Node, error) {
	processIDs = dedupeIDs(processIDs)

	unlock := s.locks.Lock(tenantID)
	defer unlock()

	var node *Node
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindNode(ctx, tenantID, nodeID); err != nil {
			return err
		}

		if len(processIDs) > 0 {
			n, err := s.processes.CountOwned(ctx, tenantID, processIDs)
			if err != nil {
				return err
			}
			if n != int64(len(processIDs)) {
				return apperr.NotFound("One or more processes not found")
			}

			if err := s.repo.AddProcesses(ctx, []primitive.ObjectID{nodeID}, processIDs); err != nil {
				return err
			}
			displaced, err := s.processes.Link(ctx, s.kind.Name, nodeID, processIDs)
			if err != nil {
				return err
			}
			for previous, moved := range displaced {
				if previous == nodeID {
					continue
				}
				if err := s.repo.PullProcesses(ctx, []primitive.ObjectID{previous}, moved); err != nil {
					return err
				}
			}
		}

		var err error
		node, err = s.repo.FindNode(ctx, tenantID, nodeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.mutated("assign", tenantID, nodeID, events.ProcessesAssigned)
	return node, nil
}

func (s *ServiceImpl) UnassignProcess(ctx context.Context, tenantID, nodeID, processID primitive.ObjectID) error {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindNode(ctx, tenantID, nodeID); err != nil {
			return err
		}
		if err := s.repo.PullProcesses(ctx, []primitive.ObjectID{nodeID}, []primitive.ObjectID{processID}); err != nil {
			return err
		}
		return s.processes.Unlink(ctx, s.kind.Name, nodeID, []primitive.ObjectID{processID})
	})
	if err != nil {
		return err
	}

	s.mutated("unassign", tenantID, nodeID, events.ProcessUnassigned)
	return nil
}
