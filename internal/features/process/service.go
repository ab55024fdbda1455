package process

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/database"
	"go-bpm/internal/features/events"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NodeLinks is the structure half of an assignment link.
type NodeLinks interface {
	VerifyNodes(ctx context.Context, kind models.StructureKind, tenantID primitive.ObjectID, nodeIDs []primitive.ObjectID) error
	AttachProcess(ctx context.Context, kind models.StructureKind, nodeIDs []primitive.ObjectID, processID primitive.ObjectID) error
	// DetachProcess with nil nodeIDs detaches from every node of the kind.
	DetachProcess(ctx context.Context, kind models.StructureKind, nodeIDs []primitive.ObjectID, processID primitive.ObjectID) error
	// LockTenant serializes link writes with structure mutations of the tenant.
	LockTenant(tenantID primitive.ObjectID) (unlock func())
}

// MemberVerifier checks that ids are employees of a tenant.
type MemberVerifier interface {
	VerifyMembers(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) error
}

type Service interface {
	// Create stores a new process, or edits the caller's existing process of
	// the same name. The bool reports whether a new document was created.
	Create(ctx context.Context, actor *models.Actor, req CreateProcessRequest) (*Process, bool, error)
	List(ctx context.Context, actor *models.Actor) ([]Summary, error)
	Get(ctx context.Context, actor *models.Actor, id primitive.ObjectID) (*Process, error)
	Update(ctx context.Context, actor *models.Actor, id primitive.ObjectID, patch UpdateProcessRequest) (*Process, error)
	Delete(ctx context.Context, actor *models.Actor, id primitive.ObjectID) error
	ToggleVerify(ctx context.Context, actor *models.Actor, id primitive.ObjectID) (*Process, error)
	Logs(ctx context.Context, actor *models.Actor, id primitive.ObjectID) ([]LogEntry, error)
	ExportLogs(ctx context.Context, actor *models.Actor, id primitive.ObjectID) ([]byte, string, error)
}

type ServiceImpl struct {
	Repo      Repository
	Links     NodeLinks
	Members   MemberVerifier
	Tx        database.TxRunner
	Publisher events.Publisher
	Logger    *zap.Logger
}

func NewService(repo Repository, links NodeLinks, members MemberVerifier, tx database.TxRunner, publisher events.Publisher, logger *zap.Logger) Service {
	return &ServiceImpl{
		Repo:      repo,
		Links:     links,
		Members:   members,
		Tx:        tx,
		Publisher: publisher,
		Logger:    logger,
	}
}

func (s *ServiceImpl) publish(actor *models.Actor, p *Process, eventType string) {
	s.Publisher.Publish(events.Event{
		Type:      eventType,
		TenantID:  p.Creator,
		SubjectID: p.ID,
		ActorID:   actor.ID(),
	})
}

func (s *ServiceImpl) load(ctx context.Context, actor *models.Actor, id primitive.ObjectID, action Action) (*Process, error) {
	p, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, p, action); err != nil {
		s.Logger.Info("process access denied",
			zap.String("processId", id.Hex()),
			zap.String("actorKind", string(actor.Kind)),
			zap.String("action", string(action)),
		)
		return nil, err
	}
	return p, nil
}

func (s *ServiceImpl) Create(ctx context.Context, actor *models.Actor, req CreateProcessRequest) (*Process, bool, error) {
	if err := Authorize(actor, nil, ActionCreate); err != nil {
		return nil, false, err
	}
	tenantID, _ := actor.TenantID()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, false, apperr.Invalid("Process name is required")
	}

	existing, err := s.Repo.FindByCreatorAndName(ctx, tenantID, name)
	switch {
	case err == nil:
		if err := Authorize(actor, existing, ActionEdit); err != nil {
			return nil, false, err
		}
		patch := UpdateProcessRequest{XML: &req.XML}
		if req.OwnerIDs != nil {
			patch.OwnerIDs = &req.OwnerIDs
		}
		if req.AssignedRoles != nil {
			patch.AssignedRoles = &req.AssignedRoles
		}
		if req.Department != nil {
			hex := req.Department.Hex()
			patch.Department = &hex
		}
		p, err := s.applyPatch(ctx, actor, existing, patch)
		return p, false, err
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, false, err
	}

	owners := dedupeIDs(req.OwnerIDs)
	if actor.Kind == models.ActorEmployee && !slices.Contains(owners, actor.ID()) {
		owners = append(owners, actor.ID())
	}
	roles := dedupeIDs(req.AssignedRoles)

	if err := s.Members.VerifyMembers(ctx, tenantID, owners); err != nil {
		return nil, false, err
	}
	if err := s.Links.VerifyNodes(ctx, models.StructureRoles, tenantID, roles); err != nil {
		return nil, false, err
	}
	if req.Department != nil {
		if err := s.Links.VerifyNodes(ctx, models.StructureDepartments, tenantID, []primitive.ObjectID{*req.Department}); err != nil {
			return nil, false, err
		}
	}

	p := &Process{
		Name:          name,
		XML:           req.XML,
		Creator:       tenantID,
		Owners:        owners,
		AssignedRoles: roles,
		Department:    req.Department,
		Version:       InitialVersion,
		Logs:          []LogEntry{newLogEntry(actor, LogCreated)},
	}
	unlock := s.Links.LockTenant(tenantID)
	defer unlock()
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Repo.Create(ctx, p); err != nil {
			return err
		}
		if err := s.Links.AttachProcess(ctx, models.StructureRoles, roles, p.ID); err != nil {
			return err
		}
		if p.Department != nil {
			return s.Links.AttachProcess(ctx, models.StructureDepartments, []primitive.ObjectID{*p.Department}, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.Logger.Info("process created", zap.String("processId", p.ID.Hex()), zap.String("tenantId", tenantID.Hex()))
	s.publish(actor, p, events.ProcessCreated)
	return p, true, nil
}

func (s *ServiceImpl) List(ctx context.Context, actor *models.Actor) ([]Summary, error) {
	var filter ListFilter
	switch actor.Kind {
	case models.ActorOwner:
		filter.Creators = []primitive.ObjectID{actor.ID()}
	case models.ActorEmployee:
		id := actor.ID()
		filter.Owner = &id
		filter.Creators = []primitive.ObjectID{actor.Employee.BusinessID}
	case models.ActorAdmin:
		filter.All = true
	case models.ActorSupport:
		filter.Creators = actor.Support.AssignedCompanies
	}
	return s.Repo.List(ctx, filter)
}

func (s *ServiceImpl) Get(ctx context.Context, actor *models.Actor, id primitive.ObjectID) (*Process, error) {
	return s.load(ctx, actor, id, ActionRead)
}

func (s *ServiceImpl) Update(ctx context.Context, actor *models.Actor, id primitive.ObjectID, patch UpdateProcessRequest) (*Process, error) {
	p, err := s.load(ctx, actor, id, ActionEdit)
	if err != nil {
		return nil, err
	}
	return s.applyPatch(ctx, actor, p, patch)
}

// applyPatch writes patch onto an already authorized process and keeps the
// node side of role and department links in step. Version never changes here.
func (s *ServiceImpl) applyPatch(ctx context.Context, actor *models.Actor, p *Process, patch UpdateProcessRequest) (*Process, error) {
	if patch.empty() {
		return nil, apperr.Invalid("Nothing to update")
	}

	set := bson.M{}
	var unset []string

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Invalid("Process name is required")
		}
		set["name"] = name
	}
	if patch.XML != nil {
		set["xml"] = *patch.XML
	}
	if patch.OwnerIDs != nil {
		owners := dedupeIDs(*patch.OwnerIDs)
		if err := s.Members.VerifyMembers(ctx, p.Creator, owners); err != nil {
			return nil, err
		}
		set["owners"] = owners
	}

	var addRoles, dropRoles []primitive.ObjectID
	if patch.AssignedRoles != nil {
		roles := dedupeIDs(*patch.AssignedRoles)
		if err := s.Links.VerifyNodes(ctx, models.StructureRoles, p.Creator, roles); err != nil {
			return nil, err
		}
		addRoles, dropRoles = diffIDs(p.AssignedRoles, roles)
		set["assigned_roles"] = roles
	}

	var oldDept, newDept *primitive.ObjectID
	if patch.Department != nil {
		if *patch.Department == "" {
			if p.Department != nil {
				oldDept = p.Department
				unset = append(unset, "department")
			}
		} else {
			dept, err := primitive.ObjectIDFromHex(*patch.Department)
			if err != nil {
				return nil, apperr.Invalid("Invalid department ID")
			}
			if p.Department == nil || *p.Department != dept {
				if err := s.Links.VerifyNodes(ctx, models.StructureDepartments, p.Creator, []primitive.ObjectID{dept}); err != nil {
					return nil, err
				}
				oldDept, newDept = p.Department, &dept
				set["department"] = dept
			}
		}
	}

	var entry *LogEntry
	if LogsEdit(actor) {
		e := newLogEntry(actor, LogUpdated)
		entry = &e
	}

	unlock := s.Links.LockTenant(p.Creator)
	defer unlock()

	var updated *Process
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.Repo.Update(ctx, p.ID, set, unset, entry)
		if err != nil {
			return err
		}
		if len(dropRoles) > 0 {
			if err := s.Links.DetachProcess(ctx, models.StructureRoles, dropRoles, p.ID); err != nil {
				return err
			}
		}
		if len(addRoles) > 0 {
			if err := s.Links.AttachProcess(ctx, models.StructureRoles, addRoles, p.ID); err != nil {
				return err
			}
		}
		if oldDept != nil {
			if err := s.Links.DetachProcess(ctx, models.StructureDepartments, []primitive.ObjectID{*oldDept}, p.ID); err != nil {
				return err
			}
		}
		if newDept != nil {
			return s.Links.AttachProcess(ctx, models.StructureDepartments, []primitive.ObjectID{*newDept}, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(actor, updated, events.ProcessUpdated)
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, actor *models.Actor, id primitive.ObjectID) error {
	p, err := s.load(ctx, actor, id, ActionDelete)
	if err != nil {
		return err
	}

	unlock := s.Links.LockTenant(p.Creator)
	defer unlock()

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Links.DetachProcess(ctx, models.StructureRoles, nil, p.ID); err != nil {
			return err
		}
		if err := s.Links.DetachProcess(ctx, models.StructureDepartments, nil, p.ID); err != nil {
			return err
		}
		return s.Repo.Delete(ctx, p.ID)
	})
	if err != nil {
		return err
	}

	s.Logger.Info("process deleted", zap.String("processId", p.ID.Hex()))
	s.publish(actor, p, events.ProcessDeleted)
	return nil
}

func (s *ServiceImpl) ToggleVerify(ctx context.Context, actor *models.Actor, id primitive.ObjectID) (*Process, error) {
	p, err := s.load(ctx, actor, id, ActionToggleVerify)
	if err != nil {
		return nil, err
	}

	verified := !p.IsVerified
	version, action, eventType := p.Version, LogUnverified, events.ProcessUnverified
	if verified {
		version, action, eventType = nextVersion(p.Version), LogVerified, events.ProcessVerified
	}

	updated, err := s.Repo.SetVerified(ctx, p.ID, verified, version, newLogEntry(actor, action))
	if err != nil {
		if errors.Is(err, ErrStaleVerification) {
			return nil, apperr.Conflict("Process verification changed concurrently, please retry")
		}
		return nil, err
	}

	s.Logger.Info("process verification toggled",
		zap.String("processId", p.ID.Hex()),
		zap.Bool("verified", verified),
		zap.String("version", version),
	)
	s.publish(actor, updated, eventType)
	return updated, nil
}

func (s *ServiceImpl) Logs(ctx context.Context, actor *models.Actor, id primitive.ObjectID) ([]LogEntry, error) {
	p, err := s.load(ctx, actor, id, ActionRead)
	if err != nil {
		return nil, err
	}
	if p.Logs == nil {
		return []LogEntry{}, nil
	}
	return p.Logs, nil
}

func (s *ServiceImpl) ExportLogs(ctx context.Context, actor *models.Actor, id primitive.ObjectID) ([]byte, string, error) {
	p, err := s.load(ctx, actor, id, ActionRead)
	if err != nil {
		return nil, "", err
	}
	return exportLogs(p)
}

// nextVersion turns "V{n}" into "V{n+1}". Unparseable tags restart at V1.
func nextVersion(v string) string {
	n := 0
	if rest, ok := strings.CutPrefix(v, "V"); ok {
		if parsed, err := strconv.Atoi(rest); err == nil && parsed >= 0 {
			n = parsed
		}
	}
	return "V" + strconv.Itoa(n+1)
}

func dedupeIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// diffIDs returns what next adds to and drops from prev.
func diffIDs(prev, next []primitive.ObjectID) (added, dropped []primitive.ObjectID) {
	for _, id := range next {
		if !slices.Contains(prev, id) {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if !slices.Contains(next, id) {
			dropped = append(dropped, id)
		}
	}
	return added, dropped
}
