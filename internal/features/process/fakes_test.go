package process

import (
	"context"
	"slices"
	"sync"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memRepo struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*Process
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[primitive.ObjectID]*Process{}}
}

func clone(p *Process) *Process {
	cp := *p
	cp.Owners = slices.Clone(p.Owners)
	cp.AssignedRoles = slices.Clone(p.AssignedRoles)
	cp.Logs = slices.Clone(p.Logs)
	if p.Department != nil {
		d := *p.Department
		cp.Department = &d
	}
	return &cp
}

func (r *memRepo) Create(_ context.Context, p *Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = primitive.NewObjectID()
	r.byID[p.ID] = clone(p)
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id primitive.ObjectID) (*Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, apperr.NotFound("Process not found")
	}
	return clone(p), nil
}

func (r *memRepo) FindByCreatorAndName(_ context.Context, creator primitive.ObjectID, name string) (*Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Creator == creator && p.Name == name {
			return clone(p), nil
		}
	}
	return nil, apperr.NotFound("Process not found")
}

func (r *memRepo) List(_ context.Context, filter ListFilter) ([]Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Summary{}
	for _, p := range r.byID {
		switch {
		case filter.All:
		case filter.Owner != nil:
			if !slices.Contains(p.Owners, *filter.Owner) {
				continue
			}
			if len(filter.Creators) > 0 && !slices.Contains(filter.Creators, p.Creator) {
				continue
			}
		case len(filter.Creators) > 0:
			if !slices.Contains(filter.Creators, p.Creator) {
				continue
			}
		default:
			continue
		}
		out = append(out, Summary{ID: p.ID, Name: p.Name, Creator: p.Creator, Version: p.Version})
	}
	return out, nil
}

func (r *memRepo) FindAll(context.Context) ([]Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Process{}
	for _, p := range r.byID {
		out = append(out, *clone(p))
	}
	return out, nil
}

func (r *memRepo) Update(_ context.Context, id primitive.ObjectID, set bson.M, unset []string, entry *LogEntry) (*Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, apperr.NotFound("Process not found")
	}
	for k, v := range set {
		switch k {
		case "name":
			p.Name = v.(string)
		case "xml":
			p.XML = v.(string)
		case "owners":
			p.Owners = v.([]primitive.ObjectID)
		case "assigned_roles":
			p.AssignedRoles = v.([]primitive.ObjectID)
		case "department":
			d := v.(primitive.ObjectID)
			p.Department = &d
		}
	}
	if slices.Contains(unset, "department") {
		p.Department = nil
	}
	if entry != nil {
		p.Logs = append(p.Logs, *entry)
	}
	return clone(p), nil
}

func (r *memRepo) SetVerified(_ context.Context, id primitive.ObjectID, verified bool, version string, entry LogEntry) (*Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.IsVerified == verified {
		return nil, ErrStaleVerification
	}
	p.IsVerified = verified
	p.Version = version
	p.Logs = append(p.Logs, entry)
	return clone(p), nil
}

func (r *memRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return apperr.NotFound("Process not found")
	}
	delete(r.byID, id)
	return nil
}

func (r *memRepo) CountOwned(context.Context, primitive.ObjectID, []primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (r *memRepo) Link(context.Context, models.StructureKind, primitive.ObjectID, []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	return nil, nil
}

func (r *memRepo) Unlink(context.Context, models.StructureKind, primitive.ObjectID, []primitive.ObjectID) error {
	return nil
}

func (r *memRepo) EnsureIndexes(context.Context) error { return nil }

// memLinks records the node side of assignments.
type memLinks struct {
	mu       sync.Mutex
	nodes    map[models.StructureKind]map[primitive.ObjectID]primitive.ObjectID // node -> tenant
	assigned map[primitive.ObjectID][]primitive.ObjectID                       // node -> processes

	locked, unlocked int
}

func newMemLinks() *memLinks {
	return &memLinks{
		nodes: map[models.StructureKind]map[primitive.ObjectID]primitive.ObjectID{
			models.StructureRoles:       {},
			models.StructureDepartments: {},
		},
		assigned: map[primitive.ObjectID][]primitive.ObjectID{},
	}
}

func (l *memLinks) addNode(kind models.StructureKind, tenantID primitive.ObjectID) primitive.ObjectID {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := primitive.NewObjectID()
	l.nodes[kind][id] = tenantID
	return id
}

func (l *memLinks) processesOf(nodeID primitive.ObjectID) []primitive.ObjectID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.assigned[nodeID])
}

func (l *memLinks) LockTenant(primitive.ObjectID) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
	}
}

func (l *memLinks) VerifyNodes(_ context.Context, kind models.StructureKind, tenantID primitive.ObjectID, nodeIDs []primitive.ObjectID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range nodeIDs {
		if owner, ok := l.nodes[kind][id]; !ok || owner != tenantID {
			return apperr.NotFound("One or more nodes not found")
		}
	}
	return nil
}

func (l *memLinks) AttachProcess(_ context.Context, kind models.StructureKind, nodeIDs []primitive.ObjectID, processID primitive.ObjectID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range nodeIDs {
		if !slices.Contains(l.assigned[id], processID) {
			l.assigned[id] = append(l.assigned[id], processID)
		}
	}
	return nil
}

func (l *memLinks) DetachProcess(_ context.Context, kind models.StructureKind, nodeIDs []primitive.ObjectID, processID primitive.ObjectID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id := range l.nodes[kind] {
		if nodeIDs != nil && !slices.Contains(nodeIDs, id) {
			continue
		}
		l.assigned[id] = slices.DeleteFunc(l.assigned[id], func(p primitive.ObjectID) bool { return p == processID })
	}
	return nil
}

type memMembers map[primitive.ObjectID]primitive.ObjectID // employee -> tenant

func (m memMembers) VerifyMembers(_ context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) error {
	for _, id := range ids {
		if m[id] != tenantID {
			return apperr.NotFound("One or more employees not found")
		}
	}
	return nil
}
