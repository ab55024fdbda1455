package reconcile

import (
	"context"
	"slices"
	"testing"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/config"
	"go-bpm/internal/features/events"
	"go-bpm/internal/features/process"
	"go-bpm/internal/features/structure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// nodeStore implements the parts of structure.Repository the reconciler uses.
type nodeStore struct {
	structure.Repository
	nodes map[primitive.ObjectID]*structure.Node
	// beforeScan runs once, when the next bulk scan starts.
	beforeScan func()
}

func (s *nodeStore) FindNode(_ context.Context, tenantID, id primitive.ObjectID) (*structure.Node, error) {
	n, ok := s.nodes[id]
	if !ok || n.Owner != tenantID {
		return nil, apperr.NotFound("Role not found")
	}
	cp := *n
	cp.AssignedProcesses = slices.Clone(n.AssignedProcesses)
	return &cp, nil
}

func (s *nodeStore) FindAllNodes(context.Context) ([]structure.Node, error) {
	if s.beforeScan != nil {
		hook := s.beforeScan
		s.beforeScan = nil
		hook()
	}
	out := []structure.Node{}
	for _, n := range s.nodes {
		cp := *n
		cp.AssignedProcesses = slices.Clone(n.AssignedProcesses)
		out = append(out, cp)
	}
	return out, nil
}

func (s *nodeStore) AddProcesses(_ context.Context, nodeIDs, processIDs []primitive.ObjectID) error {
	for _, id := range nodeIDs {
		for _, p := range processIDs {
			if !slices.Contains(s.nodes[id].AssignedProcesses, p) {
				s.nodes[id].AssignedProcesses = append(s.nodes[id].AssignedProcesses, p)
			}
		}
	}
	return nil
}

func (s *nodeStore) PullProcesses(_ context.Context, nodeIDs, processIDs []primitive.ObjectID) error {
	for _, id := range nodeIDs {
		s.nodes[id].AssignedProcesses = slices.DeleteFunc(s.nodes[id].AssignedProcesses, func(p primitive.ObjectID) bool {
			return slices.Contains(processIDs, p)
		})
	}
	return nil
}

type processStore struct {
	process.Repository
	procs map[primitive.ObjectID]*process.Process
}

func (s *processStore) FindByID(_ context.Context, id primitive.ObjectID) (*process.Process, error) {
	p, ok := s.procs[id]
	if !ok {
		return nil, apperr.NotFound("Process not found")
	}
	cp := *p
	cp.AssignedRoles = slices.Clone(p.AssignedRoles)
	return &cp, nil
}

func (s *processStore) FindAll(context.Context) ([]process.Process, error) {
	out := []process.Process{}
	for _, p := range s.procs {
		cp := *p
		cp.AssignedRoles = slices.Clone(p.AssignedRoles)
		out = append(out, cp)
	}
	return out, nil
}

func (s *processStore) Link(_ context.Context, kind models.StructureKind, nodeID primitive.ObjectID, ids []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	for _, id := range ids {
		p := s.procs[id]
		if kind == models.StructureRoles {
			if !slices.Contains(p.AssignedRoles, nodeID) {
				p.AssignedRoles = append(p.AssignedRoles, nodeID)
			}
		} else {
			n := nodeID
			p.Department = &n
		}
	}
	return nil, nil
}

func (s *processStore) Unlink(_ context.Context, kind models.StructureKind, nodeID primitive.ObjectID, ids []primitive.ObjectID) error {
	for _, id := range ids {
		p := s.procs[id]
		if kind == models.StructureRoles {
			p.AssignedRoles = slices.DeleteFunc(p.AssignedRoles, func(n primitive.ObjectID) bool { return n == nodeID })
		} else if p.Department != nil && *p.Department == nodeID {
			p.Department = nil
		}
	}
	return nil
}

type countingLocker struct {
	held    int
	tenants map[primitive.ObjectID]int
}

func newCountingLocker() *countingLocker {
	return &countingLocker{tenants: map[primitive.ObjectID]int{}}
}

func (l *countingLocker) LockTenant(tenantID primitive.ObjectID) func() {
	l.held++
	l.tenants[tenantID]++
	return func() { l.held-- }
}

func newNode(owner primitive.ObjectID, procs ...primitive.ObjectID) *structure.Node {
	return &structure.Node{ID: primitive.NewObjectID(), Owner: owner, AssignedProcesses: procs}
}

func TestReconcileRepairsHalfLinks(t *testing.T) {
	tenant := primitive.NewObjectID()
	roles := &nodeStore{nodes: map[primitive.ObjectID]*structure.Node{}}
	depts := &nodeStore{nodes: map[primitive.ObjectID]*structure.Node{}}
	procs := &processStore{procs: map[primitive.ObjectID]*process.Process{}}

	addProc := func() *process.Process {
		p := &process.Process{ID: primitive.NewObjectID(), Creator: tenant}
		procs.procs[p.ID] = p
		return p
	}
	p1, p2, p3 := addProc(), addProc(), addProc()
	ghost := primitive.NewObjectID()

	// role node lists p1 but p1 lacks the role; p2 lists a role missing p2; ghost is gone
	r1 := newNode(tenant, p1.ID, ghost)
	r2 := newNode(tenant)
	roles.nodes[r1.ID], roles.nodes[r2.ID] = r1, r2
	p2.AssignedRoles = []primitive.ObjectID{r2.ID, primitive.NewObjectID()}

	// department node lists p3 which points elsewhere
	d1 := newNode(tenant, p3.ID)
	d2 := newNode(tenant)
	depts.nodes[d1.ID], depts.nodes[d2.ID] = d1, d2
	p3.Department = &d2.ID

	rec := NewReconciler(&structure.Repositories{Roles: roles, Departments: depts}, procs, newCountingLocker(), events.Nop{}, zap.NewNop(), &config.Config{})
	report, err := rec.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, p1.AssignedRoles, r1.ID)
	assert.Equal(t, []primitive.ObjectID{p1.ID}, roles.nodes[r1.ID].AssignedProcesses)
	assert.Equal(t, []primitive.ObjectID{p2.ID}, roles.nodes[r2.ID].AssignedProcesses)
	assert.Equal(t, []primitive.ObjectID{r2.ID}, p2.AssignedRoles)
	assert.Empty(t, depts.nodes[d1.ID].AssignedProcesses)
	assert.Equal(t, []primitive.ObjectID{p3.ID}, depts.nodes[d2.ID].AssignedProcesses)

	assert.Equal(t, 2, report.Added[models.StructureRoles])
	assert.Equal(t, 2, report.Removed[models.StructureRoles])
	assert.Equal(t, 1, report.Added[models.StructureDepartments])
	assert.Equal(t, 1, report.Removed[models.StructureDepartments])
	assert.Equal(t, 1, report.Tenants)

	again, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Total())
}

func TestReconcileDropsCrossTenantLinks(t *testing.T) {
	roles := &nodeStore{nodes: map[primitive.ObjectID]*structure.Node{}}
	depts := &nodeStore{nodes: map[primitive.ObjectID]*structure.Node{}}
	procs := &processStore{procs: map[primitive.ObjectID]*process.Process{}}

	p := &process.Process{ID: primitive.NewObjectID(), Creator: primitive.NewObjectID()}
	procs.procs[p.ID] = p
	foreign := newNode(primitive.NewObjectID(), p.ID)
	roles.nodes[foreign.ID] = foreign
	p.AssignedRoles = []primitive.ObjectID{foreign.ID}

	rec := NewReconciler(&structure.Repositories{Roles: roles, Departments: depts}, procs, newCountingLocker(), events.Nop{}, zap.NewNop(), &config.Config{})
	_, err := rec.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, foreign.AssignedProcesses)
	assert.Empty(t, p.AssignedRoles)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	rec := NewReconciler(&structure.Repositories{}, nil, newCountingLocker(), events.Nop{}, zap.NewNop(), &config.Config{ReconcileSchedule: "not a schedule"})
	assert.Error(t, rec.Start())

	off := NewReconciler(&structure.Repositories{}, nil, newCountingLocker(), events.Nop{}, zap.NewNop(), &config.Config{ReconcileSchedule: "off"})
	assert.NoError(t, off.Start())
	off.Stop()
}

func TestReconcileKeepsUnassignDuringScan(t *testing.T) {
	tenant := primitive.NewObjectID()
	p := &process.Process{ID: primitive.NewObjectID(), Creator: tenant}
	r := newNode(tenant, p.ID)
	p.AssignedRoles = []primitive.ObjectID{r.ID}

	roles := &nodeStore{nodes: map[primitive.ObjectID]*structure.Node{r.ID: r}}
	depts := &nodeStore{nodes: map[primitive.ObjectID]*structure.Node{}}
	procs := &processStore{procs: map[primitive.ObjectID]*process.Process{p.ID: p}}

	// the process snapshot is already taken when the unassignment lands
	roles.beforeScan = func() {
		r.AssignedProcesses = nil
		p.AssignedRoles = nil
	}

	locker := newCountingLocker()
	rec := NewReconciler(&structure.Repositories{Roles: roles, Departments: depts}, procs, locker, events.Nop{}, zap.NewNop(), &config.Config{})

	for pass := 1; pass <= 2; pass++ {
		report, err := rec.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, report.Total(), "pass %d", pass)
		assert.Empty(t, r.AssignedProcesses, "pass %d", pass)
		assert.Empty(t, p.AssignedRoles, "pass %d", pass)
	}

	assert.Equal(t, 1, locker.tenants[tenant])
	assert.Zero(t, locker.held)
}
