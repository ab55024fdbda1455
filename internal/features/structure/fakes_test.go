package structure

import (
	"context"
	"slices"
	"sync"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/features/events"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memRepo struct {
	mu    sync.Mutex
	kind  Kind
	nodes map[primitive.ObjectID]*Node
	order []primitive.ObjectID
	roots map[primitive.ObjectID]*Root
}

func newMemRepo(kind Kind) *memRepo {
	return &memRepo{
		kind:  kind,
		nodes: map[primitive.ObjectID]*Node{},
		roots: map[primitive.ObjectID]*Root{},
	}
}

func (r *memRepo) CreateNode(_ context.Context, node *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	node.ID = primitive.NewObjectID()
	node.Children = []primitive.ObjectID{}
	node.AssignedProcesses = []primitive.ObjectID{}
	cp := *node
	r.nodes[node.ID] = &cp
	r.order = append(r.order, node.ID)
	return nil
}

func (r *memRepo) FindNode(_ context.Context, tenantID, id primitive.ObjectID) (*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok || n.Owner != tenantID {
		return nil, apperr.NotFound("%s not found", r.kind.Label)
	}
	cp := *n
	cp.Children = slices.Clone(n.Children)
	cp.AssignedProcesses = slices.Clone(n.AssignedProcesses)
	return &cp, nil
}

func (r *memRepo) collect(keep func(*Node) bool) []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Node
	for _, id := range r.order {
		n, ok := r.nodes[id]
		if ok && keep(n) {
			out = append(out, *n)
		}
	}
	return out
}

func (r *memRepo) FindNodesByOwner(_ context.Context, tenantID primitive.ObjectID) ([]Node, error) {
	return r.collect(func(n *Node) bool { return n.Owner == tenantID }), nil
}

func (r *memRepo) FindAllNodes(context.Context) ([]Node, error) {
	return r.collect(func(*Node) bool { return true }), nil
}

func (r *memRepo) CountNodes(_ context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if node, ok := r.nodes[id]; ok && node.Owner == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) RenameNode(_ context.Context, tenantID, id primitive.ObjectID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok || n.Owner != tenantID {
		return apperr.NotFound("%s not found", r.kind.Label)
	}
	n.Name = name
	return nil
}

func (r *memRepo) DeleteLeaf(_ context.Context, tenantID, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok || n.Owner != tenantID {
		return apperr.NotFound("%s not found", r.kind.Label)
	}
	if len(n.Children) > 0 {
		return apperr.Conflict("has children")
	}
	delete(r.nodes, id)
	return nil
}

func (r *memRepo) AppendChild(_ context.Context, tenantID, parentID, childID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[parentID]
	if !ok || n.Owner != tenantID {
		return apperr.NotFound("Parent %s not found", r.kind.Label)
	}
	n.Children = append(n.Children, childID)
	return nil
}

func (r *memRepo) PullChild(_ context.Context, childID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.nodes {
		n.Children = slices.DeleteFunc(n.Children, func(id primitive.ObjectID) bool { return id == childID })
	}
	return nil
}

func (r *memRepo) AddProcesses(_ context.Context, nodeIDs, processIDs []primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range nodeIDs {
		n, ok := r.nodes[id]
		if !ok {
			continue
		}
		for _, p := range processIDs {
			if !slices.Contains(n.AssignedProcesses, p) {
				n.AssignedProcesses = append(n.AssignedProcesses, p)
			}
		}
	}
	return nil
}

func (r *memRepo) PullProcesses(_ context.Context, nodeIDs, processIDs []primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.nodes {
		if nodeIDs != nil && !slices.Contains(nodeIDs, id) {
			continue
		}
		n.AssignedProcesses = slices.DeleteFunc(n.AssignedProcesses, func(p primitive.ObjectID) bool {
			return slices.Contains(processIDs, p)
		})
	}
	return nil
}

func (r *memRepo) FindRoot(_ context.Context, tenantID primitive.ObjectID) (*Root, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	root, ok := r.roots[tenantID]
	if !ok {
		return nil, apperr.NotFound("%s structure not found", r.kind.Label)
	}
	cp := *root
	cp.TopLevelNodes = slices.Clone(root.TopLevelNodes)
	return &cp, nil
}

func (r *memRepo) FindOrCreateRoot(_ context.Context, tenantID primitive.ObjectID) (*Root, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	root, ok := r.roots[tenantID]
	if !ok {
		root = &Root{ID: primitive.NewObjectID(), Owner: tenantID, TopLevelNodes: []primitive.ObjectID{}}
		r.roots[tenantID] = root
	}
	cp := *root
	return &cp, nil
}

func (r *memRepo) AppendTopLevel(_ context.Context, rootID, nodeID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, root := range r.roots {
		if root.ID == rootID {
			root.TopLevelNodes = append(root.TopLevelNodes, nodeID)
			return nil
		}
	}
	return apperr.NotFound("%s structure not found", r.kind.Label)
}

func (r *memRepo) PullTopLevel(_ context.Context, nodeID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, root := range r.roots {
		root.TopLevelNodes = slices.DeleteFunc(root.TopLevelNodes, func(id primitive.ObjectID) bool { return id == nodeID })
	}
	return nil
}

func (r *memRepo) EnsureIndexes(context.Context) error { return nil }

// memProcesses is the process side of the links: roles are multi-valued and
// the department is single-valued.
type memProcesses struct {
	mu         sync.Mutex
	creator    map[primitive.ObjectID]primitive.ObjectID
	roles      map[primitive.ObjectID][]primitive.ObjectID
	department map[primitive.ObjectID]primitive.ObjectID
}

func newMemProcesses() *memProcesses {
	return &memProcesses{
		creator:    map[primitive.ObjectID]primitive.ObjectID{},
		roles:      map[primitive.ObjectID][]primitive.ObjectID{},
		department: map[primitive.ObjectID]primitive.ObjectID{},
	}
}

func (p *memProcesses) add(tenantID primitive.ObjectID) primitive.ObjectID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := primitive.NewObjectID()
	p.creator[id] = tenantID
	return id
}

func (p *memProcesses) CountOwned(_ context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int64
	for _, id := range ids {
		if p.creator[id] == tenantID {
			n++
		}
	}
	return n, nil
}

func (p *memProcesses) Link(_ context.Context, kind models.StructureKind, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	displaced := map[primitive.ObjectID][]primitive.ObjectID{}
	for _, id := range processIDs {
		if kind == models.StructureRoles {
			if !slices.Contains(p.roles[id], nodeID) {
				p.roles[id] = append(p.roles[id], nodeID)
			}
			continue
		}
		if prev, ok := p.department[id]; ok && prev != nodeID {
			displaced[prev] = append(displaced[prev], id)
		}
		p.department[id] = nodeID
	}
	return displaced, nil
}

func (p *memProcesses) Unlink(_ context.Context, kind models.StructureKind, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.creator {
		if processIDs != nil && !slices.Contains(processIDs, id) {
			continue
		}
		if kind == models.StructureRoles {
			p.roles[id] = slices.DeleteFunc(p.roles[id], func(n primitive.ObjectID) bool { return n == nodeID })
			continue
		}
		if p.department[id] == nodeID {
			delete(p.department, id)
		}
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	types  []string
}

func (r *recordingPublisher) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
}
