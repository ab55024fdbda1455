package structure

import (
	"go-bpm/internal/common/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// buildTree materializes root from an in-memory adjacency map of the tenant's
// nodes. Child order follows insertion order. Ids that do not resolve are
// skipped. A path longer than maxDepth or a node that is its own ancestor
// fails the whole read.
func buildTree(kind Kind, root *Root, nodes []Node, maxDepth int) (*Tree, error) {
	byID := make(map[primitive.ObjectID]*Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	b := &treeBuilder{
		kind:      kind,
		byID:      byID,
		maxDepth:  maxDepth,
		ancestors: make(map[primitive.ObjectID]bool),
	}

	tree := &Tree{
		ID:            root.ID,
		Owner:         root.Owner,
		TopLevelNodes: make([]*TreeNode, 0, len(root.TopLevelNodes)),
	}
	for _, id := range root.TopLevelNodes {
		tn, err := b.build(id, 1)
		if err != nil {
			return nil, err
		}
		if tn != nil {
			tree.TopLevelNodes = append(tree.TopLevelNodes, tn)
		}
	}
	return tree, nil
}

type treeBuilder struct {
	kind      Kind
	byID      map[primitive.ObjectID]*Node
	maxDepth  int
	ancestors map[primitive.ObjectID]bool
}

func (b *treeBuilder) build(id primitive.ObjectID, depth int) (*TreeNode, error) {
	node, ok := b.byID[id]
	if !ok {
		return nil, nil
	}
	if depth > b.maxDepth {
		return nil, apperr.Conflict("%s structure exceeds the maximum depth of %d", b.kind.Label, b.maxDepth)
	}
	if b.ancestors[id] {
		return nil, apperr.Conflict("%s structure contains a cycle at %s", b.kind.Label, id.Hex())
	}

	b.ancestors[id] = true
	defer delete(b.ancestors, id)

	assigned := node.AssignedProcesses
	if assigned == nil {
		assigned = []primitive.ObjectID{}
	}
	tn := &TreeNode{
		ID:                node.ID,
		Name:              node.Name,
		AssignedProcesses: assigned,
		Children:          make([]*TreeNode, 0, len(node.Children)),
	}
	for _, childID := range node.Children {
		child, err := b.build(childID, depth+1)
		if err != nil {
			return nil, err
		}
		if child != nil {
			tn.Children = append(tn.Children, child)
		}
	}
	return tn, nil
}
