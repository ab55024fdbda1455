package structure

import (
	"errors"
	"testing"

	"go-bpm/internal/common/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func chain(names ...string) (*Root, []Node) {
	tenant := primitive.NewObjectID()
	nodes := make([]Node, len(names))
	for i, name := range names {
		nodes[i] = Node{ID: primitive.NewObjectID(), Owner: tenant, Name: name}
	}
	for i := 0; i+1 < len(nodes); i++ {
		nodes[i].Children = []primitive.ObjectID{nodes[i+1].ID}
	}
	root := &Root{ID: primitive.NewObjectID(), Owner: tenant}
	if len(nodes) > 0 {
		root.TopLevelNodes = []primitive.ObjectID{nodes[0].ID}
	}
	return root, nodes
}

func TestBuildTreeNestsChain(t *testing.T) {
	root, nodes := chain("CEO", "VP", "Manager")

	tree, err := buildTree(RoleKind, root, nodes, 64)
	require.NoError(t, err)

	require.Len(t, tree.TopLevelNodes, 1)
	ceo := tree.TopLevelNodes[0]
	assert.Equal(t, "CEO", ceo.Name)
	require.Len(t, ceo.Children, 1)
	vp := ceo.Children[0]
	assert.Equal(t, "VP", vp.Name)
	require.Len(t, vp.Children, 1)
	assert.Equal(t, "Manager", vp.Children[0].Name)
	assert.Empty(t, vp.Children[0].Children)
	assert.NotNil(t, vp.Children[0].AssignedProcesses)
}

func TestBuildTreeKeepsChildOrder(t *testing.T) {
	tenant := primitive.NewObjectID()
	parent := Node{ID: primitive.NewObjectID(), Owner: tenant, Name: "Ops"}
	var nodes []Node
	for _, name := range []string{"c", "a", "b"} {
		n := Node{ID: primitive.NewObjectID(), Owner: tenant, Name: name}
		parent.Children = append(parent.Children, n.ID)
		nodes = append(nodes, n)
	}
	nodes = append(nodes, parent)
	root := &Root{ID: primitive.NewObjectID(), Owner: tenant, TopLevelNodes: []primitive.ObjectID{parent.ID}}

	tree, err := buildTree(DepartmentKind, root, nodes, 64)
	require.NoError(t, err)

	var got []string
	for _, c := range tree.TopLevelNodes[0].Children {
		got = append(got, c.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestBuildTreeSkipsDanglingIDs(t *testing.T) {
	root, nodes := chain("CEO")
	root.TopLevelNodes = append(root.TopLevelNodes, primitive.NewObjectID())
	nodes[0].Children = []primitive.ObjectID{primitive.NewObjectID()}

	tree, err := buildTree(RoleKind, root, nodes, 64)
	require.NoError(t, err)
	require.Len(t, tree.TopLevelNodes, 1)
	assert.Empty(t, tree.TopLevelNodes[0].Children)
}

func TestBuildTreeDepthLimit(t *testing.T) {
	root, nodes := chain("a", "b", "c", "d")

	_, err := buildTree(RoleKind, root, nodes, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Contains(t, err.Error(), "maximum depth of 3")

	_, err = buildTree(RoleKind, root, nodes, 4)
	assert.NoError(t, err)
}

func TestBuildTreeCycle(t *testing.T) {
	root, nodes := chain("a", "b", "c")
	nodes[2].Children = []primitive.ObjectID{nodes[0].ID}

	_, err := buildTree(RoleKind, root, nodes, 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuildTreeSharedChildIsNotACycle(t *testing.T) {
	tenant := primitive.NewObjectID()
	shared := Node{ID: primitive.NewObjectID(), Owner: tenant, Name: "shared"}
	a := Node{ID: primitive.NewObjectID(), Owner: tenant, Name: "a", Children: []primitive.ObjectID{shared.ID}}
	b := Node{ID: primitive.NewObjectID(), Owner: tenant, Name: "b", Children: []primitive.ObjectID{shared.ID}}
	root := &Root{ID: primitive.NewObjectID(), Owner: tenant, TopLevelNodes: []primitive.ObjectID{a.ID, b.ID}}

	tree, err := buildTree(RoleKind, root, []Node{shared, a, b}, 64)
	require.NoError(t, err)
	assert.Equal(t, "shared", tree.TopLevelNodes[1].Children[0].Name)
}
