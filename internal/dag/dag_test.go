package dag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(id string) *Node {
	return NewNode(NewFuncTask(id, id, "", nil))
}

func TestDAG_AddNode(t *testing.T) {
	d := NewDAG()

	require.NoError(t, d.AddNode(newTestNode("a")))
	assert.Equal(t, 1, d.Size())

	err := d.AddNode(newTestNode("a"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.Error(t, d.AddNode(nil))
	assert.Error(t, d.AddNode(newTestNode("")))
}

func TestDAG_AddDependency(t *testing.T) {
	d := NewDAG()
	require.NoError(t, d.AddNode(newTestNode("a")))
	require.NoError(t, d.AddNode(newTestNode("b")))

	require.NoError(t, d.AddDependency("a", "b"))
	require.NoError(t, d.AddDependency("a", "b"), "duplicate edges are ignored")

	deps, err := d.GetDependencies("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deps)

	dependents, err := d.GetDependents("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, dependents)

	assert.Error(t, d.AddDependency("a", "a"))
	assert.Error(t, d.AddDependency("missing", "b"))
	assert.Error(t, d.AddDependency("a", "missing"))
}

func TestDAG_RootNodesFollowInsertionOrder(t *testing.T) {
	d := NewDAG()
	for _, id := range []string{"c", "a", "b", "d"} {
		require.NoError(t, d.AddNode(newTestNode(id)))
	}
	require.NoError(t, d.AddDependency("c", "d"))

	assert.Equal(t, []string{"c", "a", "b", "d"}, d.GetAllNodes())
	assert.Equal(t, []string{"c", "a", "b"}, d.GetRootNodes())
}

func TestDAG_TopologicalOrder(t *testing.T) {
	d := NewDAG()
	for _, id := range []string{"build", "clean", "compile"} {
		require.NoError(t, d.AddNode(newTestNode(id)))
	}
	require.NoError(t, d.AddDependency("clean", "compile"))
	require.NoError(t, d.AddDependency("compile", "build"))

	order, err := d.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"clean", "compile", "build"}, order)
}

func TestDAG_ValidateDetectsCycle(t *testing.T) {
	d := NewDAG()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.AddNode(newTestNode(id)))
	}
	require.NoError(t, d.AddDependency("a", "b"))
	require.NoError(t, d.AddDependency("b", "c"))
	require.NoError(t, d.AddDependency("c", "a"))

	err := d.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cycles")
}

func TestDAG_ReadyNodesAndCompletion(t *testing.T) {
	d := NewDAG()
	a, b := newTestNode("a"), newTestNode("b")
	require.NoError(t, d.AddNode(a))
	require.NoError(t, d.AddNode(b))
	require.NoError(t, d.AddDependency("a", "b"))

	assert.Equal(t, []string{"a"}, d.GetReadyNodes())
	assert.False(t, d.IsComplete())

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []string{"b"}, d.GetReadyNodes())

	require.NoError(t, b.Run(context.Background()))
	assert.True(t, d.IsComplete())
	assert.False(t, d.HasFailed())
}

func TestDAG_HasFailedCountsCancelled(t *testing.T) {
	d := NewDAG()
	a := newTestNode("a")
	require.NoError(t, d.AddNode(a))

	a.Cancel(context.Canceled)
	assert.True(t, d.HasFailed())
}
