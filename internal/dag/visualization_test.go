package dag

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planDAG(t *testing.T) *DAG {
	return buildDAG(t, map[string]func(ctx context.Context) error{
		"style": func(ctx context.Context) error { return errors.New("bad scss") },
	}, []string{"clean", "style", "script", "page"}, [][2]string{
		{"clean", "style"}, {"clean", "script"}, {"style", "page"}, {"script", "page"},
	})
}

func TestVisualization_Levels(t *testing.T) {
	levels, err := NewDAGVisualization(planDAG(t)).Levels()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"clean"}, {"style", "script"}, {"page"}}, levels)
}

func TestVisualization_GenerateDAGInfo(t *testing.T) {
	d := planDAG(t)
	_, err := NewExecutor(d, nil).Execute(context.Background())
	require.NoError(t, err)

	info, err := NewDAGVisualization(d).GenerateDAGInfo()
	require.NoError(t, err)

	assert.Len(t, info.Nodes, 4)
	assert.Len(t, info.Edges, 4)
	assert.Equal(t, 4, info.Stats.TotalNodes)
	assert.Equal(t, 2, info.Stats.CompletedNodes)
	assert.Equal(t, 1, info.Stats.FailedNodes)
	assert.Equal(t, 1, info.Stats.CancelledNodes)

	for _, node := range info.Nodes {
		if node.ID == "style" {
			assert.Equal(t, "bad scss", node.Error)
			assert.Equal(t, 1, node.Level)
		}
	}
}

func TestVisualization_GenerateJSON(t *testing.T) {
	data, err := NewDAGVisualization(planDAG(t)).GenerateJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "nodes")
	assert.Contains(t, string(data), `"status": "pending"`)
}

func TestVisualization_GenerateDOTGraph(t *testing.T) {
	dot, err := NewDAGVisualization(planDAG(t)).GenerateDOTGraph("build")
	require.NoError(t, err)

	assert.Contains(t, dot, "digraph Plan {")
	assert.Contains(t, dot, `label="build";`)
	assert.Contains(t, dot, `"clean" -> "style";`)
	assert.Contains(t, dot, `fillcolor="lightgrey"`)
}

func TestVisualization_GenerateTextSummary(t *testing.T) {
	summary, err := NewDAGVisualization(planDAG(t)).GenerateTextSummary()
	require.NoError(t, err)

	assert.Contains(t, summary, "Step 1:\n  - clean [pending]\n")
	assert.Contains(t, summary, "Step 3:\n  - page [pending]\n")
	assert.Contains(t, summary, "Total: 4")
}
