package dag

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DAGVisualization renders a plan, with execution state once it has run
type DAGVisualization struct {
	dag *DAG
}

func NewDAGVisualization(dag *DAG) *DAGVisualization {
	return &DAGVisualization{dag: dag}
}

// NodeInfo is one node as rendered
type NodeInfo struct {
	ID          string     `json:"id"`
	Task        string     `json:"task"`
	Description string     `json:"description,omitempty"`
	Status      NodeStatus `json:"status"`
	Level       int        `json:"level"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type EdgeInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type DAGInfo struct {
	Nodes []NodeInfo `json:"nodes"`
	Edges []EdgeInfo `json:"edges"`
	Stats DAGStats   `json:"stats"`
}

// DAGStats counts nodes by status and spans the whole run
type DAGStats struct {
	TotalNodes     int        `json:"totalNodes"`
	CompletedNodes int        `json:"completedNodes"`
	FailedNodes    int        `json:"failedNodes"`
	CancelledNodes int        `json:"cancelledNodes"`
	RunningNodes   int        `json:"runningNodes"`
	PendingNodes   int        `json:"pendingNodes"`
	TotalDuration  string     `json:"totalDuration,omitempty"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	EndTime        *time.Time `json:"endTime,omitempty"`
}

func (s *DAGStats) count(status NodeStatus) {
	s.TotalNodes++
	switch status {
	case StatusCompleted:
		s.CompletedNodes++
	case StatusFailed:
		s.FailedNodes++
	case StatusCancelled:
		s.CancelledNodes++
	case StatusRunning:
		s.RunningNodes++
	default:
		s.PendingNodes++
	}
}

func (s *DAGStats) span(state State) {
	if started := state.Started; !started.IsZero() && (s.StartTime == nil || started.Before(*s.StartTime)) {
		s.StartTime = &started
	}
	if finished := state.Finished; !finished.IsZero() && (s.EndTime == nil || finished.After(*s.EndTime)) {
		s.EndTime = &finished
	}
	if s.StartTime != nil && s.EndTime != nil {
		s.TotalDuration = s.EndTime.Sub(*s.StartTime).Round(time.Millisecond).String()
	}
}

// Levels groups node IDs by depth. Roots are level 0; any other node is
// one below its deepest dependency.
func (v *DAGVisualization) Levels() ([][]string, error) {
	order, err := v.dag.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(order))
	var levels [][]string
	for _, id := range order {
		deps, _ := v.dag.GetDependencies(id)
		level := 0
		for _, dep := range deps {
			level = max(level, depth[dep]+1)
		}
		depth[id] = level
		if level == len(levels) {
			levels = append(levels, nil)
		}
		levels[level] = append(levels[level], id)
	}
	return levels, nil
}

func (v *DAGVisualization) GenerateDAGInfo() (*DAGInfo, error) {
	levels, err := v.Levels()
	if err != nil {
		return nil, err
	}

	info := &DAGInfo{Edges: []EdgeInfo{}}
	for level, ids := range levels {
		for _, id := range ids {
			node, err := v.dag.GetNode(id)
			if err != nil {
				continue
			}
			info.Nodes = append(info.Nodes, describe(node, level))
			info.Stats.count(node.Status())
			info.Stats.span(node.State())
		}
	}

	for _, id := range v.dag.GetAllNodes() {
		dependents, _ := v.dag.GetDependents(id)
		for _, to := range dependents {
			info.Edges = append(info.Edges, EdgeInfo{From: id, To: to})
		}
	}
	return info, nil
}

func describe(node *Node, level int) NodeInfo {
	state := node.State()
	info := NodeInfo{
		ID:          node.ID(),
		Task:        node.Name(),
		Description: node.Task().Description(),
		Status:      state.Status,
		Level:       level,
	}
	if !state.Started.IsZero() {
		info.StartTime = &state.Started
		info.Duration = state.Duration().Round(time.Millisecond).String()
		if state.Finished.IsZero() {
			info.Duration += " (running)"
		} else {
			info.EndTime = &state.Finished
		}
	}
	if state.Err != nil && (state.Status == StatusFailed || state.Status == StatusCancelled) {
		info.Error = state.Err.Error()
	}
	return info
}

// GenerateJSON renders the DAG info as indented JSON
func (v *DAGVisualization) GenerateJSON() ([]byte, error) {
	info, err := v.GenerateDAGInfo()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(info, "", "  ")
}

var dotFill = map[NodeStatus]string{
	StatusRunning:   "lightblue",
	StatusCompleted: "lightgreen",
	StatusFailed:    "salmon",
	StatusCancelled: "orange",
}

// GenerateDOTGraph renders the plan in Graphviz DOT, coloured by status
func (v *DAGVisualization) GenerateDOTGraph(title string) (string, error) {
	info, err := v.GenerateDAGInfo()
	if err != nil {
		return "", err
	}

	lines := []string{
		"digraph Plan {",
		"  rankdir=LR;",
		"  node [shape=box, style=filled];",
	}
	if title != "" {
		lines = append(lines, fmt.Sprintf("  label=%q;", title), `  labelloc="t";`)
	}
	lines = append(lines, "")

	for _, node := range info.Nodes {
		label := node.Task
		if node.Duration != "" {
			label += `\n` + node.Duration
		}
		fill, ok := dotFill[node.Status]
		if !ok {
			fill = "lightgrey"
		}
		lines = append(lines, fmt.Sprintf(`  %q [label="%s", fillcolor="%s"];`, node.ID, label, fill))
	}
	if len(info.Edges) > 0 {
		lines = append(lines, "")
	}
	for _, edge := range info.Edges {
		lines = append(lines, fmt.Sprintf("  %q -> %q;", edge.From, edge.To))
	}
	lines = append(lines, "}")

	return strings.Join(lines, "\n") + "\n", nil
}

// GenerateTextSummary lists the plan step by step with each node's state
func (v *DAGVisualization) GenerateTextSummary() (string, error) {
	info, err := v.GenerateDAGInfo()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	step := -1
	for _, node := range info.Nodes {
		if node.Level != step {
			step = node.Level
			fmt.Fprintf(&b, "Step %d:\n", step+1)
		}
		fmt.Fprintf(&b, "  - %s [%s]", node.Task, node.Status)
		if node.Duration != "" {
			b.WriteString(" " + node.Duration)
		}
		if node.Error != "" {
			b.WriteString(" - " + node.Error)
		}
		b.WriteByte('\n')
	}

	s := info.Stats
	fmt.Fprintf(&b, "\nTotal: %d, Completed: %d, Failed: %d, Cancelled: %d, Pending: %d\n",
		s.TotalNodes, s.CompletedNodes, s.FailedNodes, s.CancelledNodes, s.PendingNodes)
	if s.TotalDuration != "" {
		fmt.Fprintf(&b, "Duration: %s\n", s.TotalDuration)
	}
	return b.String(), nil
}
