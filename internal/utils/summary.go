package utils

import (
	"sort"
	"strings"
	"time"

	"github.com/maxkimambo/sitebuild/internal/dag"
	"github.com/maxkimambo/sitebuild/internal/taskmanager"
)

// Node outcomes as shown in the run summary
const (
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusPending = "pending"
)

// NodeStatus classifies one node result
func NodeStatus(result *dag.NodeResult) string {
	switch {
	case result.Success:
		return StatusDone
	case result.Cancelled:
		return StatusSkipped
	case result.Error != nil:
		return StatusFailed
	default:
		return StatusPending
	}
}

// RunSummary renders one row per task run, in start order. Tasks that never
// started come last.
func RunSummary(result *dag.ExecutionResult) string {
	nodes := make([]*dag.NodeResult, 0, len(result.NodeResults))
	for _, node := range result.NodeResults {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		switch {
		case a.StartTime != nil && b.StartTime != nil && !a.StartTime.Equal(*b.StartTime):
			return a.StartTime.Before(*b.StartTime)
		case (a.StartTime == nil) != (b.StartTime == nil):
			return a.StartTime != nil
		}
		return a.NodeID < b.NodeID
	})

	table := NewTable("Task", "Status", "Time")
	for _, node := range nodes {
		elapsed := "-"
		if node.StartTime != nil {
			elapsed = node.Duration.Round(time.Millisecond).String()
		}
		table.AddRow(node.NodeID, NodeStatus(node), elapsed)
	}
	return table.String()
}

// TaskList renders the registered tasks with what each one runs
func TaskList(defs []*taskmanager.Definition) string {
	table := NewTable("Task", "Kind", "Runs", "Description")
	for _, def := range defs {
		runs := "-"
		if def.IsComposite() {
			runs = strings.Join(def.Children, ", ")
		}
		table.AddRow(def.Name, def.Mode.String(), runs, def.Description)
	}
	return table.String()
}
