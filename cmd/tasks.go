package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/sitebuild/internal/dag"
	"github.com/maxkimambo/sitebuild/internal/taskmanager"
	"github.com/maxkimambo/sitebuild/internal/utils"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks [task]",
		Short: "List the tasks, or show the execution plan of one",
		Long: `Without arguments, list every registered task and what it runs.
With a task name, print the order its leaf tasks run in. Use --json for a
machine-readable plan, or --dot for a Graphviz rendering.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTasks,
	}
	cmd.Flags().Bool("dot", false, "Print the plan as a Graphviz DOT graph")
	return cmd
}

func runTasks(cmd *cobra.Command, args []string) error {
	s, err := createSite(cmd)
	if err != nil {
		return err
	}
	registry := s.Registry()
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		defs := make([]*taskmanager.Definition, 0)
		for _, name := range registry.Names() {
			def, err := registry.Describe(name)
			if err != nil {
				return err
			}
			defs = append(defs, def)
		}
		if asJSON {
			data, err := json.MarshalIndent(defs, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		}
		_, err := fmt.Fprint(out, utils.TaskList(defs))
		return err
	}

	plan, err := registry.Plan(args[0])
	if err != nil {
		return err
	}
	viz := dag.NewDAGVisualization(plan)

	var rendered string
	switch dot, _ := cmd.Flags().GetBool("dot"); {
	case dot:
		rendered, err = viz.GenerateDOTGraph(args[0])
	case asJSON:
		var data []byte
		data, err = viz.GenerateJSON()
		rendered = string(data)
	default:
		rendered, err = viz.GenerateTextSummary()
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, rendered)
	return err
}
