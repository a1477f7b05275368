package taskmanager

import (
	"fmt"

	"github.com/maxkimambo/sitebuild/internal/dag"
	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
)

// planBuilder expands a composite tree into a DAG of leaf occurrences.
// A leaf that appears more than once gets one node per occurrence.
type planBuilder struct {
	registry    *Registry
	graph       *dag.DAG
	occurrences map[string]int
}

// Plan compiles the named task into an executable DAG
func (r *Registry) Plan(name string) (*dag.DAG, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.definitions[name]; !exists {
		return nil, builderrors.NewUndefinedTaskError(name, "")
	}

	b := &planBuilder{
		registry:    r,
		graph:       dag.NewDAG(),
		occurrences: make(map[string]int),
	}
	if _, _, err := b.expand(name); err != nil {
		return nil, err
	}
	if err := b.graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan for %s: %w", name, err)
	}
	return b.graph, nil
}

// expand adds the subtree of name and returns its entry and exit nodes
func (b *planBuilder) expand(name string) (sources, sinks []string, err error) {
	def := b.registry.definitions[name]
	if def == nil {
		return nil, nil, builderrors.NewUndefinedTaskError(name, "")
	}

	switch def.Mode {
	case ModeLeaf:
		id := b.nodeID(name)
		task := dag.NewFuncTask(id, def.Name, def.Description, def.Action)
		if err := b.graph.AddNode(dag.NewNode(task)); err != nil {
			return nil, nil, err
		}
		return []string{id}, []string{id}, nil

	case ModeParallel:
		for _, child := range def.Children {
			childSources, childSinks, err := b.expand(child)
			if err != nil {
				return nil, nil, err
			}
			sources = append(sources, childSources...)
			sinks = append(sinks, childSinks...)
		}
		return sources, sinks, nil

	case ModeSequential:
		var previous []string
		for i, child := range def.Children {
			childSources, childSinks, err := b.expand(child)
			if err != nil {
				return nil, nil, err
			}
			if i == 0 {
				sources = childSources
			}
			for _, from := range previous {
				for _, to := range childSources {
					if err := b.graph.AddDependency(from, to); err != nil {
						return nil, nil, err
					}
				}
			}
			previous = childSinks
		}
		return sources, previous, nil
	}

	return nil, nil, fmt.Errorf("task %s has unknown mode %d", name, def.Mode)
}

func (b *planBuilder) nodeID(name string) string {
	b.occurrences[name]++
	if n := b.occurrences[name]; n > 1 {
		return fmt.Sprintf("%s#%d", name, n)
	}
	return name
}
