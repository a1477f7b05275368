package taskmanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/maxkimambo/sitebuild/internal/dag"
	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/logger"
)

// Registry holds the named task graph. Composites may only reference names
// that are already defined, so the graph is acyclic by construction.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
	order       []string
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]*Definition),
	}
}

// Define registers a leaf task
func (r *Registry) Define(name, description string, action Action) error {
	if action == nil {
		return builderrors.NewInvalidOptionError("action", name, "a leaf task needs an action")
	}
	return r.add(&Definition{
		Name:        name,
		Description: description,
		Mode:        ModeLeaf,
		Action:      action,
	})
}

// ComposeParallel registers a composite whose children all start together
func (r *Registry) ComposeParallel(name, description string, children ...string) error {
	return r.compose(name, description, ModeParallel, children)
}

// ComposeSequential registers a composite whose children run one after another
func (r *Registry) ComposeSequential(name, description string, children ...string) error {
	return r.compose(name, description, ModeSequential, children)
}

func (r *Registry) compose(name, description string, mode Mode, children []string) error {
	if len(children) == 0 {
		return builderrors.NewEmptyCompositeError(name)
	}

	r.mu.RLock()
	for _, child := range children {
		if _, exists := r.definitions[child]; !exists {
			r.mu.RUnlock()
			return builderrors.NewUndefinedTaskError(child, name)
		}
	}
	r.mu.RUnlock()

	return r.add(&Definition{
		Name:        name,
		Description: description,
		Mode:        mode,
		Children:    append([]string(nil), children...),
	})
}

func (r *Registry) add(def *Definition) error {
	if def.Name == "" {
		return builderrors.NewInvalidOptionError("task name", def.Name, "must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Name]; exists {
		return builderrors.NewDuplicateTaskError(def.Name)
	}

	r.definitions[def.Name] = def
	r.order = append(r.order, def.Name)
	logger.Op.WithFields(map[string]interface{}{
		"task":     def.Name,
		"mode":     def.Mode.String(),
		"children": def.Children,
	}).Debug("Registered task")
	return nil
}

// Names returns all task names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Describe returns a copy of the named definition
func (r *Registry) Describe(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[name]
	if !exists {
		return nil, builderrors.NewUndefinedTaskError(name, "")
	}

	copied := *def
	copied.Children = append([]string(nil), def.Children...)
	return &copied, nil
}

// Leaves returns the distinct leaf task names reachable from name, in first-run order
func (r *Registry) Leaves(name string) ([]string, error) {
	plan, err := r.Plan(name)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var leaves []string
	for _, id := range plan.GetAllNodes() {
		node, err := plan.GetNode(id)
		if err != nil {
			continue
		}
		leaf := node.Name()
		if !seen[leaf] {
			seen[leaf] = true
			leaves = append(leaves, leaf)
		}
	}
	return leaves, nil
}

// Run compiles the named task into a fresh plan and executes it. The
// returned error is non-nil when the task cannot be planned or any leaf
// in the plan failed.
func (r *Registry) Run(ctx context.Context, name string, config *dag.ExecutorConfig) (*dag.ExecutionResult, error) {
	plan, err := r.Plan(name)
	if err != nil {
		return nil, err
	}

	logger.Op.WithFields(map[string]interface{}{
		"task":  name,
		"nodes": plan.Size(),
	}).Debug("Running task plan")

	executor := dag.NewExecutor(plan, config)
	result, err := executor.Execute(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to run %s: %w", name, err)
	}
	if !result.Success {
		return result, result.Error
	}
	return result, nil
}
