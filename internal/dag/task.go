package dag

import "context"

// Task is the work behind a node. ID is unique within a plan; Name is the
// registered task name and repeats when a task occurs more than once.
type Task interface {
	Execute(ctx context.Context) error
	ID() string
	Name() string
	Description() string
}

// FuncTask adapts a function to Task
type FuncTask struct {
	id          string
	name        string
	description string
	fn          func(ctx context.Context) error
}

// NewFuncTask returns a task that calls fn. A nil fn does nothing.
func NewFuncTask(id, name, description string, fn func(ctx context.Context) error) *FuncTask {
	return &FuncTask{id: id, name: name, description: description, fn: fn}
}

func (t *FuncTask) ID() string          { return t.id }
func (t *FuncTask) Name() string        { return t.name }
func (t *FuncTask) Description() string { return t.description }

func (t *FuncTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}
