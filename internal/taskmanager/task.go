package taskmanager

import "context"

// Action is the work performed by a leaf task. It is opaque to the registry.
type Action func(ctx context.Context) error

// Mode distinguishes leaf tasks from the two composite kinds
type Mode int

const (
	// ModeLeaf runs an Action
	ModeLeaf Mode = iota
	// ModeParallel starts all children together
	ModeParallel
	// ModeSequential starts each child after the previous one completed
	ModeSequential
)

// String returns a string representation of the Mode
func (m Mode) String() string {
	switch m {
	case ModeLeaf:
		return "task"
	case ModeParallel:
		return "parallel"
	case ModeSequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// MarshalText renders the mode by name in JSON output
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Definition is a named node of the task graph
type Definition struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Mode        Mode     `json:"mode"`
	Children    []string `json:"children,omitempty"`
	Action      Action   `json:"-"`
}

// IsComposite reports whether the definition combines other tasks
func (d *Definition) IsComposite() bool {
	return d.Mode != ModeLeaf
}
