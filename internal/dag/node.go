package dag

import (
	"context"
	"sync"
	"time"
)

// NodeStatus is where a node is in its lifecycle
type NodeStatus int

const (
	StatusPending NodeStatus = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	// StatusCancelled means the node never ran
	StatusCancelled
)

var statusNames = [...]string{
	StatusPending:   "pending",
	StatusRunning:   "running",
	StatusCompleted: "completed",
	StatusFailed:    "failed",
	StatusCancelled: "cancelled",
}

func (s NodeStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText renders the status by name in JSON output
func (s NodeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Finished reports whether the status is terminal
func (s NodeStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// State is a copy of a node's progress. Zero times mean "not yet".
type State struct {
	Status   NodeStatus
	Err      error
	Started  time.Time
	Finished time.Time
}

// Duration is the time spent running, measured up to now while running
func (s State) Duration() time.Duration {
	switch {
	case s.Started.IsZero():
		return 0
	case s.Finished.IsZero():
		return time.Since(s.Started)
	default:
		return s.Finished.Sub(s.Started)
	}
}

// Node is one occurrence of a task in a plan
type Node struct {
	task Task

	mu    sync.RWMutex
	state State
}

func NewNode(task Task) *Node {
	return &Node{task: task}
}

func (n *Node) ID() string { return n.task.ID() }
func (n *Node) Task() Task { return n.task }

// Name is the task name, or the ID for unnamed tasks
func (n *Node) Name() string {
	if name := n.task.Name(); name != "" {
		return name
	}
	return n.task.ID()
}

func (n *Node) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Node) Status() NodeStatus {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state.Status
}

// Run executes the task once and records the outcome
func (n *Node) Run(ctx context.Context) error {
	n.mu.Lock()
	n.state = State{Status: StatusRunning, Started: time.Now()}
	n.mu.Unlock()

	err := n.task.Execute(ctx)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.Finished = time.Now()
	n.state.Err = err
	n.state.Status = StatusCompleted
	if err != nil {
		n.state.Status = StatusFailed
	}
	return err
}

// Cancel marks a node that has not started as cancelled with the given
// cause. It reports false if the node already started.
func (n *Node) Cancel(cause error) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state.Status != StatusPending {
		return false
	}
	n.state.Status = StatusCancelled
	n.state.Err = cause
	return true
}
