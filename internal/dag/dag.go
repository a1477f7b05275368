package dag

import (
	"fmt"
	"sync"
)

type vertex struct {
	node       *Node
	deps       []string // must complete first
	dependents []string // wait for this vertex
}

// DAG is a dependency graph of nodes. Iteration follows insertion order so
// plans print and run the same way every time.
type DAG struct {
	mu       sync.RWMutex
	vertices map[string]*vertex
	order    []string
}

func NewDAG() *DAG {
	return &DAG{vertices: make(map[string]*vertex)}
}

// AddNode inserts a node. IDs must be unique.
func (d *DAG) AddNode(node *Node) error {
	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}
	id := node.ID()
	if id == "" {
		return fmt.Errorf("node ID cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.vertices[id]; ok {
		return fmt.Errorf("node with ID %s already exists", id)
	}
	d.vertices[id] = &vertex{node: node}
	d.order = append(d.order, id)
	return nil
}

// AddDependency adds the edge from -> to: to starts only after from
// completed. Repeated edges are ignored.
func (d *DAG) AddDependency(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("node %s cannot depend on itself", fromID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	from, ok := d.vertices[fromID]
	if !ok {
		return fmt.Errorf("source node %s does not exist", fromID)
	}
	to, ok := d.vertices[toID]
	if !ok {
		return fmt.Errorf("target node %s does not exist", toID)
	}
	if contains(from.dependents, toID) {
		return nil
	}
	from.dependents = append(from.dependents, toID)
	to.deps = append(to.deps, fromID)
	return nil
}

func (d *DAG) lookup(id string) (*vertex, error) {
	v, ok := d.vertices[id]
	if !ok {
		return nil, fmt.Errorf("node %s not found", id)
	}
	return v, nil
}

func (d *DAG) GetNode(id string) (*Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	return v.node, nil
}

// GetDependencies lists the nodes id waits for
func (d *DAG) GetDependencies(id string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.deps...), nil
}

// GetDependents lists the nodes waiting for id
func (d *DAG) GetDependents(id string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.dependents...), nil
}

// GetAllNodes returns every node ID in insertion order
func (d *DAG) GetAllNodes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

func (d *DAG) GetRootNodes() []string {
	return d.filter(func(v *vertex) bool { return len(v.deps) == 0 })
}

// GetReadyNodes returns pending nodes whose dependencies all completed
func (d *DAG) GetReadyNodes() []string {
	return d.filter(func(v *vertex) bool {
		if v.node.Status() != StatusPending {
			return false
		}
		for _, dep := range v.deps {
			if d.vertices[dep].node.Status() != StatusCompleted {
				return false
			}
		}
		return true
	})
}

func (d *DAG) filter(keep func(v *vertex) bool) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []string
	for _, id := range d.order {
		if keep(d.vertices[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Validate fails if the graph has a cycle
func (d *DAG) Validate() error {
	_, err := d.TopologicalOrder()
	return err
}

// TopologicalOrder returns the node IDs with every node after its
// dependencies. Ties keep insertion order.
func (d *DAG) TopologicalOrder() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	waiting := make(map[string]int, len(d.vertices))
	var queue []string
	for _, id := range d.order {
		waiting[id] = len(d.vertices[id].deps)
		if waiting[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(d.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		for _, next := range d.vertices[id].dependents {
			if waiting[next]--; waiting[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(sorted) != len(d.order) {
		return nil, fmt.Errorf("DAG contains cycles")
	}
	return sorted, nil
}

func (d *DAG) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// IsComplete reports whether every node completed successfully
func (d *DAG) IsComplete() bool {
	return len(d.filter(func(v *vertex) bool {
		return v.node.Status() != StatusCompleted
	})) == 0
}

// HasFailed reports whether any node failed or was cancelled
func (d *DAG) HasFailed() bool {
	return len(d.filter(func(v *vertex) bool {
		s := v.node.Status()
		return s == StatusFailed || s == StatusCancelled
	})) > 0
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
