package dag

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxkimambo/sitebuild/internal/logger"
)

// ExecutorConfig tunes an Executor
type ExecutorConfig struct {
	// MaxParallelTasks bounds how many tasks run at once
	MaxParallelTasks int

	// TaskTimeout bounds each task; zero means no limit, which servers need
	TaskTimeout time.Duration

	// ProgressInterval is how often progress is logged; zero disables it
	ProgressInterval time.Duration

	Observer Observer
}

// Observer receives task lifecycle notifications, e.g. for metrics
type Observer interface {
	TaskStarted(name string)
	TaskFinished(name string, duration time.Duration, err error)
}

func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxParallelTasks: 10,
		ProgressInterval: 5 * time.Second,
	}
}

// ExecutionResult is the outcome of one run of a DAG
type ExecutionResult struct {
	Success       bool
	NodeResults   map[string]*NodeResult
	ExecutionTime time.Duration

	// Error is the first failure in plan order, or the first cancellation
	// when nothing failed
	Error error
}

// NodeResult is the outcome of one node. Nodes that never started have nil
// times.
type NodeResult struct {
	NodeID    string
	Name      string
	Success   bool
	Cancelled bool
	Error     error
	StartTime *time.Time
	EndTime   *time.Time
	Duration  time.Duration
}

// FailedNodes returns the sorted IDs of nodes that ran and failed
func (r *ExecutionResult) FailedNodes() []string {
	var failed []string
	for id, result := range r.NodeResults {
		if result.Error != nil && !result.Cancelled {
			failed = append(failed, id)
		}
	}
	sort.Strings(failed)
	return failed
}

// ResultsFor returns the results of every node running the named task
func (r *ExecutionResult) ResultsFor(name string) []*NodeResult {
	var results []*NodeResult
	for _, result := range r.NodeResults {
		if result.Name == name {
			results = append(results, result)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].NodeID < results[j].NodeID })
	return results
}

// completion is sent by a worker when its node is done or was never started
type completion struct {
	id        string
	start     time.Time
	err       error
	cancelled bool
}

// Executor runs a DAG. Nodes start as soon as all their dependencies
// succeeded, at most MaxParallelTasks at a time. A failure cancels the
// failed node's transitive dependents and nothing else.
type Executor struct {
	dag    *DAG
	config *ExecutorConfig
	slots  chan struct{}

	mu      sync.RWMutex
	results map[string]*NodeResult
	cancel  context.CancelFunc
	started time.Time
	running atomic.Bool
}

func NewExecutor(dag *DAG, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	if config.MaxParallelTasks <= 0 {
		config.MaxParallelTasks = 1
	}
	return &Executor{
		dag:     dag,
		config:  config,
		slots:   make(chan struct{}, config.MaxParallelTasks),
		results: make(map[string]*NodeResult),
	}
}

// Execute runs the DAG to completion. Task failures are reported in the
// result; the returned error means the DAG could not run at all.
func (e *Executor) Execute(ctx context.Context) (*ExecutionResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.cancel = cancel
	e.started = time.Now()
	for _, id := range e.dag.GetAllNodes() {
		result := &NodeResult{NodeID: id}
		if node, err := e.dag.GetNode(id); err == nil {
			result.Name = node.Name()
		}
		e.results[id] = result
	}
	e.mu.Unlock()

	if err := e.dag.Validate(); err != nil {
		return e.buildResult(), fmt.Errorf("invalid DAG: %w", err)
	}
	roots := e.dag.GetRootNodes()
	if len(roots) == 0 {
		return e.buildResult(), fmt.Errorf("no root nodes found in DAG")
	}

	logger.Op.WithFields(map[string]interface{}{
		"tasks":        e.dag.Size(),
		"max_parallel": e.config.MaxParallelTasks,
	}).Debug("Starting plan execution")

	e.running.Store(true)
	defer e.running.Store(false)

	stopProgress := make(chan struct{})
	defer close(stopProgress)
	if e.config.ProgressInterval > 0 {
		go e.logProgress(stopProgress)
	}

	e.coordinate(ctx, roots)
	return e.buildResult(), nil
}

// coordinate owns the scheduling state. Workers only report back over done.
func (e *Executor) coordinate(ctx context.Context, roots []string) {
	waiting := make(map[string]int)
	for _, id := range e.dag.GetAllNodes() {
		deps, _ := e.dag.GetDependencies(id)
		waiting[id] = len(deps)
	}
	skipped := make(map[string]bool)

	done := make(chan completion)
	inflight := 0
	launch := func(id string) {
		inflight++
		go e.work(ctx, id, done)
	}
	for _, id := range roots {
		launch(id)
	}

	for inflight > 0 {
		c := <-done
		inflight--
		e.record(c)

		dependents, _ := e.dag.GetDependents(c.id)
		if c.err != nil {
			e.skip(c.id, dependents, skipped)
			continue
		}
		for _, next := range dependents {
			waiting[next]--
			if waiting[next] == 0 && !skipped[next] {
				launch(next)
			}
		}
	}
}

// skip cancels every transitive dependent of a node that did not complete
func (e *Executor) skip(from string, dependents []string, skipped map[string]bool) {
	for _, id := range dependents {
		if skipped[id] {
			continue
		}
		skipped[id] = true
		e.record(completion{
			id:        id,
			err:       fmt.Errorf("cancelled: predecessor %s did not complete", from),
			cancelled: true,
		})
		next, _ := e.dag.GetDependents(id)
		e.skip(id, next, skipped)
	}
}

func (e *Executor) work(ctx context.Context, id string, done chan<- completion) {
	select {
	case e.slots <- struct{}{}:
		defer func() { <-e.slots }()
	case <-ctx.Done():
		done <- completion{id: id, err: ctx.Err(), cancelled: true}
		return
	}
	if err := ctx.Err(); err != nil {
		done <- completion{id: id, err: err, cancelled: true}
		return
	}

	node, err := e.dag.GetNode(id)
	if err != nil {
		done <- completion{id: id, start: time.Now(), err: err}
		return
	}

	if e.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.TaskTimeout)
		defer cancel()
	}

	name := node.Name()
	start := time.Now()
	e.mu.Lock()
	e.results[id].StartTime = &start
	e.mu.Unlock()

	if e.config.Observer != nil {
		e.config.Observer.TaskStarted(name)
	}
	logger.User.Startingf("Starting '%s'", name)

	err = node.Run(ctx)

	elapsed := time.Since(start)
	if e.config.Observer != nil {
		e.config.Observer.TaskFinished(name, elapsed, err)
	}
	if err != nil {
		logger.User.Errorf("'%s' failed after %v", name, elapsed.Round(time.Millisecond))
		logger.Op.WithFields(map[string]interface{}{
			"task":  name,
			"node":  id,
			"error": err.Error(),
		}).Debug("Task failed")
	} else {
		logger.User.Successf("Finished '%s' after %v", name, elapsed.Round(time.Millisecond))
	}

	done <- completion{id: id, start: start, err: err}
}

func (e *Executor) record(c completion) {
	if c.cancelled {
		if node, err := e.dag.GetNode(c.id); err == nil {
			node.Cancel(c.err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result, ok := e.results[c.id]
	if !ok {
		return
	}
	result.Error = c.err
	result.Cancelled = c.cancelled
	result.Success = c.err == nil
	if !c.start.IsZero() {
		end := time.Now()
		result.EndTime = &end
		result.Duration = end.Sub(c.start)
	}
}

// Cancel stops scheduling new nodes and cancels the running ones' context
func (e *Executor) Cancel() {
	e.mu.RLock()
	cancel := e.cancel
	e.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// GetProgress counts finished nodes
func (e *Executor) GetProgress() (completed, total int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, result := range e.results {
		if result.Success || result.Error != nil {
			completed++
		}
	}
	return completed, len(e.results)
}

func (e *Executor) IsRunning() bool {
	return e.running.Load()
}

func (e *Executor) buildResult() *ExecutionResult {
	order, err := e.dag.TopologicalOrder()
	if err != nil {
		order = e.dag.GetAllNodes()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	out := &ExecutionResult{
		NodeResults:   make(map[string]*NodeResult, len(e.results)),
		ExecutionTime: time.Since(e.started),
		Success:       len(e.results) > 0,
	}

	var firstCancellation error
	for _, id := range order {
		result, ok := e.results[id]
		if !ok {
			continue
		}
		copied := *result
		out.NodeResults[id] = &copied

		if result.Success {
			continue
		}
		out.Success = false
		switch {
		case result.Error == nil:
		case result.Cancelled:
			if firstCancellation == nil {
				firstCancellation = fmt.Errorf("task %s: %w", result.Name, result.Error)
			}
		case out.Error == nil:
			out.Error = fmt.Errorf("task %s failed: %w", result.Name, result.Error)
		}
	}
	if out.Error == nil && !out.Success {
		out.Error = firstCancellation
	}
	return out
}

func (e *Executor) logProgress(stop <-chan struct{}) {
	ticker := time.NewTicker(e.config.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			completed, total := e.GetProgress()
			e.mu.RLock()
			elapsed := time.Since(e.started)
			e.mu.RUnlock()
			logger.Op.WithFields(map[string]interface{}{
				"completed": completed,
				"total":     total,
				"elapsed":   elapsed.Round(time.Second).String(),
			}).Debug("Plan progress")
		}
	}
}
