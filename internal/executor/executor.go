// Package executor runs a pipeline graph on a fixed pool of workers,
// failing fast and skipping dependents when a node errors.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gargmohit24/platoonbench/internal/ctxlog"
	"github.com/gargmohit24/platoonbench/internal/dag"
)

// Executor drains a dag.Graph with a pool of workers.
type Executor struct {
	graph      *dag.Graph
	numWorkers int

	wg sync.WaitGroup
}

// New creates an executor for the graph. Worker counts below 1 are raised
// to 1.
func New(graph *dag.Graph, numWorkers int) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Executor{graph: graph, numWorkers: numWorkers}
}

// Run executes the entire graph concurrently and returns an error if any
// node fails. It respects the cancellation signal of the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *dag.Node, e.graph.Len())
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	roots := e.graph.Roots()
	logger.Debug("Executor initialized.", "nodes", e.graph.Len(), "roots", len(roots), "workers", e.numWorkers)
	for _, n := range roots {
		readyChan <- n
	}

	e.wg.Add(e.graph.Len())
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, n := range e.graph.Nodes() {
		if n.State() != dag.Failed {
			continue
		}
		logger.Error("Node failed execution.", "nodeID", n.ID, "error", n.Error)
		// A skipped or canceled node is a symptom, not a cause.
		if n.Error != nil && !strings.HasPrefix(n.Error.Error(), "skipped") && !errors.Is(n.Error, context.Canceled) {
			failedNodes = append(failedNodes, n.ID)
			if rootCauseError == nil {
				rootCauseError = n.Error
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// skipDependents recursively marks all downstream nodes as failed.
func (e *Executor) skipDependents(ctx context.Context, n *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.Dependents {
		d := dependent
		logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", d.ID, "dependency", n.ID)
		d.Skip(fmt.Errorf("skipped due to upstream failure of '%s'", n.ID), &e.wg)
		e.skipDependents(ctx, d)
	}
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", n.ID)

		if ctx.Err() != nil {
			n.Skip(ctx.Err(), &e.wg)
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		n.SetState(dag.Running)
		err := n.Task.Run(ctxlog.WithLogger(ctx, workerLogger))

		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			n.SetState(dag.Failed)
			n.Error = err
			cancel()
			e.skipDependents(ctx, n)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		n.SetState(dag.Done)

		for _, dependent := range n.Dependents {
			if dependent.DecrementDeps() == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
