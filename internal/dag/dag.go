package dag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Task is a unit of work attached to a graph node.
type Task interface {
	// Run executes the task. It must respect context cancellation.
	Run(ctx context.Context) error
}

// NodeState tracks a node through execution.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
)

// Node is a single vertex of the graph.
type Node struct {
	ID   string
	Task Task

	Deps       map[string]*Node
	Dependents map[string]*Node

	// Error holds the failure cause once the node reaches Failed.
	Error error

	state    atomic.Int32
	depCount atomic.Int32
	skipOnce sync.Once
}

// State returns the node's current execution state.
func (n *Node) State() NodeState { return NodeState(n.state.Load()) }

// SetState transitions the node to a new state.
func (n *Node) SetState(s NodeState) { n.state.Store(int32(s)) }

// DecrementDeps marks one dependency as satisfied and returns the number
// still outstanding.
func (n *Node) DecrementDeps() int32 { return n.depCount.Add(-1) }

// Skip marks the node failed exactly once, recording err and releasing its
// slot in the wait group.
func (n *Node) Skip(err error, wg *sync.WaitGroup) {
	n.skipOnce.Do(func() {
		n.SetState(Failed)
		n.Error = err
		wg.Done()
	})
}

// Graph is a set of nodes and their dependency edges. Mutating operations
// are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*Node
}

// New creates an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode adds a node with the given ID and task. Adding an existing ID is
// an error: pipeline node IDs are derived from unique run identities.
func (g *Graph) AddNode(id string, task Task) (*Node, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return nil, fmt.Errorf("duplicate node id %q", id)
	}
	n := &Node{
		ID:         id,
		Task:       task,
		Deps:       make(map[string]*Node),
		Dependents: make(map[string]*Node),
	}
	g.nodes[id] = n
	return n, nil
}

// AddEdge creates a directed edge from fromID to toID, meaning toID depends
// on fromID.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if _, ok := toNode.Deps[fromID]; ok {
		return nil
	}
	toNode.Deps[fromID] = fromNode
	fromNode.Dependents[toID] = toNode
	toNode.depCount.Add(1)
	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Nodes returns every node in the graph.
func (g *Graph) Nodes() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Roots returns the nodes with no dependencies.
func (g *Graph) Roots() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var roots []*Node
	for _, n := range g.nodes {
		if len(n.Deps) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// DetectCycles returns a non-nil error if the graph contains a cycle,
// naming the first node found to be involved.
func (g *Graph) DetectCycles() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	// Classic depth-first search with three node sets: permanent nodes are
	// fully visited and known safe, temporary nodes are on the current
	// recursion stack, everything else is unvisited.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving node '%s'", n.ID)
		}

		temporary[n.ID] = true
		for _, dependent := range n.Dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range g.nodes {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
