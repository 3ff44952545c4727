package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrGraphShape reports a cycle, a dangling edge or a parentless operator.
// It always indicates an instrumentation bug upstream and is never repaired.
var ErrGraphShape = errors.New("unexpected graph shape")

// Edge states that the output of From feeds the input of To
type Edge struct {
	From NodeID `yaml:"from"`
	To   NodeID `yaml:"to"`
}

// Graph is the operator DAG of one pipeline run
type Graph struct {
	nodes    []*Node
	index    map[NodeID]int
	edges    []Edge
	parents  map[NodeID][]NodeID
	children map[NodeID][]NodeID
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		index:    map[NodeID]int{},
		parents:  map[NodeID][]NodeID{},
		children: map[NodeID][]NodeID{},
	}
}

// AddNode inserts a node, node identifiers must be unique
func (g *Graph) AddNode(node *Node) error {
	if _, ok := g.index[node.ID]; ok {
		return fmt.Errorf("duplicate dag node %v: %w", node.ID, ErrGraphShape)
	}
	g.nodes = append(g.nodes, node)
	g.index[node.ID] = len(g.nodes) - 1
	return nil
}

// AddEdge connects two existing nodes, repeated edges are ignored
func (g *Graph) AddEdge(from, to NodeID) error {
	if _, ok := g.index[from]; !ok {
		return fmt.Errorf("dangling edge %v -> %v, unknown source: %w", from, to, ErrGraphShape)
	}
	if _, ok := g.index[to]; !ok {
		return fmt.Errorf("dangling edge %v -> %v, unknown target: %w", from, to, ErrGraphShape)
	}
	for _, child := range g.children[from] {
		if child == to {
			return nil
		}
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
	g.children[from] = append(g.children[from], to)
	g.parents[to] = append(g.parents[to], from)
	return nil
}

// Len returns number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns a node by identifier
func (g *Graph) Node(id NodeID) *Node {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.nodes[idx]
}

// Nodes returns nodes in insertion order
func (g *Graph) Nodes() []*Node {
	return append([]*Node{}, g.nodes...)
}

// Edges returns edges in insertion order
func (g *Graph) Edges() []Edge {
	return append([]Edge{}, g.edges...)
}

// Parents returns the node predecessors in edge insertion order
func (g *Graph) Parents(id NodeID) []*Node {
	return g.resolve(g.parents[id])
}

// Children returns the node successors in edge insertion order
func (g *Graph) Children(id NodeID) []*Node {
	return g.resolve(g.children[id])
}

func (g *Graph) resolve(ids []NodeID) []*Node {
	result := make([]*Node, 0, len(ids))
	for _, id := range ids {
		result = append(result, g.Node(id))
	}
	return result
}

// TopologicalOrder returns nodes so that every parent precedes its children.
// Ties are broken by insertion order, so the result is deterministic.
func (g *Graph) TopologicalOrder() ([]*Node, error) {
	inDegree := make(map[NodeID]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node.ID] = len(g.parents[node.ID])
	}
	var ready []int
	for i, node := range g.nodes {
		if inDegree[node.ID] == 0 {
			ready = append(ready, i)
		}
	}
	result := make([]*Node, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Ints(ready)
		idx := ready[0]
		ready = ready[1:]
		node := g.nodes[idx]
		result = append(result, node)
		for _, child := range g.children[node.ID] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, g.index[child])
			}
		}
	}
	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("cycle detected among %d nodes: %w", len(g.nodes)-len(result), ErrGraphShape)
	}
	return result, nil
}

// Validate checks that the graph is acyclic and that every non source operator has a parent
func (g *Graph) Validate() error {
	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}
	for _, node := range g.nodes {
		if node.Operator.IsSource() {
			continue
		}
		if len(g.parents[node.ID]) == 0 {
			return fmt.Errorf("%v operator %v has no predecessor: %w", node.Operator, node.ID, ErrGraphShape)
		}
	}
	return nil
}
