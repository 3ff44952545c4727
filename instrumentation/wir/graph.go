package wir

import (
	"fmt"
	"sort"
)

// Slot values describe how a value reached the consuming call
const (
	SlotReceiver = "receiver"
	SlotResult   = "result"
)

// ArgSlot returns the slot name of a positional argument
func ArgSlot(position int) string {
	return fmt.Sprintf("arg:%d", position)
}

// KwargSlot returns the slot name of a keyword argument
func KwargSlot(name string) string {
	return "kwarg:" + name
}

// Edge states that the value produced by From flows into To
type Edge struct {
	From int
	To   int
	Slot string
}

type nodeKey struct {
	ref  CodeReference
	part string
}

// Graph is an arena backed directed graph of WIR nodes.
// Node slots are index stable: replacing a node reuses its slot and keeps its edge lists.
type Graph struct {
	nodes  []*Node
	slots  map[int]int // node ID -> slot
	keys   map[nodeKey]int
	edges  []*Edge
	in     [][]int // slot -> edge indexes
	out    [][]int
	nextID int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		slots: map[int]int{},
		keys:  map[nodeKey]int{},
	}
}

// NextID returns an unused node ID
func (g *Graph) NextID() int {
	id := g.nextID
	g.nextID++
	return id
}

// Len returns the number of live nodes
func (g *Graph) Len() int {
	return len(g.slots)
}

// AddNode inserts a node, IDs and (reference, part) pairs must be unique
func (g *Graph) AddNode(node *Node) error {
	if _, ok := g.slots[node.ID]; ok {
		return fmt.Errorf("duplicate wir node id: %d", node.ID)
	}
	key := nodeKey{ref: node.Ref, part: node.Part}
	if _, ok := g.keys[key]; ok {
		return fmt.Errorf("duplicate wir node for %v %q", node.Ref, node.Part)
	}
	g.nodes = append(g.nodes, node)
	g.in = append(g.in, nil)
	g.out = append(g.out, nil)
	slot := len(g.nodes) - 1
	g.slots[node.ID] = slot
	g.keys[key] = node.ID
	if node.ID >= g.nextID {
		g.nextID = node.ID + 1
	}
	return nil
}

// Node returns a live node by ID
func (g *Graph) Node(id int) *Node {
	slot, ok := g.slots[id]
	if !ok {
		return nil
	}
	return g.nodes[slot]
}

// Lookup returns the node recorded for a code reference and part
func (g *Graph) Lookup(ref CodeReference, part string) *Node {
	id, ok := g.keys[nodeKey{ref: ref, part: part}]
	if !ok {
		return nil
	}
	return g.Node(id)
}

// AddEdge connects two live nodes; repeated identical edges are ignored
func (g *Graph) AddEdge(from, to int, slot string) error {
	fromSlot, ok := g.slots[from]
	if !ok {
		return fmt.Errorf("unknown wir edge source: %d", from)
	}
	toSlot, ok := g.slots[to]
	if !ok {
		return fmt.Errorf("unknown wir edge target: %d", to)
	}
	for _, idx := range g.out[fromSlot] {
		if edge := g.edges[idx]; edge.To == to && edge.Slot == slot {
			return nil
		}
	}
	g.edges = append(g.edges, &Edge{From: from, To: to, Slot: slot})
	idx := len(g.edges) - 1
	g.out[fromSlot] = append(g.out[fromSlot], idx)
	g.in[toSlot] = append(g.in[toSlot], idx)
	return nil
}

// Nodes returns a snapshot of live nodes in insertion order
func (g *Graph) Nodes() []*Node {
	result := make([]*Node, 0, len(g.slots))
	for _, node := range g.nodes {
		if node != nil {
			result = append(result, node)
		}
	}
	return result
}

// Edges returns a snapshot of live edges
func (g *Graph) Edges() []Edge {
	result := make([]Edge, 0, len(g.edges))
	for _, edge := range g.edges {
		if edge != nil {
			result = append(result, *edge)
		}
	}
	return result
}

// InEdges returns edges ending at the node
func (g *Graph) InEdges(id int) []Edge {
	slot, ok := g.slots[id]
	if !ok {
		return nil
	}
	return g.collect(g.in[slot])
}

// OutEdges returns edges starting at the node
func (g *Graph) OutEdges(id int) []Edge {
	slot, ok := g.slots[id]
	if !ok {
		return nil
	}
	return g.collect(g.out[slot])
}

func (g *Graph) collect(indexes []int) []Edge {
	var result []Edge
	for _, idx := range indexes {
		if edge := g.edges[idx]; edge != nil {
			result = append(result, *edge)
		}
	}
	return result
}

// Parents returns the node predecessors sorted by code reference, then ID
func (g *Graph) Parents(id int) []*Node {
	var parents []*Node
	seen := map[int]bool{}
	for _, edge := range g.InEdges(id) {
		if seen[edge.From] {
			continue
		}
		seen[edge.From] = true
		parents = append(parents, g.Node(edge.From))
	}
	sortNodes(parents)
	return parents
}

// Children returns the node successors sorted by code reference, then ID
func (g *Graph) Children(id int) []*Node {
	var children []*Node
	seen := map[int]bool{}
	for _, edge := range g.OutEdges(id) {
		if seen[edge.To] {
			continue
		}
		seen[edge.To] = true
		children = append(children, g.Node(edge.To))
	}
	sortNodes(children)
	return children
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Ref != nodes[j].Ref {
			return nodes[i].Ref.Less(nodes[j].Ref)
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// Replace swaps the node with the given ID for a replacement.
// The replacement takes over the arena slot, so every incoming and outgoing edge,
// including its slot attribute, is re-pointed to it.
func (g *Graph) Replace(id int, replacement *Node) error {
	slot, ok := g.slots[id]
	if !ok {
		return fmt.Errorf("unknown wir node: %d", id)
	}
	if replacement.ID != id {
		if _, ok := g.slots[replacement.ID]; ok {
			return fmt.Errorf("duplicate wir node id: %d", replacement.ID)
		}
	}
	old := g.nodes[slot]
	newKey := nodeKey{ref: replacement.Ref, part: replacement.Part}
	if owner, ok := g.keys[newKey]; ok && owner != id {
		return fmt.Errorf("duplicate wir node for %v %q", replacement.Ref, replacement.Part)
	}
	delete(g.keys, nodeKey{ref: old.Ref, part: old.Part})
	delete(g.slots, id)
	g.nodes[slot] = replacement
	g.slots[replacement.ID] = slot
	g.keys[newKey] = replacement.ID
	for _, idx := range g.in[slot] {
		if edge := g.edges[idx]; edge != nil {
			edge.To = replacement.ID
		}
	}
	for _, idx := range g.out[slot] {
		if edge := g.edges[idx]; edge != nil {
			edge.From = replacement.ID
		}
	}
	if replacement.ID >= g.nextID {
		g.nextID = replacement.ID + 1
	}
	return nil
}

// Remove deletes a node with all incident edges
func (g *Graph) Remove(id int) {
	slot, ok := g.slots[id]
	if !ok {
		return
	}
	for _, idx := range append(append([]int{}, g.in[slot]...), g.out[slot]...) {
		g.removeEdge(idx)
	}
	node := g.nodes[slot]
	delete(g.keys, nodeKey{ref: node.Ref, part: node.Part})
	delete(g.slots, id)
	g.nodes[slot] = nil
	g.in[slot] = nil
	g.out[slot] = nil
}

func (g *Graph) removeEdge(idx int) {
	edge := g.edges[idx]
	if edge == nil {
		return
	}
	g.edges[idx] = nil
	if slot, ok := g.slots[edge.From]; ok {
		g.out[slot] = without(g.out[slot], idx)
	}
	if slot, ok := g.slots[edge.To]; ok {
		g.in[slot] = without(g.in[slot], idx)
	}
}

func without(indexes []int, idx int) []int {
	result := indexes[:0]
	for _, candidate := range indexes {
		if candidate != idx {
			result = append(result, candidate)
		}
	}
	return result
}

// TraverseAndProcess visits a stable snapshot of nodes in insertion order.
// Nodes removed or replaced by an earlier callback are skipped, nodes added during
// the traversal are not visited.
func (g *Graph) TraverseAndProcess(process func(node *Node) error) error {
	for _, node := range g.Nodes() {
		if g.Node(node.ID) != node {
			continue
		}
		if err := process(node); err != nil {
			return err
		}
	}
	return nil
}
