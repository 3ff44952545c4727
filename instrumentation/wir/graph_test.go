package wir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(line int) CodeReference {
	return CodeReference{Line: line, ColStart: 0, LineEnd: line, ColEnd: 10}
}

func buildChain(t *testing.T) (*Graph, []*Node) {
	g := NewGraph()
	var nodes []*Node
	for i, name := range []string{"ReadCSV", "Index", "Merge"} {
		node := &Node{ID: g.NextID(), Name: name, Operation: Call, Ref: ref(i + 1), Module: Module{Package: "frame.Frame", Function: name}}
		require.NoError(t, g.AddNode(node))
		nodes = append(nodes, node)
	}
	require.NoError(t, g.AddEdge(nodes[0].ID, nodes[1].ID, SlotReceiver))
	require.NoError(t, g.AddEdge(nodes[1].ID, nodes[2].ID, ArgSlot(0)))
	require.NoError(t, g.AddEdge(nodes[0].ID, nodes[2].ID, SlotReceiver))
	return g, nodes
}

func TestGraph_AddEdge(t *testing.T) {
	g, nodes := buildChain(t)
	assert.NoError(t, g.AddEdge(nodes[0].ID, nodes[1].ID, SlotReceiver), "identical edges are ignored")
	assert.Len(t, g.Edges(), 3)
	assert.Error(t, g.AddEdge(nodes[0].ID, 99, SlotReceiver))
	assert.Error(t, g.AddNode(&Node{ID: nodes[0].ID}))
	assert.Error(t, g.AddNode(&Node{ID: 100, Ref: nodes[0].Ref}))
}

func TestGraph_Parents(t *testing.T) {
	g, nodes := buildChain(t)
	parents := g.Parents(nodes[2].ID)
	require.Len(t, parents, 2)
	assert.Equal(t, "ReadCSV", parents[0].Name)
	assert.Equal(t, "Index", parents[1].Name)
	children := g.Children(nodes[0].ID)
	require.Len(t, children, 2)
	assert.Equal(t, "Index", children[0].Name)
}

func TestGraph_Replace(t *testing.T) {
	g, nodes := buildChain(t)
	refined := nodes[1].WithModule(nodes[1].Module.WithVariant("Projection"))
	refined.ID = g.NextID()
	require.NoError(t, g.Replace(nodes[1].ID, refined))

	assert.Nil(t, g.Node(nodes[1].ID))
	assert.Equal(t, refined, g.Node(refined.ID))
	assert.Equal(t, refined, g.Lookup(refined.Ref, ""))
	assert.Equal(t, []Edge{{From: nodes[0].ID, To: refined.ID, Slot: SlotReceiver}}, g.InEdges(refined.ID))
	assert.Equal(t, []Edge{{From: refined.ID, To: nodes[2].ID, Slot: ArgSlot(0)}}, g.OutEdges(refined.ID))
	assert.Equal(t, "frame.Frame:Index", nodes[1].Module.String(), "replaced node is immutable")
}

func TestGraph_Remove(t *testing.T) {
	g, nodes := buildChain(t)
	g.Remove(nodes[1].ID)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []Edge{{From: nodes[0].ID, To: nodes[2].ID, Slot: SlotReceiver}}, g.Edges())
	assert.Empty(t, g.OutEdges(nodes[1].ID))
	assert.Len(t, g.Parents(nodes[2].ID), 1)
}

func TestGraph_TraverseAndProcess(t *testing.T) {
	testCases := []struct {
		description string
		mutate      func(g *Graph, node *Node) error
		expect      []string
		expectLen   int
	}{
		{
			description: "plain traversal",
			mutate:      func(g *Graph, node *Node) error { return nil },
			expect:      []string{"ReadCSV", "Index", "Merge"},
			expectLen:   3,
		},
		{
			description: "replacement during traversal is not revisited",
			mutate: func(g *Graph, node *Node) error {
				if node.Name != "Index" {
					return nil
				}
				replacement := node.WithModule(node.Module.WithVariant("Selection"))
				replacement.ID = g.NextID()
				return g.Replace(node.ID, replacement)
			},
			expect:    []string{"ReadCSV", "Index", "Merge"},
			expectLen: 3,
		},
		{
			description: "removed nodes are skipped",
			mutate: func(g *Graph, node *Node) error {
				if node.Name == "ReadCSV" {
					g.Remove(node.ID + 1)
				}
				return nil
			},
			expect:    []string{"ReadCSV", "Merge"},
			expectLen: 2,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			g, _ := buildChain(t)
			var visited []string
			err := g.TraverseAndProcess(func(node *Node) error {
				visited = append(visited, node.Name)
				return testCase.mutate(g, node)
			})
			require.NoError(t, err)
			assert.Equal(t, testCase.expect, visited)
			assert.Equal(t, testCase.expectLen, g.Len())
		})
	}
}

func TestModule_Prefix(t *testing.T) {
	assert.Equal(t, "learn", Module{Package: "learn.impute", Function: "SimpleImputer"}.Prefix())
	assert.Equal(t, "frame", Module{Package: "frame", Function: "ReadCSV"}.Prefix())
	assert.Equal(t, "learn.impute:SimpleImputer:Pipeline", Module{Package: "learn.impute", Function: "SimpleImputer", Variant: "Pipeline"}.String())
}

func TestCodeReference(t *testing.T) {
	patients := CodeReference{File: "/pipeline/patients.go", Line: 11, ColStart: 8, LineEnd: 11, ColEnd: 34}
	histories := patients
	histories.File = "/pipeline/histories.go"

	testCases := []struct {
		description string
		ref         CodeReference
		expect      string
	}{
		{description: "with file", ref: patients, expect: "patients.go:11:8-11:34"},
		{description: "without file", ref: CodeReference{Line: 3, ColStart: 1, LineEnd: 3, ColEnd: 9}, expect: "3:1-3:9"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, testCase.ref.String())
		})
	}
	assert.NotEqual(t, patients, histories)
	assert.True(t, histories.Less(patients))
	assert.False(t, patients.Less(histories))

	graph := NewGraph()
	require.NoError(t, graph.AddNode(&Node{ID: 0, Name: "ReadCSV", Ref: patients}))
	require.NoError(t, graph.AddNode(&Node{ID: 1, Name: "ReadCSV", Ref: histories}))
	assert.Equal(t, 0, graph.Lookup(patients, "").ID)
	assert.Equal(t, 1, graph.Lookup(histories, "").ID)
}
