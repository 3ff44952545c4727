package instrumentation

import (
	"fmt"

	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Extract turns the WIR into the operator DAG. Nodes without operator mapping are dropped,
// unless they connect retained operators, which yields ErrUnknownOperator.
func Extract(ctx *Context, graph *wir.Graph, dispatcher *Dispatcher) (*dag.Graph, error) {
	result := dag.NewGraph()
	retained := map[int]dag.NodeID{}
	var dropped []*wir.Node
	for _, node := range graph.Nodes() {
		operator, ok := dispatcher.Operator(node.Module)
		if !ok {
			dropped = append(dropped, node)
			continue
		}
		id := dag.NodeID{Ref: node.Ref, Part: node.Part}
		description := node.Description
		if recorded, ok := ctx.Descriptions[id]; ok {
			description = recorded
		}
		code := node.SourceCode
		if recorded, ok := ctx.Code[id]; ok {
			code = recorded
		}
		if err := result.AddNode(&dag.Node{
			ID:          id,
			Operator:    operator,
			Module:      node.Module,
			Description: description,
			SourceCode:  code,
			Columns:     ctx.Columns[id],
		}); err != nil {
			return nil, err
		}
		retained[node.ID] = id
	}
	for _, node := range dropped {
		if reaches(node.ID, retained, graph.Parents) && reaches(node.ID, retained, graph.Children) {
			return nil, fmt.Errorf("%v (%v) at %v links dag operators: %w", node.Name, node.Module, node.Ref, ErrUnknownOperator)
		}
		ctx.Log.Debugf("dropping %v (%v) at %v: no operator mapping", node.Name, node.Module, node.Ref)
	}
	for _, edge := range graph.Edges() {
		from, ok := retained[edge.From]
		if !ok {
			continue
		}
		to, ok := retained[edge.To]
		if !ok {
			continue
		}
		if err := result.AddEdge(from, to); err != nil {
			return nil, err
		}
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// reaches returns true if a retained node is reachable from id following next
func reaches(id int, retained map[int]dag.NodeID, next func(int) []*wir.Node) bool {
	visited := map[int]bool{id: true}
	queue := []int{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, node := range next(current) {
			if visited[node.ID] {
				continue
			}
			if _, ok := retained[node.ID]; ok {
				return true
			}
			visited[node.ID] = true
			queue = append(queue, node.ID)
		}
	}
	return false
}
