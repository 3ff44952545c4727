package inspections

import (
	"errors"
	"fmt"

	"github.com/viant/mlinspect/instrumentation/dag"
)

// ErrMissingAnnotation reports a lineage reference to a parent row that was never annotated
var ErrMissingAnnotation = errors.New("missing annotation")

// RowRef points at a row of a parent node
type RowRef struct {
	Node  dag.NodeID
	Index int
}

// Trace is what an operator produced: its output rows and, per output row, the parent
// rows it was derived from. Lineage is nil for operators without row lineage.
type Trace struct {
	Operator OperatorContext
	Rows     []Row
	Lineage  [][]RowRef
}

// Engine propagates annotations through operators. Every parent must be visited
// before its children; any topological order yields identical outputs.
type Engine struct {
	inspections []Inspection
	annotations map[dag.NodeID]map[string][]any
	outputs     map[dag.NodeID]map[string]any
}

// NewEngine creates an engine for the supplied inspections, duplicates by ID are dropped
func NewEngine(inspections ...Inspection) *Engine {
	result := &Engine{
		annotations: map[dag.NodeID]map[string][]any{},
		outputs:     map[dag.NodeID]map[string]any{},
	}
	seen := map[string]bool{}
	for _, inspection := range inspections {
		if seen[inspection.ID()] {
			continue
		}
		seen[inspection.ID()] = true
		result.inspections = append(result.inspections, inspection)
	}
	return result
}

// Inspections returns configured inspections
func (e *Engine) Inspections() []Inspection {
	return e.inspections
}

// Visit runs every inspection over the trace and stores annotations and outputs.
// Re-visiting a node (a call site executed again) replaces its previous results.
func (e *Engine) Visit(trace *Trace) error {
	if trace.Lineage != nil && len(trace.Lineage) != len(trace.Rows) {
		return fmt.Errorf("trace %v: %d rows but %d lineage entries", trace.Operator.Node, len(trace.Rows), len(trace.Lineage))
	}
	node := trace.Operator.Node
	annotations := map[string][]any{}
	outputs := map[string]any{}
	for _, inspection := range e.inspections {
		inputs, err := e.rowInputs(inspection.ID(), trace)
		if err != nil {
			return err
		}
		rowAnnotations, output := inspection.Visit(&trace.Operator, inputs)
		if len(rowAnnotations) != len(inputs) {
			return fmt.Errorf("inspection %v returned %d annotations for %d rows of %v", inspection.ID(), len(rowAnnotations), len(inputs), node)
		}
		annotations[inspection.ID()] = rowAnnotations
		outputs[inspection.ID()] = output
	}
	e.annotations[node] = annotations
	e.outputs[node] = outputs
	return nil
}

func (e *Engine) rowInputs(inspectionID string, trace *Trace) ([]RowInput, error) {
	inputs := make([]RowInput, len(trace.Rows))
	for i, row := range trace.Rows {
		inputs[i].Output = row
		if trace.Lineage == nil {
			continue
		}
		refs := trace.Lineage[i]
		inputs[i].Annotations = make([]any, len(refs))
		for j, ref := range refs {
			parent, ok := e.annotations[ref.Node][inspectionID]
			if !ok || ref.Index < 0 || ref.Index >= len(parent) {
				return nil, fmt.Errorf("%v row %d -> %v row %d (%v): %w", trace.Operator.Node, i, ref.Node, ref.Index, inspectionID, ErrMissingAnnotation)
			}
			inputs[i].Annotations[j] = parent[ref.Index]
		}
	}
	return inputs, nil
}

// Visited returns true if the node has been visited
func (e *Engine) Visited(node dag.NodeID) bool {
	_, ok := e.outputs[node]
	return ok
}

// Output returns the output of an inspection for a node
func (e *Engine) Output(node dag.NodeID, inspectionID string) (any, bool) {
	outputs, ok := e.outputs[node]
	if !ok {
		return nil, false
	}
	output, ok := outputs[inspectionID]
	return output, ok
}

// Annotations returns the per-row annotations of an inspection for a node
func (e *Engine) Annotations(node dag.NodeID, inspectionID string) []any {
	return e.annotations[node][inspectionID]
}

// Outputs returns node outputs keyed by inspection ID
func (e *Engine) Outputs() map[string]map[dag.NodeID]any {
	result := make(map[string]map[dag.NodeID]any, len(e.inspections))
	for _, inspection := range e.inspections {
		result[inspection.ID()] = map[dag.NodeID]any{}
	}
	for node, outputs := range e.outputs {
		for inspectionID, output := range outputs {
			result[inspectionID][node] = output
		}
	}
	return result
}
