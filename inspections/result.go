package inspections

import (
	"fmt"
	"sort"

	"github.com/viant/mlinspect/instrumentation/dag"
)

// Result bundles the extracted DAG with every inspection output; it is read only
// once the run has finished.
type Result struct {
	DAG         *dag.Graph
	Outputs     map[string]map[dag.NodeID]any // inspection ID -> node -> output
	inspections []Inspection
}

// NewResult creates a result
func NewResult(graph *dag.Graph, inspections []Inspection, outputs map[string]map[dag.NodeID]any) *Result {
	return &Result{DAG: graph, Outputs: outputs, inspections: inspections}
}

// Inspections returns the inspections that ran
func (r *Result) Inspections() []Inspection {
	return r.inspections
}

// Has returns true if the inspection ran
func (r *Result) Has(inspection Inspection) bool {
	_, ok := r.Outputs[inspection.ID()]
	return ok
}

// OutputsOf returns the node outputs of an inspection
func (r *Result) OutputsOf(inspection Inspection) map[dag.NodeID]any {
	return r.Outputs[inspection.ID()]
}

// Output returns the output of an inspection for a node
func (r *Result) Output(inspection Inspection, node dag.NodeID) (any, bool) {
	outputs, ok := r.Outputs[inspection.ID()]
	if !ok {
		return nil, false
	}
	output, ok := outputs[node]
	return output, ok
}

// Fingerprint digests the DAG and all outputs; equal runs yield equal fingerprints
func (r *Result) Fingerprint() (uint64, error) {
	nodes, err := r.DAG.TopologicalOrder()
	if err != nil {
		return 0, err
	}
	digest, err := newFingerprint()
	if err != nil {
		return 0, err
	}
	for _, node := range nodes {
		fmt.Fprintf(digest, "%v|%v|%v|%v|%v\n", node.ID, node.Operator, node.Module, node.Description, node.Columns)
	}
	for _, edge := range r.DAG.Edges() {
		fmt.Fprintf(digest, "%v->%v\n", edge.From, edge.To)
	}
	var inspectionIDs []string
	for inspectionID := range r.Outputs {
		inspectionIDs = append(inspectionIDs, inspectionID)
	}
	sort.Strings(inspectionIDs)
	for _, inspectionID := range inspectionIDs {
		outputs := r.Outputs[inspectionID]
		for _, node := range nodes {
			output, ok := outputs[node.ID]
			if !ok {
				continue
			}
			fmt.Fprintf(digest, "%v|%v|%v\n", inspectionID, node.ID, output)
		}
	}
	return digest.Sum64(), nil
}
