package inspections

import (
	"math"

	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Inspection computes a per-row annotation and a per-node output for every operator.
// Implementations are stateless and identified by ID, so they can key result maps.
type Inspection interface {
	ID() string
	// Visit returns one annotation per input row and the node level output
	Visit(op *OperatorContext, rows []RowInput) (annotations []any, output any)
}

// OperatorContext describes the operator being inspected
type OperatorContext struct {
	Node     dag.NodeID
	Operator dag.OperatorType
	Module   wir.Module
	Columns  []string
}

// Row is one output row of an operator; Columns is empty for unnamed (encoded) outputs
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of a named column
func (r Row) Get(column string) (any, bool) {
	for i, name := range r.Columns {
		if name == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// RowInput pairs an output row with the annotations of the parent rows it was derived from
type RowInput struct {
	Output      Row
	Annotations []any
}

// IsMissing returns true for values representing a missing cell
func IsMissing(value any) bool {
	switch actual := value.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(actual)
	case float32:
		return math.IsNaN(float64(actual))
	}
	return false
}
