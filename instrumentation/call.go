package instrumentation

import (
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Origin locates the rows of a host value within the output of the node that produced it.
// Offset is the index of the first row, i.e. the test part of a train test split.
type Origin struct {
	Node   dag.NodeID
	Offset int
}

// Row returns the parent row reference of the i-th value row
func (o *Origin) Row(i int) inspections.RowRef {
	return inspections.RowRef{Node: o.Node, Index: o.Offset + i}
}

// Traced is implemented by host values remembering the call they were produced by
type Traced interface {
	Origin() *Origin
}

// OriginOf returns the origin of a traced host value or nil
func OriginOf(value any) *Origin {
	if traced, ok := value.(Traced); ok && traced != nil {
		return traced.Origin()
	}
	return nil
}

// Call is one intercepted call.
// Origins describe where the traced inputs come from; values are the (possibly backend adjusted)
// inputs the host computation receives, populated as the before hooks complete.
type Call struct {
	Module       wir.Module
	Operation    wir.Operation
	Ref          wir.CodeReference
	Code         string
	ValueOrigin  *Origin
	ArgOrigins   []*Origin
	KwargOrigins map[string]*Origin

	Value  any
	Args   []any
	Kwargs map[string]any
}

// NodeID returns the DAG identifier of the whole call
func (c *Call) NodeID() dag.NodeID {
	return dag.CallID(c.Ref)
}

// PartID returns the DAG identifier of a node derived from the call
func (c *Call) PartID(part string) dag.NodeID {
	return dag.NodeID{Ref: c.Ref, Part: part}
}

// Arg returns a positional argument value or nil
func (c *Call) Arg(position int) any {
	if position < 0 || position >= len(c.Args) {
		return nil
	}
	return c.Args[position]
}

// ArgOrigin returns the origin of a positional argument or nil
func (c *Call) ArgOrigin(position int) *Origin {
	if position < 0 || position >= len(c.ArgOrigins) {
		return nil
	}
	return c.ArgOrigins[position]
}

// HostFunc runs the host computation over the adjusted inputs
type HostFunc func(value any, args []any, kwargs map[string]any) (any, error)
