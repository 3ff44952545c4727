package dag

import (
	"github.com/viant/mlinspect/instrumentation/wir"
)

// NodeID identifies a DAG node: the call site plus the sub-operator part a backend
// derived from it (empty for the call itself)
type NodeID struct {
	Ref  wir.CodeReference `yaml:"ref"`
	Part string            `yaml:"part,omitempty"`
}

// CallID returns the identifier of the node recorded for a whole call
func CallID(ref wir.CodeReference) NodeID {
	return NodeID{Ref: ref}
}

func (i NodeID) String() string {
	if i.Part == "" {
		return i.Ref.String()
	}
	return i.Ref.String() + "#" + i.Part
}

// Less orders identifiers by source position, then part
func (i NodeID) Less(o NodeID) bool {
	if i.Ref != o.Ref {
		return i.Ref.Less(o.Ref)
	}
	return i.Part < o.Part
}

// Node is a semantically resolved pipeline operator
type Node struct {
	ID          NodeID       `yaml:"id"`
	Operator    OperatorType `yaml:"operator"`
	Module      wir.Module   `yaml:"module"`
	Description string       `yaml:"description,omitempty"`
	SourceCode  string       `yaml:"sourceCode,omitempty"`
	Columns     []string     `yaml:"columns,omitempty"`
}
