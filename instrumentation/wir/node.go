package wir

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Operation describes the call shape of an intercepted call
type Operation string

const (
	Call      Operation = "Call"
	Subscript Operation = "Subscript"
	// Synthetic marks nodes a backend derives from a single intercepted call
	Synthetic Operation = "Synthetic"
)

// CodeReference locates a call site in the pipeline source; it is unique per call site
type CodeReference struct {
	File     string `yaml:"file,omitempty"`
	Line     int    `yaml:"line"`
	ColStart int    `yaml:"colStart"`
	LineEnd  int    `yaml:"lineEnd"`
	ColEnd   int    `yaml:"colEnd"`
}

func (r CodeReference) String() string {
	position := fmt.Sprintf("%d:%d-%d:%d", r.Line, r.ColStart, r.LineEnd, r.ColEnd)
	if r.File == "" {
		return position
	}
	return filepath.Base(r.File) + ":" + position
}

// Less orders references by file, then source position
func (r CodeReference) Less(o CodeReference) bool {
	if r.File != o.File {
		return r.File < o.File
	}
	if r.Line != o.Line {
		return r.Line < o.Line
	}
	if r.ColStart != o.ColStart {
		return r.ColStart < o.ColStart
	}
	if r.LineEnd != o.LineEnd {
		return r.LineEnd < o.LineEnd
	}
	return r.ColEnd < o.ColEnd
}

// Module is the resolved identity of an intercepted function, i.e. frame.Frame:Merge
type Module struct {
	Package  string `yaml:"package"`
	Function string `yaml:"function"`
	Variant  string `yaml:"variant,omitempty"` // refined operator subtype, set during WIR processing
}

func (m Module) String() string {
	if m.Variant == "" {
		return m.Package + ":" + m.Function
	}
	return m.Package + ":" + m.Function + ":" + m.Variant
}

// Prefix returns the root package segment used by backends to claim calls
func (m Module) Prefix() string {
	if idx := strings.Index(m.Package, "."); idx != -1 {
		return m.Package[:idx]
	}
	return m.Package
}

// WithVariant returns a copy of the module carrying the supplied variant
func (m Module) WithVariant(variant string) Module {
	m.Variant = variant
	return m
}

// Node represents one intercepted call in the workflow intermediate representation
type Node struct {
	ID          int
	Name        string
	Operation   Operation
	Ref         CodeReference
	Part        string // sub-operator label for synthetic nodes, empty for the call itself
	Module      Module
	Description string
	SourceCode  string
}

// WithModule returns a refined copy of the node, identity fields are preserved
func (n *Node) WithModule(module Module) *Node {
	clone := *n
	clone.Module = module
	return &clone
}

func (n *Node) String() string {
	if n.Part == "" {
		return fmt.Sprintf("%d:%s@%s", n.ID, n.Name, n.Ref)
	}
	return fmt.Sprintf("%d:%s[%s]@%s", n.ID, n.Name, n.Part, n.Ref)
}
