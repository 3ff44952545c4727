package dag

// Document is a flat, serializable view of a graph
type Document struct {
	Nodes []*Node `yaml:"nodes"`
	Edges []Edge  `yaml:"edges"`
}

// Exporter sends an extracted DAG to a storage backend
type Exporter interface {
	Export(doc *Document) error
}

// NewDocument builds a document with nodes in topological order
func NewDocument(g *Graph) (*Document, error) {
	nodes, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	return &Document{Nodes: nodes, Edges: g.Edges()}, nil
}
