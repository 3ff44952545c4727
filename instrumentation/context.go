package instrumentation

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Context holds the bookkeeping of one pipeline run. It is created per session and
// passed to every backend hook; nothing outlives the run.
type Context struct {
	RunID        string
	Engine       *inspections.Engine
	Modules      map[dag.NodeID]wir.Module
	Descriptions map[dag.NodeID]string
	Code         map[dag.NodeID]string
	Columns      map[dag.NodeID][]string
	// WirPostProcessing keeps per call site data backends need to refine WIR nodes
	WirPostProcessing map[wir.CodeReference]any
	Log               *logrus.Entry
}

// NewContext creates a run context executing the supplied inspections
func NewContext(inspectionList ...inspections.Inspection) *Context {
	runID := uuid.New().String()
	return &Context{
		RunID:             runID,
		Engine:            inspections.NewEngine(inspectionList...),
		Modules:           map[dag.NodeID]wir.Module{},
		Descriptions:      map[dag.NodeID]string{},
		Code:              map[dag.NodeID]string{},
		Columns:           map[dag.NodeID][]string{},
		WirPostProcessing: map[wir.CodeReference]any{},
		Log:               logrus.WithField("run", runID),
	}
}

// Record stores the operator details of a DAG node
func (c *Context) Record(id dag.NodeID, module wir.Module, description, code string, columns []string) {
	c.Modules[id] = module
	if description != "" {
		c.Descriptions[id] = description
	}
	if code != "" {
		c.Code[id] = code
	}
	c.Columns[id] = columns
}

// Visit runs the inspections over an operator trace
func (c *Context) Visit(trace *inspections.Trace) error {
	if trace.Operator.Columns == nil {
		trace.Operator.Columns = c.Columns[trace.Operator.Node]
	}
	if trace.Operator.Module == (wir.Module{}) {
		trace.Operator.Module = c.Modules[trace.Operator.Node]
	}
	c.Log.Debugf("inspecting %v %v: %d rows", trace.Operator.Operator, trace.Operator.Node, len(trace.Rows))
	return c.Engine.Visit(trace)
}
