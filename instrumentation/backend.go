package instrumentation

import (
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Backend instruments the calls of one host library family
type Backend interface {
	// Name returns the backend name
	Name() string

	// IsResponsibleForCall returns true if the backend handles the function.
	// It must be side effect free.
	IsResponsibleForCall(fn wir.Module, prefix string) bool

	// OperatorMap maps modules to DAG operator types
	OperatorMap() map[wir.Module]dag.OperatorType

	// ProcessWIR refines the WIR before DAG extraction
	ProcessWIR(ctx *Context, graph *wir.Graph) error

	// ProcessDAG post processes the extracted DAG
	ProcessDAG(ctx *Context, graph *dag.Graph) error

	BeforeCallUsedValue(ctx *Context, call *Call, value any) (any, error)
	BeforeCallUsedArgs(ctx *Context, call *Call, args []any) ([]any, error)
	BeforeCallUsedKwargs(ctx *Context, call *Call, kwargs map[string]any) (map[string]any, error)

	// AfterCallUsed runs inspections for the call and returns the value handed back to the host
	AfterCallUsed(ctx *Context, call *Call, result any) (any, error)
}

// Dispatcher selects the backend responsible for a call
type Dispatcher struct {
	backends []Backend
}

// NewDispatcher creates a dispatcher querying backends in the supplied order
func NewDispatcher(backends ...Backend) *Dispatcher {
	return &Dispatcher{backends: backends}
}

// Backends returns backends in priority order
func (d *Dispatcher) Backends() []Backend {
	return d.backends
}

// Responsible returns the first backend claiming the function or nil
func (d *Dispatcher) Responsible(fn wir.Module) Backend {
	prefix := fn.Prefix()
	for _, backend := range d.backends {
		if backend.IsResponsibleForCall(fn, prefix) {
			return backend
		}
	}
	return nil
}

// Operator resolves the operator type of a module through its responsible backend
func (d *Dispatcher) Operator(fn wir.Module) (dag.OperatorType, bool) {
	backend := d.Responsible(fn)
	if backend == nil {
		return "", false
	}
	operator, ok := backend.OperatorMap()[fn]
	return operator, ok
}

// ProcessWIR runs every backend WIR processor in priority order
func (d *Dispatcher) ProcessWIR(ctx *Context, graph *wir.Graph) error {
	for _, backend := range d.backends {
		if err := backend.ProcessWIR(ctx, graph); err != nil {
			return err
		}
	}
	return nil
}

// ProcessDAG runs every backend DAG processor in priority order
func (d *Dispatcher) ProcessDAG(ctx *Context, graph *dag.Graph) error {
	for _, backend := range d.backends {
		if err := backend.ProcessDAG(ctx, graph); err != nil {
			return err
		}
	}
	return nil
}
