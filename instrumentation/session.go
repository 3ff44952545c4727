package instrumentation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/source"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Session instruments one pipeline run: it turns intercepted calls into WIR nodes,
// sequences the backend hooks around every host computation and extracts the DAG at the end.
type Session struct {
	context     *Context
	dispatcher  *Dispatcher
	graph       *wir.Graph
	locator     *source.Locator
	exporter    dag.Exporter
	inspections []inspections.Inspection
	cacheSize   int
	err         error
}

// Context returns the run context
func (s *Session) Context() *Context {
	return s.context
}

// Graph returns the WIR recorded so far
func (s *Session) Graph() *wir.Graph {
	return s.graph
}

// Dispatcher returns the backend dispatcher
func (s *Session) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Err returns the first error the session recorded
func (s *Session) Err() error {
	return s.err
}

func (s *Session) fail(err error) error {
	if err != nil && s.err == nil {
		s.err = err
	}
	return err
}

// CallSite describes a call of module made by the caller of the function invoking CallSite,
// skip counts additional wrapper frames
func (s *Session) CallSite(ctx context.Context, module wir.Module, operation wir.Operation, skip int) *Call {
	call := &Call{Module: module, Operation: operation}
	pc, file, line, ok := runtime.Caller(skip + 2)
	if !ok {
		call.Ref = wir.CodeReference{Line: -1, ColStart: s.graph.NextID()}
		return call
	}
	site := s.locator.Locate(ctx, pc, file, line, module.Function)
	call.Ref = site.Ref
	call.Code = site.Code
	return call
}

// Invoke runs the host computation of an intercepted call between the backend hooks.
// Calls no backend claims run unchanged.
func (s *Session) Invoke(call *Call, value any, args []any, kwargs map[string]any, fn HostFunc) (any, error) {
	if _, err := s.record(call); err != nil {
		return nil, s.fail(err)
	}
	call.Value, call.Args, call.Kwargs = value, args, kwargs
	if s.dispatcher.Responsible(call.Module) == nil {
		s.context.Log.Debugf("no backend claims %v at %v", call.Module, call.Ref)
		result, err := fn(value, args, kwargs)
		return result, s.fail(err)
	}
	var err error
	if call.Value, err = s.BeforeCallUsedValue(call, value); err != nil {
		return nil, s.fail(err)
	}
	if call.Args, err = s.BeforeCallUsedArgs(call, args); err != nil {
		return nil, s.fail(err)
	}
	if call.Kwargs, err = s.BeforeCallUsedKwargs(call, kwargs); err != nil {
		return nil, s.fail(err)
	}
	result, err := fn(call.Value, call.Args, call.Kwargs)
	if err != nil {
		return nil, s.fail(err)
	}
	result, err = s.AfterCallUsed(call, result)
	return result, s.fail(err)
}

// BeforeCallUsedValue hands the receiver value to the responsible backend
func (s *Session) BeforeCallUsedValue(call *Call, value any) (any, error) {
	backend := s.dispatcher.Responsible(call.Module)
	if backend == nil {
		return value, nil
	}
	return backend.BeforeCallUsedValue(s.context, call, value)
}

// BeforeCallUsedArgs hands the positional arguments to the responsible backend
func (s *Session) BeforeCallUsedArgs(call *Call, args []any) ([]any, error) {
	backend := s.dispatcher.Responsible(call.Module)
	if backend == nil {
		return args, nil
	}
	return backend.BeforeCallUsedArgs(s.context, call, args)
}

// BeforeCallUsedKwargs hands the keyword arguments to the responsible backend
func (s *Session) BeforeCallUsedKwargs(call *Call, kwargs map[string]any) (map[string]any, error) {
	backend := s.dispatcher.Responsible(call.Module)
	if backend == nil {
		return kwargs, nil
	}
	return backend.BeforeCallUsedKwargs(s.context, call, kwargs)
}

// AfterCallUsed hands the return value to the responsible backend
func (s *Session) AfterCallUsed(call *Call, result any) (any, error) {
	backend := s.dispatcher.Responsible(call.Module)
	if backend == nil {
		return result, nil
	}
	result, err := backend.AfterCallUsed(s.context, call, result)
	if err != nil {
		return nil, fmt.Errorf("%v %v at %v: %w", backend.Name(), call.Module, call.Ref, err)
	}
	return result, nil
}

// record adds the call to the WIR; a call site executed again reuses its node
func (s *Session) record(call *Call) (*wir.Node, error) {
	node := s.graph.Lookup(call.Ref, "")
	if node == nil {
		node = &wir.Node{
			ID:         s.graph.NextID(),
			Name:       call.Module.Function,
			Operation:  call.Operation,
			Ref:        call.Ref,
			Module:     call.Module,
			SourceCode: call.Code,
		}
		if err := s.graph.AddNode(node); err != nil {
			return nil, err
		}
	}
	if err := s.link(node, call.ValueOrigin, wir.SlotReceiver); err != nil {
		return nil, err
	}
	for i, origin := range call.ArgOrigins {
		if err := s.link(node, origin, wir.ArgSlot(i)); err != nil {
			return nil, err
		}
	}
	for name, origin := range call.KwargOrigins {
		if err := s.link(node, origin, wir.KwargSlot(name)); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (s *Session) link(node *wir.Node, origin *Origin, slot string) error {
	if origin == nil {
		return nil
	}
	parent := s.graph.Lookup(origin.Node.Ref, origin.Node.Part)
	if parent == nil {
		return nil
	}
	if parent.ID == node.ID {
		s.context.Log.Debugf("skipping self reference of %v", node)
		return nil
	}
	return s.graph.AddEdge(parent.ID, node.ID, slot)
}

// Finish post processes the WIR, extracts the DAG and returns the inspection result
func (s *Session) Finish(ctx context.Context) (*inspections.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.dispatcher.ProcessWIR(s.context, s.graph); err != nil {
		return nil, err
	}
	graph, err := Extract(s.context, s.graph, s.dispatcher)
	if err != nil {
		return nil, err
	}
	if err = s.dispatcher.ProcessDAG(s.context, graph); err != nil {
		return nil, err
	}
	if err = graph.Validate(); err != nil {
		return nil, err
	}
	if s.exporter != nil {
		doc, err := dag.NewDocument(graph)
		if err != nil {
			return nil, err
		}
		if err = s.exporter.Export(doc); err != nil {
			return nil, fmt.Errorf("failed to export dag: %w", err)
		}
	}
	outputs := s.context.Engine.Outputs()
	for _, nodeOutputs := range outputs {
		for id := range nodeOutputs {
			if graph.Node(id) == nil {
				delete(nodeOutputs, id)
			}
		}
	}
	s.context.Log.Infof("extracted dag: %d operators, %d edges", graph.Len(), len(graph.Edges()))
	return inspections.NewResult(graph, s.context.Engine.Inspections(), outputs), nil
}

// NewSession creates a session with a fresh run context
func NewSession(options ...Option) *Session {
	s := &Session{graph: wir.NewGraph(), cacheSize: source.DefaultCacheSize}
	for _, opt := range options {
		opt(s)
	}
	if s.dispatcher == nil {
		s.dispatcher = NewDispatcher()
	}
	s.context = NewContext(s.inspections...)
	if s.locator == nil {
		locator, err := source.NewLocator(s.cacheSize)
		if err != nil {
			s.err = err
			locator, _ = source.NewLocator(source.DefaultCacheSize)
		}
		s.locator = locator
	}
	return s
}
