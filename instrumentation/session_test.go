package instrumentation

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

var (
	readModule   = wir.Module{Package: "fake", Function: "Read"}
	filterModule = wir.Module{Package: "fake.Table", Function: "Filter"}
	printModule  = wir.Module{Package: "other.Table", Function: "Print"}
)

type table struct {
	rows   []any
	origin *Origin
}

func (t *table) Origin() *Origin {
	if t == nil {
		return nil
	}
	return t.origin
}

type fakeBackend struct {
	name   string
	prefix string
	events []string
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) IsResponsibleForCall(fn wir.Module, prefix string) bool {
	return prefix == b.prefix
}

func (b *fakeBackend) OperatorMap() map[wir.Module]dag.OperatorType {
	return map[wir.Module]dag.OperatorType{
		readModule:   dag.DataSource,
		filterModule: dag.Selection,
	}
}

func (b *fakeBackend) ProcessWIR(ctx *Context, graph *wir.Graph) error {
	b.events = append(b.events, "wir")
	return nil
}

func (b *fakeBackend) ProcessDAG(ctx *Context, graph *dag.Graph) error {
	b.events = append(b.events, "dag")
	return nil
}

func (b *fakeBackend) BeforeCallUsedValue(ctx *Context, call *Call, value any) (any, error) {
	b.events = append(b.events, "value")
	return value, nil
}

func (b *fakeBackend) BeforeCallUsedArgs(ctx *Context, call *Call, args []any) ([]any, error) {
	b.events = append(b.events, "args")
	return args, nil
}

func (b *fakeBackend) BeforeCallUsedKwargs(ctx *Context, call *Call, kwargs map[string]any) (map[string]any, error) {
	b.events = append(b.events, "kwargs")
	return kwargs, nil
}

func (b *fakeBackend) AfterCallUsed(ctx *Context, call *Call, result any) (any, error) {
	b.events = append(b.events, "after")
	out := result.(*table)
	trace := &inspections.Trace{Operator: inspections.OperatorContext{Node: call.NodeID()}}
	operator, _ := NewDispatcher(b).Operator(call.Module)
	trace.Operator.Operator = operator
	var parent *table
	if call.Value != nil {
		parent = call.Value.(*table)
	}
	for _, value := range out.rows {
		trace.Rows = append(trace.Rows, inspections.Row{Columns: []string{"race"}, Values: []any{value}})
		if parent != nil {
			trace.Lineage = append(trace.Lineage, []inspections.RowRef{call.ValueOrigin.Row(indexOf(parent.rows, value))})
		}
	}
	ctx.Record(call.NodeID(), call.Module, call.Module.Function, call.Code, []string{"race"})
	if err := ctx.Visit(trace); err != nil {
		return nil, err
	}
	out.origin = &Origin{Node: call.NodeID()}
	return out, nil
}

func indexOf(values []any, value any) int {
	for i, candidate := range values {
		if candidate == value {
			return i
		}
	}
	return -1
}

func ref(line int) wir.CodeReference {
	return wir.CodeReference{Line: line, LineEnd: line, ColEnd: 10}
}

func TestSession_Invoke(t *testing.T) {
	backend := &fakeBackend{name: "fake", prefix: "fake"}
	histogram := inspections.NewHistogramForColumns("race")
	session := NewSession(WithBackends(backend), WithInspections(histogram))

	read := &Call{Module: readModule, Operation: wir.Call, Ref: ref(1), Code: "fake.Read()"}
	value, err := session.Invoke(read, nil, nil, nil, func(any, []any, map[string]any) (any, error) {
		return &table{rows: []any{"a", "b", "b"}}, nil
	})
	require.NoError(t, err)
	source := value.(*table)

	filter := &Call{Module: filterModule, Operation: wir.Call, Ref: ref(2), Code: "t.Filter()", ValueOrigin: OriginOf(source)}
	value, err = session.Invoke(filter, source, []any{"b"}, nil, func(receiver any, args []any, _ map[string]any) (any, error) {
		var rows []any
		for _, row := range receiver.(*table).rows {
			if row == args[0] {
				rows = append(rows, row)
			}
		}
		return &table{rows: rows}, nil
	})
	require.NoError(t, err)
	filtered := value.(*table)

	printed := &Call{Module: printModule, Operation: wir.Call, Ref: ref(3), ValueOrigin: OriginOf(filtered)}
	_, err = session.Invoke(printed, filtered, nil, nil, func(any, []any, map[string]any) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []wir.Edge{
		{From: 0, To: 1, Slot: wir.SlotReceiver},
		{From: 1, To: 2, Slot: wir.SlotReceiver},
	}, session.Graph().Edges())

	result, err := session.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.DAG.Len(), "print has no operator mapping and is dropped")
	assert.Equal(t, []dag.Edge{{From: dag.CallID(ref(1)), To: dag.CallID(ref(2))}}, result.DAG.Edges())
	node := result.DAG.Node(dag.CallID(ref(2)))
	require.NotNil(t, node)
	assert.Equal(t, dag.Selection, node.Operator)
	assert.Equal(t, []string{"race"}, node.Columns)
	assert.Equal(t, "t.Filter()", node.SourceCode)

	output, ok := result.Output(histogram, dag.CallID(ref(2)))
	require.True(t, ok)
	assert.Equal(t, inspections.Histogram{{Value: "b"}: 2}, output.(inspections.ColumnHistograms)["race"])
	assert.Equal(t, []string{"value", "args", "kwargs", "after", "value", "args", "kwargs", "after", "wir", "dag"}, backend.events)
}

func TestSession_HostError(t *testing.T) {
	session := NewSession()
	hostErr := errors.New("host failure")
	_, err := session.Invoke(&Call{Module: readModule, Ref: ref(1)}, nil, nil, nil, func(any, []any, map[string]any) (any, error) {
		return nil, hostErr
	})
	assert.Equal(t, hostErr, err)
	_, err = session.Finish(context.Background())
	assert.Equal(t, hostErr, err)
}

func TestDispatcher_Responsible(t *testing.T) {
	first := &fakeBackend{name: "first", prefix: "fake"}
	second := &fakeBackend{name: "second", prefix: "fake"}
	other := &fakeBackend{name: "other", prefix: "other"}
	dispatcher := NewDispatcher(first, second, other)

	testCases := []struct {
		description string
		module      wir.Module
		expect      Backend
	}{
		{description: "first claiming backend wins", module: filterModule, expect: first},
		{description: "variant keeps the owner", module: filterModule.WithVariant("Projection"), expect: first},
		{description: "later backend", module: wir.Module{Package: "other.Frame", Function: "Merge"}, expect: other},
		{description: "nobody", module: wir.Module{Package: "fmt", Function: "Println"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				actual := dispatcher.Responsible(testCase.module)
				if testCase.expect == nil {
					assert.Nil(t, actual)
					continue
				}
				assert.Same(t, testCase.expect, actual)
			}
		})
	}
	operator, ok := dispatcher.Operator(readModule)
	assert.True(t, ok)
	assert.Equal(t, dag.DataSource, operator)
	_, ok = dispatcher.Operator(printModule)
	assert.False(t, ok)
}

func TestExtract(t *testing.T) {
	testCases := []struct {
		description string
		modules     []wir.Module
		edges       [][2]int
		expectNodes int
		expectErr   error
	}{
		{
			description: "dropped leaf",
			modules:     []wir.Module{readModule, filterModule, printModule},
			edges:       [][2]int{{0, 1}, {1, 2}},
			expectNodes: 2,
		},
		{
			description: "dropped node between operators",
			modules:     []wir.Module{readModule, printModule, filterModule},
			edges:       [][2]int{{0, 1}, {1, 2}},
			expectErr:   ErrUnknownOperator,
		},
		{
			description: "parentless selection",
			modules:     []wir.Module{filterModule},
			expectErr:   ErrGraphShape,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			graph := wir.NewGraph()
			for i, module := range testCase.modules {
				require.NoError(t, graph.AddNode(&wir.Node{ID: i, Name: module.Function, Ref: ref(i + 1), Module: module}))
			}
			for _, edge := range testCase.edges {
				require.NoError(t, graph.AddEdge(edge[0], edge[1], wir.SlotReceiver))
			}
			result, err := Extract(NewContext(), graph, NewDispatcher(&fakeBackend{name: "fake", prefix: "fake"}))
			if testCase.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, testCase.expectErr), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expectNodes, result.Len())
		})
	}
}

func TestExtract_RandomGraphs(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	dispatcher := NewDispatcher(&fakeBackend{name: "fake", prefix: "fake"})
	for run := 0; run < 50; run++ {
		size := 2 + random.Intn(20)
		graph := wir.NewGraph()
		hasParent := make([]bool, size)
		hasChild := make([]bool, size)
		var edges [][2]int
		for to := 1; to < size; to++ {
			for from := 0; from < to; from++ {
				if random.Float64() < 0.2 {
					edges = append(edges, [2]int{from, to})
					hasParent[to] = true
					hasChild[from] = true
				}
			}
		}
		for i := 0; i < size; i++ {
			module := filterModule
			switch {
			case !hasParent[i]:
				module = readModule
			case !hasChild[i] && random.Intn(3) == 0:
				module = printModule
			}
			require.NoError(t, graph.AddNode(&wir.Node{ID: i, Ref: ref(i + 1), Module: module}))
		}
		for _, edge := range edges {
			require.NoError(t, graph.AddEdge(edge[0], edge[1], wir.ArgSlot(0)))
		}

		result, err := Extract(NewContext(), graph, dispatcher)
		require.NoError(t, err)
		assert.LessOrEqual(t, result.Len(), size)
		_, err = result.TopologicalOrder()
		assert.NoError(t, err)

		expectEdges := 0
		for _, edge := range edges {
			from, to := graph.Node(edge[0]), graph.Node(edge[1])
			if from.Module == printModule || to.Module == printModule {
				continue
			}
			expectEdges++
			assert.NotNil(t, result.Node(dag.CallID(from.Ref)))
		}
		assert.Equal(t, expectEdges, len(result.Edges()))
	}
}

func TestSession_CodeReferences(t *testing.T) {
	position := wir.CodeReference{Line: 11, ColStart: 8, LineEnd: 11, ColEnd: 34}
	inFile := func(file string) wir.CodeReference {
		ref := position
		ref.File = file
		return ref
	}
	shifted := inFile("/pipeline/load.go")
	shifted.ColStart, shifted.ColEnd = 40, 66

	testCases := []struct {
		description string
		refs        []wir.CodeReference
		expectNodes int
	}{
		{
			description: "same position in two files",
			refs:        []wir.CodeReference{inFile("/pipeline/patients.go"), inFile("/pipeline/histories.go")},
			expectNodes: 2,
		},
		{
			description: "two calls on one line",
			refs:        []wir.CodeReference{inFile("/pipeline/load.go"), shifted},
			expectNodes: 2,
		},
		{
			description: "call site executed again",
			refs:        []wir.CodeReference{inFile("/pipeline/load.go"), inFile("/pipeline/load.go")},
			expectNodes: 1,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			histogram := inspections.NewHistogramForColumns("race")
			session := NewSession(WithBackends(&fakeBackend{name: "fake", prefix: "fake"}), WithInspections(histogram))
			for i, ref := range testCase.refs {
				rows := []any{string(rune('a' + i))}
				read := &Call{Module: readModule, Operation: wir.Call, Ref: ref}
				_, err := session.Invoke(read, nil, nil, nil, func(any, []any, map[string]any) (any, error) {
					return &table{rows: rows}, nil
				})
				require.NoError(t, err)
			}
			assert.Equal(t, testCase.expectNodes, session.Graph().Len())
			result, err := session.Finish(context.Background())
			require.NoError(t, err)
			assert.Equal(t, testCase.expectNodes, result.DAG.Len())
			if testCase.expectNodes != len(testCase.refs) {
				return
			}
			for i, ref := range testCase.refs {
				output, ok := result.Output(histogram, dag.CallID(ref))
				require.True(t, ok)
				assert.Equal(t, inspections.Histogram{{Value: string(rune('a' + i))}: 1}, output.(inspections.ColumnHistograms)["race"])
			}
		})
	}
}
