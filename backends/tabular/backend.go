package tabular

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/viant/mlinspect/host/frame"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation"
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Hidden row index columns used to recover row lineage, removed before values return to the pipeline
const (
	indexColumn      = "mlinspect_index"
	leftIndexColumn  = "mlinspect_index_x"
	rightIndexColumn = "mlinspect_index_y"
)

// Subscript variants
const (
	Projection = "Projection"
	Selection  = "Selection"
)

var operatorMap = map[wir.Module]dag.OperatorType{
	frame.ReadCSVModule:                       dag.DataSource,
	frame.MergeModule:                         dag.Join,
	frame.IndexModule.WithVariant(Projection): dag.Projection,
	frame.IndexModule.WithVariant(Selection):  dag.Selection,
	frame.AssignModule:                        dag.ProjectionModify,
	frame.DropNAModule:                        dag.Selection,
	frame.ReplaceModule:                       dag.ProjectionModify,
	frame.GroupByAggModule:                    dag.GroupByAgg,
}

// Backend instruments host/frame calls
type Backend struct{}

func (b *Backend) Name() string {
	return "frame"
}

func (b *Backend) IsResponsibleForCall(fn wir.Module, prefix string) bool {
	return prefix == "frame"
}

func (b *Backend) OperatorMap() map[wir.Module]dag.OperatorType {
	return operatorMap
}

func (b *Backend) BeforeCallUsedValue(ctx *instrumentation.Context, call *instrumentation.Call, value any) (any, error) {
	df, ok := value.(dataframe.DataFrame)
	if !ok {
		return value, nil
	}
	switch call.Module {
	case frame.MergeModule:
		return withIndex(df, leftIndexColumn), nil
	case frame.DropNAModule:
		return withIndex(df, indexColumn), nil
	case frame.IndexModule:
		if _, ok := call.Arg(0).([]bool); ok {
			return withIndex(df, indexColumn), nil
		}
	}
	return value, nil
}

func (b *Backend) BeforeCallUsedArgs(ctx *instrumentation.Context, call *instrumentation.Call, args []any) ([]any, error) {
	if call.Module != frame.MergeModule || len(args) == 0 {
		return args, nil
	}
	right, ok := args[0].(dataframe.DataFrame)
	if !ok {
		return args, nil
	}
	adjusted := append([]any{}, args...)
	adjusted[0] = withIndex(right, rightIndexColumn)
	return adjusted, nil
}

func (b *Backend) BeforeCallUsedKwargs(ctx *instrumentation.Context, call *instrumentation.Call, kwargs map[string]any) (map[string]any, error) {
	return kwargs, nil
}

func (b *Backend) AfterCallUsed(ctx *instrumentation.Context, call *instrumentation.Call, result any) (any, error) {
	df, ok := result.(dataframe.DataFrame)
	if !ok {
		return nil, fmt.Errorf("expected data frame, but had %T", result)
	}
	module := call.Module
	var lineage [][]inspections.RowRef
	var description string
	var err error
	switch module {
	case frame.ReadCSVModule:
		description = frame.FileName(call.Arg(0).(string))
	case frame.MergeModule:
		description = "on " + quoted(call.Arg(1).([]string))
		if df, lineage, err = joinLineage(df, call); err != nil {
			return nil, err
		}
	case frame.IndexModule:
		switch key := call.Arg(0).(type) {
		case []string:
			module = module.WithVariant(Projection)
			description = "to " + quoted(key)
			lineage = OneToOne(call.ValueOrigin, df.Nrow())
		default:
			module = module.WithVariant(Selection)
			description = "Select by mask: " + call.Code
			if df, lineage, err = selectionLineage(df, call); err != nil {
				return nil, err
			}
		}
		ctx.WirPostProcessing[call.Ref] = module.Variant
	case frame.AssignModule:
		description = "modifies " + quoted([]string{call.Arg(0).(string)})
		lineage = OneToOne(call.ValueOrigin, df.Nrow())
	case frame.DropNAModule:
		description = "dropna"
		if columns := call.Arg(0).([]string); len(columns) > 0 {
			description += " " + quoted(columns)
		}
		if df, lineage, err = selectionLineage(df, call); err != nil {
			return nil, err
		}
	case frame.ReplaceModule:
		description = fmt.Sprintf("Replace '%v' with '%v' in '%v'", call.Arg(1), call.Arg(2), call.Arg(0))
		lineage = OneToOne(call.ValueOrigin, df.Nrow())
	case frame.GroupByAggModule:
		description = fmt.Sprintf("Groupby '%v', Aggregate: '%v': ('%v', '%v')", call.Arg(0), call.Arg(3), call.Arg(1), call.Arg(2))
	default:
		return nil, fmt.Errorf("unsupported frame call: %v", module)
	}
	id := call.NodeID()
	ctx.Record(id, module, description, call.Code, df.Names())
	trace := &inspections.Trace{
		Operator: inspections.OperatorContext{Node: id, Operator: operatorMap[module], Module: module, Columns: df.Names()},
		Rows:     Rows(df),
		Lineage:  lineage,
	}
	if err = ctx.Visit(trace); err != nil {
		return nil, err
	}
	return df, nil
}

func joinLineage(df dataframe.DataFrame, call *instrumentation.Call) (dataframe.DataFrame, [][]inspections.RowRef, error) {
	left, err := readIndex(df, leftIndexColumn)
	if err != nil {
		return df, nil, err
	}
	right, err := readIndex(df, rightIndexColumn)
	if err != nil {
		return df, nil, err
	}
	df = df.Drop([]string{leftIndexColumn, rightIndexColumn})
	if call.ValueOrigin == nil || call.ArgOrigin(0) == nil {
		return df, nil, nil
	}
	lineage := make([][]inspections.RowRef, len(left))
	for i := range lineage {
		lineage[i] = []inspections.RowRef{call.ValueOrigin.Row(left[i]), call.ArgOrigin(0).Row(right[i])}
	}
	return df, lineage, df.Err
}

func selectionLineage(df dataframe.DataFrame, call *instrumentation.Call) (dataframe.DataFrame, [][]inspections.RowRef, error) {
	positions, err := readIndex(df, indexColumn)
	if err != nil {
		return df, nil, err
	}
	df = df.Drop([]string{indexColumn})
	if call.ValueOrigin == nil {
		return df, nil, nil
	}
	lineage := make([][]inspections.RowRef, len(positions))
	for i, position := range positions {
		lineage[i] = []inspections.RowRef{call.ValueOrigin.Row(position)}
	}
	return df, lineage, df.Err
}

func quoted(columns []string) string {
	items := make([]string, len(columns))
	for i, column := range columns {
		items[i] = "'" + column + "'"
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// ProcessWIR refines subscripts into projections and selections
func (b *Backend) ProcessWIR(ctx *instrumentation.Context, graph *wir.Graph) error {
	refined := 0
	err := graph.TraverseAndProcess(func(node *wir.Node) error {
		if node.Module != frame.IndexModule {
			return nil
		}
		variant, ok := ctx.WirPostProcessing[node.Ref].(string)
		if !ok {
			ctx.Log.Warnf("no subscript variant recorded for %v", node)
			return nil
		}
		refined++
		return graph.Replace(node.ID, node.WithModule(node.Module.WithVariant(variant)))
	})
	ctx.Log.Debugf("frame backend refined %d subscripts", refined)
	return err
}

func (b *Backend) ProcessDAG(ctx *instrumentation.Context, graph *dag.Graph) error {
	counts := map[dag.OperatorType]int{}
	for _, node := range graph.Nodes() {
		if _, ok := operatorMap[node.Module]; ok {
			counts[node.Operator]++
		}
	}
	ctx.Log.Debugf("frame backend operators: %v", counts)
	return nil
}

// New creates a frame backend
func New() *Backend {
	return &Backend{}
}
