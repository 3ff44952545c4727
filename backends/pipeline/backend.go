package pipeline

import (
	"fmt"

	"github.com/viant/mlinspect/backends/tabular"
	"github.com/viant/mlinspect/host/learn"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation"
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Synthetic modules a fit call expands into
var (
	TrainDataModule     = learn.FitModule.WithVariant("Train Data")
	TrainLabelsModule   = learn.FitModule.WithVariant("Train Labels")
	ProjectionModule    = wir.Module{Package: "learn.compose", Function: "ColumnTransformer", Variant: "Projection"}
	ConcatenationModule = wir.Module{Package: "learn.compose", Function: "ColumnTransformer", Variant: "Concatenation"}
)

// Parts of an expanded fit call
const (
	TrainDataPart     = "Train Data"
	TrainLabelsPart   = "Train Labels"
	ConcatenationPart = "Concatenation"
	EstimatorPart     = "Estimator"
)

// arrayColumn names outputs that no longer hold the values of a named column
const arrayColumn = "array"

func defaultOperatorMap() map[wir.Module]dag.OperatorType {
	return map[wir.Module]dag.OperatorType{
		learn.TrainTestSplitModule:  dag.TrainTestSplit,
		TrainDataModule:             dag.TrainData,
		TrainLabelsModule:           dag.TrainLabels,
		ProjectionModule:            dag.Projection,
		ConcatenationModule:         dag.Concatenation,
		learn.SimpleImputerModule:   dag.Transformer,
		learn.OneHotEncoderModule:   dag.Transformer,
		learn.StandardScalerModule:  dag.Transformer,
		learn.DummyClassifierModule: dag.Estimator,
		learn.ScoreModule:           dag.Score,
		learn.PredictModule:         dag.Predict,
	}
}

// part is one node of an expanded fit call
type part struct {
	name        string
	module      wir.Module
	description string
	parents     []string
	slot        int // positional argument of the fit call routed to this part, or -1
}

// expansion is the plan of nodes replacing a fit call
type expansion struct {
	parts []*part
}

func (e *expansion) add(p *part) *part {
	name, suffix := p.name, 2
	for e.has(p.name) {
		p.name = fmt.Sprintf("%v (%d)", name, suffix)
		suffix++
	}
	e.parts = append(e.parts, p)
	return p
}

func (e *expansion) has(name string) bool {
	for _, candidate := range e.parts {
		if candidate.name == name {
			return true
		}
	}
	return false
}

// Backend instruments host/learn calls
type Backend struct {
	operators map[wir.Module]dag.OperatorType
}

func (b *Backend) Name() string {
	return "learn"
}

func (b *Backend) IsResponsibleForCall(fn wir.Module, prefix string) bool {
	return prefix == "learn"
}

func (b *Backend) OperatorMap() map[wir.Module]dag.OperatorType {
	return b.operators
}

// Register maps a custom transformer or estimator module to an operator, the module package must start with learn
func (b *Backend) Register(module wir.Module, operator dag.OperatorType) {
	b.operators[module] = operator
}

func (b *Backend) BeforeCallUsedValue(ctx *instrumentation.Context, call *instrumentation.Call, value any) (any, error) {
	return value, nil
}

func (b *Backend) BeforeCallUsedArgs(ctx *instrumentation.Context, call *instrumentation.Call, args []any) ([]any, error) {
	return args, nil
}

func (b *Backend) BeforeCallUsedKwargs(ctx *instrumentation.Context, call *instrumentation.Call, kwargs map[string]any) (map[string]any, error) {
	return kwargs, nil
}

func (b *Backend) AfterCallUsed(ctx *instrumentation.Context, call *instrumentation.Call, result any) (any, error) {
	var err error
	switch call.Module {
	case learn.TrainTestSplitModule:
		err = b.afterSplit(ctx, call, result.(*learn.Split))
	case learn.FitModule:
		err = b.afterFit(ctx, call, result.(*learn.Model))
	case learn.ScoreModule, learn.PredictModule:
		err = b.afterEvaluation(ctx, call, result.(*learn.Evaluation))
	default:
		err = fmt.Errorf("unsupported learn call: %v", call.Module)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *Backend) afterSplit(ctx *instrumentation.Context, call *instrumentation.Call, split *learn.Split) error {
	id := call.NodeID()
	columns := split.Train.Names()
	ctx.Record(id, call.Module, "(Train Data), (Test Data)", call.Code, columns)
	rows := append(tabular.Rows(split.Train), tabular.Rows(split.Test)...)
	var lineage [][]inspections.RowRef
	if origin := call.ArgOrigin(0); origin != nil {
		lineage = make([][]inspections.RowRef, len(split.Positions))
		for i, position := range split.Positions {
			lineage[i] = []inspections.RowRef{origin.Row(position)}
		}
	}
	return ctx.Visit(&inspections.Trace{
		Operator: inspections.OperatorContext{Node: id, Operator: dag.TrainTestSplit, Module: call.Module, Columns: columns},
		Rows:     rows,
		Lineage:  lineage,
	})
}

// afterFit inspects every node the fit call expands into and records the expansion for WIR processing
func (b *Backend) afterFit(ctx *instrumentation.Context, call *instrumentation.Call, model *learn.Model) error {
	record := model.Record
	plan := &expansion{}
	visit := func(p *part, columns []string, rows []inspections.Row, lineage [][]inspections.RowRef) error {
		id := call.PartID(p.name)
		ctx.Record(id, p.module, p.description, call.Code, columns)
		return ctx.Visit(&inspections.Trace{
			Operator: inspections.OperatorContext{Node: id, Operator: b.operators[p.module], Module: p.module, Columns: columns},
			Rows:     rows,
			Lineage:  lineage,
		})
	}

	trainData := plan.add(&part{name: TrainDataPart, module: TrainDataModule, slot: 0})
	if err := visit(trainData, record.Train.Names(), tabular.Rows(record.Train), tabular.OneToOne(call.ArgOrigin(0), record.Train.Nrow())); err != nil {
		return err
	}
	trainLabels := plan.add(&part{name: TrainLabelsPart, module: TrainLabelsModule, slot: 1})
	if err := visit(trainLabels, record.Labels.Names(), tabular.Rows(record.Labels), tabular.OneToOne(call.ArgOrigin(1), record.Labels.Nrow())); err != nil {
		return err
	}

	var encoded []*part
	for _, column := range record.Columns {
		projection := plan.add(&part{
			name:        column.Transform + ": " + column.Column,
			module:      ProjectionModule,
			description: "to ['" + column.Column + "']",
			parents:     []string{trainData.name},
			slot:        -1,
		})
		if err := visit(projection, []string{column.Column}, columnRows([]string{column.Column}, column.Input), chain(call, trainData, len(column.Input))); err != nil {
			return err
		}
		previous := projection
		for _, step := range column.Steps {
			transformer := plan.add(&part{
				name:        column.Transform + ": " + column.Column + ": " + step.Description,
				module:      step.Module,
				description: step.Description + ": fit_transform",
				parents:     []string{previous.name},
				slot:        -1,
			})
			columns := []string{arrayColumn}
			var rowColumns []string
			if step.KeepsColumn {
				columns = []string{column.Column}
				rowColumns = columns
			}
			if err := visit(transformer, columns, columnRows(rowColumns, step.Output), chain(call, previous, len(step.Output))); err != nil {
				return err
			}
			previous = transformer
		}
		encoded = append(encoded, previous)
	}

	concatenation := plan.add(&part{name: ConcatenationPart, module: ConcatenationModule, slot: -1})
	lineage := make([][]inspections.RowRef, len(record.Features))
	rows := make([]inspections.Row, len(record.Features))
	for i, features := range record.Features {
		rows[i] = inspections.Row{Values: []any{features}}
		for _, parent := range encoded {
			lineage[i] = append(lineage[i], inspections.RowRef{Node: call.PartID(parent.name), Index: i})
		}
	}
	for _, parent := range encoded {
		concatenation.parents = append(concatenation.parents, parent.name)
	}
	if len(encoded) == 0 {
		lineage = nil
	}
	if err := visit(concatenation, []string{arrayColumn}, rows, lineage); err != nil {
		return err
	}

	estimator := model.Pipeline().Estimator
	estimatorPart := plan.add(&part{
		name:        EstimatorPart,
		module:      estimator.Module(),
		description: estimator.Description(),
		parents:     []string{concatenation.name, trainLabels.name},
		slot:        -1,
	})
	if _, ok := b.operators[estimatorPart.module]; !ok {
		return fmt.Errorf("estimator %v has no operator mapping", estimatorPart.module)
	}
	lineage = make([][]inspections.RowRef, len(record.Predictions))
	rows = make([]inspections.Row, len(record.Predictions))
	for i, prediction := range record.Predictions {
		rows[i] = inspections.Row{Columns: []string{"prediction"}, Values: []any{prediction}}
		lineage[i] = []inspections.RowRef{
			{Node: call.PartID(concatenation.name), Index: i},
			{Node: call.PartID(trainLabels.name), Index: i},
		}
	}
	if err := visit(estimatorPart, []string{"prediction"}, rows, lineage); err != nil {
		return err
	}
	ctx.WirPostProcessing[call.Ref] = plan
	return nil
}

// chain maps every row to the same row of a preceding part
func chain(call *instrumentation.Call, parent *part, rows int) [][]inspections.RowRef {
	return tabular.OneToOne(&instrumentation.Origin{Node: call.PartID(parent.name)}, rows)
}

func columnRows(columns []string, values []any) []inspections.Row {
	rows := make([]inspections.Row, len(values))
	for i, value := range values {
		rows[i] = inspections.Row{Columns: columns, Values: []any{value}}
	}
	return rows
}

func (b *Backend) afterEvaluation(ctx *instrumentation.Context, call *instrumentation.Call, evaluation *learn.Evaluation) error {
	id := call.NodeID()
	columns := []string{"prediction"}
	description := "Predict"
	if call.Module == learn.ScoreModule {
		columns = append(columns, "label")
		description = fmt.Sprintf("Score: accuracy %.4f", evaluation.Accuracy)
	}
	ctx.Record(id, call.Module, description, call.Code, columns)
	rows := make([]inspections.Row, len(evaluation.Predictions))
	for i, prediction := range evaluation.Predictions {
		values := []any{prediction}
		if call.Module == learn.ScoreModule {
			values = append(values, evaluation.Labels[i])
		}
		rows[i] = inspections.Row{Columns: columns, Values: values}
	}
	var lineage [][]inspections.RowRef
	if test := call.ArgOrigin(0); test != nil {
		lineage = make([][]inspections.RowRef, len(rows))
		for i := range lineage {
			lineage[i] = []inspections.RowRef{test.Row(i)}
			if labels := call.ArgOrigin(1); labels != nil {
				lineage[i] = append(lineage[i], labels.Row(i))
			}
		}
	}
	return ctx.Visit(&inspections.Trace{
		Operator: inspections.OperatorContext{Node: id, Operator: b.operators[call.Module], Module: call.Module, Columns: columns},
		Rows:     rows,
		Lineage:  lineage,
	})
}

// ProcessWIR replaces every fit node with the nodes of its expansion
func (b *Backend) ProcessWIR(ctx *instrumentation.Context, graph *wir.Graph) error {
	expanded := 0
	err := graph.TraverseAndProcess(func(node *wir.Node) error {
		if node.Module != learn.FitModule || node.Part != "" {
			return nil
		}
		plan, ok := ctx.WirPostProcessing[node.Ref].(*expansion)
		if !ok {
			ctx.Log.Warnf("no expansion recorded for %v", node)
			return nil
		}
		expanded++
		return b.expand(graph, node, plan)
	})
	ctx.Log.Debugf("learn backend expanded %d fit calls", expanded)
	return err
}

func (b *Backend) expand(graph *wir.Graph, node *wir.Node, plan *expansion) error {
	ids := map[string]int{}
	slots := map[string]string{}
	for _, p := range plan.parts {
		synthetic := &wir.Node{
			ID:          graph.NextID(),
			Name:        p.module.Function,
			Operation:   wir.Synthetic,
			Ref:         node.Ref,
			Part:        p.name,
			Module:      p.module,
			Description: p.description,
			SourceCode:  node.SourceCode,
		}
		if err := graph.AddNode(synthetic); err != nil {
			return err
		}
		ids[p.name] = synthetic.ID
		if p.slot >= 0 {
			slots[wir.ArgSlot(p.slot)] = p.name
		}
	}
	for _, p := range plan.parts {
		for i, parent := range p.parents {
			if err := graph.AddEdge(ids[parent], ids[p.name], wir.ArgSlot(i)); err != nil {
				return err
			}
		}
	}
	for _, edge := range graph.InEdges(node.ID) {
		target, ok := slots[edge.Slot]
		if !ok {
			continue
		}
		if err := graph.AddEdge(edge.From, ids[target], edge.Slot); err != nil {
			return err
		}
	}
	estimator := plan.parts[len(plan.parts)-1].name
	for _, edge := range graph.OutEdges(node.ID) {
		if err := graph.AddEdge(ids[estimator], edge.To, edge.Slot); err != nil {
			return err
		}
	}
	graph.Remove(node.ID)
	return nil
}

// ProcessDAG verifies every transformer reads a projected column
func (b *Backend) ProcessDAG(ctx *instrumentation.Context, graph *dag.Graph) error {
	transformers := 0
	for _, node := range graph.Nodes() {
		if node.Operator != dag.Transformer {
			continue
		}
		transformers++
		if !hasProjectionAncestor(graph, node.ID) {
			return fmt.Errorf("transformer %v has no projection ancestor: %w", node.ID, dag.ErrGraphShape)
		}
	}
	ctx.Log.Debugf("learn backend verified %d transformers", transformers)
	return nil
}

func hasProjectionAncestor(graph *dag.Graph, id dag.NodeID) bool {
	visited := map[dag.NodeID]bool{id: true}
	queue := []dag.NodeID{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, parent := range graph.Parents(current) {
			if parent.Operator == dag.Projection {
				return true
			}
			if !visited[parent.ID] {
				visited[parent.ID] = true
				queue = append(queue, parent.ID)
			}
		}
	}
	return false
}

// New creates a learn backend
func New() *Backend {
	return &Backend{operators: defaultOperatorMap()}
}
