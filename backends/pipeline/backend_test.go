package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mlinspect/backends/tabular"
	"github.com/viant/mlinspect/host/frame"
	"github.com/viant/mlinspect/host/learn"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation"
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/wir"
)

func location(t *testing.T, name string) string {
	URL, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)
	return URL
}

type run struct {
	session *instrumentation.Session
	data    *frame.Frame
	test    *frame.Frame
	model   *learn.Model
}

func runPipeline(t *testing.T, inspectionList ...inspections.Inspection) *run {
	ctx := context.Background()
	session := instrumentation.NewSession(
		instrumentation.WithBackends(tabular.New(), New()),
		instrumentation.WithInspections(inspectionList...),
	)
	data := frame.ReadCSV(ctx, session, location(t, "patients.csv"))
	require.NoError(t, data.Err)
	train, test := learn.TrainTestSplit(data, 0.25, 7)
	require.NoError(t, train.Err)
	trainLabels := train.Index([]string{"label"})
	testLabels := test.Index([]string{"label"})
	pipeline := learn.NewPipeline(learn.NewColumnTransformer(
		learn.Columns("categorical", []string{"smoker"}, learn.NewSimpleImputer("most_frequent"), learn.NewOneHotEncoder()),
		learn.Columns("numeric", []string{"age"}, learn.NewStandardScaler()),
	), learn.NewDummyClassifier())
	model := pipeline.Fit(train, trainLabels)
	require.NoError(t, model.Err)
	_, err := model.Score(test, testLabels)
	require.NoError(t, err)
	return &run{session: session, data: data, test: test, model: model}
}

func TestBackend_FitExpansion(t *testing.T) {
	histogram := inspections.NewHistogramForColumns("race")
	lineage := inspections.NewRowLineage(10)
	r := runPipeline(t, histogram, lineage)
	result, err := r.session.Finish(context.Background())
	require.NoError(t, err)

	counts := map[dag.OperatorType]int{}
	for _, node := range result.DAG.Nodes() {
		counts[node.Operator]++
	}
	assert.Equal(t, map[dag.OperatorType]int{
		dag.DataSource:     1,
		dag.TrainTestSplit: 1,
		dag.Projection:     4,
		dag.TrainData:      1,
		dag.TrainLabels:    1,
		dag.Transformer:    3,
		dag.Concatenation:  1,
		dag.Estimator:      1,
		dag.Score:          1,
	}, counts)
	assert.Equal(t, 17, len(result.DAG.Edges()))

	fit := r.model.Origin().Node
	part := func(name string) dag.NodeID {
		return dag.NodeID{Ref: fit.Ref, Part: name}
	}
	testCases := []struct {
		description string
		node        dag.NodeID
		parents     []string
	}{
		{description: "train data", node: part(TrainDataPart), parents: []string{string(dag.TrainTestSplit)}},
		{description: "train labels", node: part(TrainLabelsPart), parents: []string{string(dag.Projection)}},
		{description: "imputer", node: part("categorical: smoker: Simple Imputer"), parents: []string{string(dag.Projection)}},
		{description: "encoder", node: part("categorical: smoker: One-Hot Encoder"), parents: []string{string(dag.Transformer)}},
		{description: "concatenation", node: part(ConcatenationPart), parents: []string{string(dag.Transformer), string(dag.Transformer)}},
		{description: "estimator", node: part(EstimatorPart), parents: []string{string(dag.TrainLabels), string(dag.Concatenation)}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			require.NotNil(t, result.DAG.Node(testCase.node))
			var parents []string
			for _, parent := range result.DAG.Parents(testCase.node) {
				parents = append(parents, string(parent.Operator))
			}
			assert.ElementsMatch(t, testCase.parents, parents)
		})
	}

	imputer := result.DAG.Node(part("categorical: smoker: Simple Imputer"))
	assert.Equal(t, []string{"smoker"}, imputer.Columns)
	assert.Equal(t, learn.SimpleImputerModule, imputer.Module)
	encoder := result.DAG.Node(part("categorical: smoker: One-Hot Encoder"))
	assert.Equal(t, []string{"array"}, encoder.Columns)

	trainData, ok := result.Output(histogram, part(TrainDataPart))
	require.True(t, ok)
	estimator, ok := result.Output(histogram, part(EstimatorPart))
	require.True(t, ok)
	assert.Equal(t, trainData, estimator)
	assert.Equal(t, 6, estimator.(inspections.ColumnHistograms)["race"].Total())

	var score *dag.Node
	for _, node := range result.DAG.Nodes() {
		if node.Operator == dag.Score {
			score = node
		}
	}
	require.NotNil(t, score)
	output, ok := result.Output(lineage, score.ID)
	require.True(t, ok)
	var expect [][]inspections.LineageID
	for _, ssn := range r.test.Col("ssn").Records() {
		expect = append(expect, []inspections.LineageID{{Source: r.data.Origin().Node, Row: cast.ToInt(ssn) - 1}})
	}
	assert.Equal(t, expect, output)
}

func TestBackend_UnexpandedFit(t *testing.T) {
	r := runPipeline(t)
	delete(r.session.Context().WirPostProcessing, r.model.Origin().Node.Ref)
	_, err := r.session.Finish(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, instrumentation.ErrUnknownOperator))
}

func TestBackend_ProcessDAG(t *testing.T) {
	source := &dag.Node{ID: dag.NodeID{Ref: wir.CodeReference{Line: 1}}, Operator: dag.DataSource}
	transformer := &dag.Node{ID: dag.NodeID{Ref: wir.CodeReference{Line: 2}}, Operator: dag.Transformer}
	projection := &dag.Node{ID: dag.NodeID{Ref: wir.CodeReference{Line: 3}}, Operator: dag.Projection}

	testCases := []struct {
		description string
		nodes       []*dag.Node
		edges       [][2]*dag.Node
		expectErr   bool
	}{
		{description: "projected", nodes: []*dag.Node{source, projection, transformer}, edges: [][2]*dag.Node{{source, projection}, {projection, transformer}}},
		{description: "unprojected", nodes: []*dag.Node{source, transformer}, edges: [][2]*dag.Node{{source, transformer}}, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			graph := dag.NewGraph()
			for _, node := range testCase.nodes {
				require.NoError(t, graph.AddNode(node))
			}
			for _, edge := range testCase.edges {
				require.NoError(t, graph.AddEdge(edge[0].ID, edge[1].ID))
			}
			err := New().ProcessDAG(instrumentation.NewContext(), graph)
			if !testCase.expectErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, dag.ErrGraphShape))
		})
	}
}

func TestBackend_Register(t *testing.T) {
	custom := wir.Module{Package: "learn.custom", Function: "Binarizer", Variant: "Pipeline"}
	backend := New()
	dispatcher := instrumentation.NewDispatcher(tabular.New(), backend)
	_, ok := dispatcher.Operator(custom)
	assert.False(t, ok)
	backend.Register(custom, dag.Transformer)
	operator, ok := dispatcher.Operator(custom)
	assert.True(t, ok)
	assert.Equal(t, dag.Transformer, operator)
	_, ok = New().OperatorMap()[custom]
	assert.False(t, ok)
}
