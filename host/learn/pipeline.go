package learn

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cast"
	"github.com/viant/mlinspect/host/frame"
	"github.com/viant/mlinspect/instrumentation"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Instrumented pipeline functions
var (
	FitModule     = wir.Module{Package: "learn.Pipeline", Function: "Fit"}
	ScoreModule   = wir.Module{Package: "learn.Model", Function: "Score"}
	PredictModule = wir.Module{Package: "learn.Model", Function: "Predict"}
)

// ColumnTransform applies a chain of transformers to each of its columns separately
type ColumnTransform struct {
	Name    string
	Columns []string
	Steps   []Transformer
}

// Columns creates a column transform
func Columns(name string, columns []string, steps ...Transformer) ColumnTransform {
	return ColumnTransform{Name: name, Columns: columns, Steps: steps}
}

// ColumnTransformer encodes the feature columns and concatenates the results
type ColumnTransformer struct {
	Transforms []ColumnTransform
}

// NewColumnTransformer creates a column transformer
func NewColumnTransformer(transforms ...ColumnTransform) *ColumnTransformer {
	return &ColumnTransformer{Transforms: transforms}
}

// Pipeline encodes features and fits an estimator
type Pipeline struct {
	Features  *ColumnTransformer
	Estimator Estimator
}

// NewPipeline creates a pipeline
func NewPipeline(features *ColumnTransformer, estimator Estimator) *Pipeline {
	return &Pipeline{Features: features, Estimator: estimator}
}

// StepRecord is the output of one transformer for one column
type StepRecord struct {
	Module      wir.Module
	Description string
	KeepsColumn bool
	Output      []any
}

// ColumnRecord holds the intermediate values of one encoded column
type ColumnRecord struct {
	Transform string
	Column    string
	Input     []any
	Steps     []StepRecord
}

// FitRecord keeps every intermediate value of a pipeline fit
type FitRecord struct {
	Train       dataframe.DataFrame
	Labels      dataframe.DataFrame
	LabelValues []any
	Columns     []ColumnRecord
	Features    [][]float64
	Predictions []any
}

// Evaluation is the outcome of a Score or Predict call
type Evaluation struct {
	Predictions []any
	Labels      []any
	Accuracy    float64
}

type fittedColumn struct {
	column string
	steps  []Transformer
}

// Model is a fitted pipeline
type Model struct {
	pipeline  *Pipeline
	columns   []fittedColumn
	estimator Estimator
	Record    *FitRecord
	origin    *instrumentation.Origin
	Err       error
}

// Origin returns the fit call node
func (m *Model) Origin() *instrumentation.Origin {
	if m == nil {
		return nil
	}
	return m.origin
}

// Pipeline returns the fitted pipeline
func (m *Model) Pipeline() *Pipeline {
	return m.pipeline
}

// Fit fits the pipeline on train data and labels
func (p *Pipeline) Fit(train, labels *frame.Frame) *Model {
	if train.Err != nil {
		return &Model{Err: train.Err}
	}
	if labels.Err != nil {
		return &Model{Err: labels.Err}
	}
	session := train.Session()
	call := session.CallSite(train.Context(), FitModule, wir.Call, 0)
	call.ArgOrigins = []*instrumentation.Origin{train.Origin(), labels.Origin()}
	value, err := session.Invoke(call, p, []any{train.DataFrame(), labels.DataFrame()}, nil, func(value any, args []any, _ map[string]any) (any, error) {
		return value.(*Pipeline).fit(args[0].(dataframe.DataFrame), args[1].(dataframe.DataFrame))
	})
	if err != nil {
		return &Model{Err: err}
	}
	model := value.(*Model)
	model.origin = &instrumentation.Origin{Node: call.NodeID()}
	return model
}

func (p *Pipeline) fit(train, labels dataframe.DataFrame) (*Model, error) {
	labelValues, err := labelsOf(labels)
	if err != nil {
		return nil, err
	}
	if len(labelValues) != train.Nrow() {
		return nil, fmt.Errorf("%d labels for %d rows", len(labelValues), train.Nrow())
	}
	model := &Model{pipeline: p, estimator: p.Estimator.Clone()}
	record := &FitRecord{Train: train, Labels: labels, LabelValues: labelValues}
	for _, transform := range p.Features.Transforms {
		for _, column := range transform.Columns {
			input, err := valuesOf(train, column)
			if err != nil {
				return nil, err
			}
			columnRecord := ColumnRecord{Transform: transform.Name, Column: column, Input: input}
			fitted := fittedColumn{column: column}
			values := input
			for _, step := range transform.Steps {
				transformer := step.Clone()
				if err = transformer.Fit(values); err != nil {
					return nil, fmt.Errorf("failed to fit %v on %v: %w", transformer.Description(), column, err)
				}
				if values, err = transformer.Transform(values); err != nil {
					return nil, fmt.Errorf("failed to transform %v with %v: %w", column, transformer.Description(), err)
				}
				fitted.steps = append(fitted.steps, transformer)
				columnRecord.Steps = append(columnRecord.Steps, StepRecord{
					Module:      transformer.Module(),
					Description: transformer.Description(),
					KeepsColumn: transformer.KeepsColumn(),
					Output:      values,
				})
			}
			model.columns = append(model.columns, fitted)
			record.Columns = append(record.Columns, columnRecord)
		}
	}
	if record.Features, err = assemble(record.Columns, train.Nrow()); err != nil {
		return nil, err
	}
	if err = model.estimator.Fit(record.Features, labelValues); err != nil {
		return nil, err
	}
	record.Predictions = model.estimator.Predict(record.Features)
	model.Record = record
	return model, nil
}

// transform encodes data with the fitted transformers
func (m *Model) transform(data dataframe.DataFrame) ([][]float64, error) {
	var records []ColumnRecord
	for _, fitted := range m.columns {
		values, err := valuesOf(data, fitted.column)
		if err != nil {
			return nil, err
		}
		record := ColumnRecord{Column: fitted.column, Input: values}
		for _, transformer := range fitted.steps {
			if values, err = transformer.Transform(values); err != nil {
				return nil, err
			}
			record.Steps = append(record.Steps, StepRecord{Output: values})
		}
		records = append(records, record)
	}
	return assemble(records, data.Nrow())
}

// Score returns the accuracy of the model on test data
func (m *Model) Score(test, labels *frame.Frame) (float64, error) {
	evaluation, err := m.evaluate(ScoreModule, test, labels)
	if err != nil {
		return 0, err
	}
	return evaluation.Accuracy, nil
}

// Predict returns predictions for test data
func (m *Model) Predict(test *frame.Frame) ([]any, error) {
	evaluation, err := m.evaluate(PredictModule, test, nil)
	if err != nil {
		return nil, err
	}
	return evaluation.Predictions, nil
}

func (m *Model) evaluate(module wir.Module, test, labels *frame.Frame) (*Evaluation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if test.Err != nil {
		return nil, test.Err
	}
	args := []any{test.DataFrame()}
	origins := []*instrumentation.Origin{test.Origin()}
	if labels != nil {
		if labels.Err != nil {
			return nil, labels.Err
		}
		args = append(args, labels.DataFrame())
		origins = append(origins, labels.Origin())
	}
	session := test.Session()
	call := session.CallSite(test.Context(), module, wir.Call, 1)
	call.ValueOrigin = m.origin
	call.ArgOrigins = origins
	value, err := session.Invoke(call, m, args, nil, func(value any, args []any, _ map[string]any) (any, error) {
		model := value.(*Model)
		data := args[0].(dataframe.DataFrame)
		features, err := model.transform(data)
		if err != nil {
			return nil, err
		}
		evaluation := &Evaluation{Predictions: model.estimator.Predict(features)}
		if len(args) < 2 {
			return evaluation, nil
		}
		if evaluation.Labels, err = labelsOf(args[1].(dataframe.DataFrame)); err != nil {
			return nil, err
		}
		if len(evaluation.Labels) != len(evaluation.Predictions) {
			return nil, fmt.Errorf("%d labels for %d rows", len(evaluation.Labels), len(evaluation.Predictions))
		}
		correct := 0
		for i, prediction := range evaluation.Predictions {
			if cast.ToString(prediction) == cast.ToString(evaluation.Labels[i]) {
				correct++
			}
		}
		if len(evaluation.Predictions) > 0 {
			evaluation.Accuracy = float64(correct) / float64(len(evaluation.Predictions))
		}
		return evaluation, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Evaluation), nil
}

func valuesOf(df dataframe.DataFrame, column string) ([]any, error) {
	series := df.Col(column)
	if series.Err != nil {
		return nil, series.Err
	}
	values := make([]any, series.Len())
	for i := range values {
		element := series.Elem(i)
		if !element.IsNA() {
			values[i] = element.Val()
		}
	}
	return values, nil
}

func labelsOf(df dataframe.DataFrame) ([]any, error) {
	names := df.Names()
	if len(names) != 1 {
		return nil, fmt.Errorf("expected a single label column, but had %v", names)
	}
	return valuesOf(df, names[0])
}

// assemble concatenates the encoded columns into feature vectors
func assemble(columns []ColumnRecord, rows int) ([][]float64, error) {
	features := make([][]float64, rows)
	for _, column := range columns {
		output := column.Input
		if len(column.Steps) > 0 {
			output = column.Steps[len(column.Steps)-1].Output
		}
		for i, value := range output {
			switch actual := value.(type) {
			case []float64:
				features[i] = append(features[i], actual...)
			case nil:
				features[i] = append(features[i], math.NaN())
			default:
				number, err := cast.ToFloat64E(value)
				if err != nil {
					return nil, fmt.Errorf("column %v is not numeric after encoding: %w", column.Column, err)
				}
				features[i] = append(features[i], number)
			}
		}
	}
	return features, nil
}
