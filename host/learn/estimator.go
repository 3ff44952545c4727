package learn

import (
	"sort"

	"github.com/spf13/cast"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// DummyClassifierModule identifies the baseline classifier inside a pipeline
var DummyClassifierModule = wir.Module{Package: "learn.dummy", Function: "DummyClassifier", Variant: "Pipeline"}

// Estimator learns from encoded features
type Estimator interface {
	Module() wir.Module
	Description() string
	// Clone returns an unfitted copy, each pipeline fit trains its own
	Clone() Estimator
	Fit(features [][]float64, labels []any) error
	Predict(features [][]float64) []any
}

// DummyClassifier predicts the most frequent training label
type DummyClassifier struct {
	prediction any
}

// NewDummyClassifier creates a most frequent label classifier
func NewDummyClassifier() *DummyClassifier {
	return &DummyClassifier{}
}

func (d *DummyClassifier) Module() wir.Module { return DummyClassifierModule }

func (d *DummyClassifier) Description() string { return "Dummy Classifier" }

func (d *DummyClassifier) Clone() Estimator { return NewDummyClassifier() }

func (d *DummyClassifier) Fit(features [][]float64, labels []any) error {
	counts := map[string]int{}
	values := map[string]any{}
	for _, label := range labels {
		key := cast.ToString(label)
		counts[key]++
		values[key] = label
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var best string
	for i, key := range keys {
		if i == 0 || counts[key] > counts[best] {
			best = key
		}
	}
	d.prediction = values[best]
	return nil
}

func (d *DummyClassifier) Predict(features [][]float64) []any {
	result := make([]any, len(features))
	for i := range result {
		result[i] = d.prediction
	}
	return result
}
