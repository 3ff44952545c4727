package learn

import (
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cast"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Transformer modules
var (
	SimpleImputerModule  = wir.Module{Package: "learn.impute", Function: "SimpleImputer", Variant: "Pipeline"}
	OneHotEncoderModule  = wir.Module{Package: "learn.preprocessing", Function: "OneHotEncoder", Variant: "Pipeline"}
	StandardScalerModule = wir.Module{Package: "learn.preprocessing", Function: "StandardScaler", Variant: "Pipeline"}
)

// Transformer transforms the values of one column. Fit and Transform work on a clone per column.
type Transformer interface {
	Module() wir.Module
	Description() string
	// KeepsColumn returns true if the output still holds the values of the input column
	KeepsColumn() bool
	Clone() Transformer
	Fit(values []any) error
	Transform(values []any) ([]any, error)
}

func isMissing(value any) bool {
	switch actual := value.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(actual)
	}
	return false
}

// SimpleImputer replaces missing values with the most frequent value or the mean
type SimpleImputer struct {
	Strategy string
	fill     any
}

// NewSimpleImputer creates an imputer, strategy is most_frequent or mean
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

func (s *SimpleImputer) Module() wir.Module { return SimpleImputerModule }

func (s *SimpleImputer) Description() string { return "Simple Imputer" }

func (s *SimpleImputer) KeepsColumn() bool { return true }

func (s *SimpleImputer) Clone() Transformer { return &SimpleImputer{Strategy: s.Strategy} }

func (s *SimpleImputer) Fit(values []any) error {
	switch s.Strategy {
	case "most_frequent":
		counts := map[string]int{}
		first := map[string]any{}
		for _, value := range values {
			if isMissing(value) {
				continue
			}
			key := cast.ToString(value)
			if _, ok := first[key]; !ok {
				first[key] = value
			}
			counts[key]++
		}
		keys := make([]string, 0, len(counts))
		for key := range counts {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		best := ""
		for _, key := range keys {
			if best == "" || counts[key] > counts[best] {
				best = key
			}
		}
		s.fill = first[best]
	case "mean":
		sum, count := 0.0, 0
		for _, value := range values {
			if isMissing(value) {
				continue
			}
			number, err := cast.ToFloat64E(value)
			if err != nil {
				return fmt.Errorf("mean imputation of non numeric value %v: %w", value, err)
			}
			sum += number
			count++
		}
		s.fill = math.NaN()
		if count > 0 {
			s.fill = sum / float64(count)
		}
	default:
		return fmt.Errorf("unsupported imputation strategy: %v", s.Strategy)
	}
	return nil
}

func (s *SimpleImputer) Transform(values []any) ([]any, error) {
	result := make([]any, len(values))
	for i, value := range values {
		if isMissing(value) {
			value = s.fill
		}
		result[i] = value
	}
	return result, nil
}

// OneHotEncoder encodes categories as indicator vectors; unknown and missing values encode as zeros
type OneHotEncoder struct {
	categories []string
	index      map[string]int
}

// NewOneHotEncoder creates an encoder
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

func (o *OneHotEncoder) Module() wir.Module { return OneHotEncoderModule }

func (o *OneHotEncoder) Description() string { return "One-Hot Encoder" }

func (o *OneHotEncoder) KeepsColumn() bool { return false }

func (o *OneHotEncoder) Clone() Transformer { return NewOneHotEncoder() }

// Categories returns the fitted categories
func (o *OneHotEncoder) Categories() []string {
	return o.categories
}

func (o *OneHotEncoder) Fit(values []any) error {
	o.index = map[string]int{}
	o.categories = nil
	for _, value := range values {
		if isMissing(value) {
			continue
		}
		key := cast.ToString(value)
		if _, ok := o.index[key]; ok {
			continue
		}
		o.index[key] = 0
		o.categories = append(o.categories, key)
	}
	sort.Strings(o.categories)
	for i, category := range o.categories {
		o.index[category] = i
	}
	return nil
}

func (o *OneHotEncoder) Transform(values []any) ([]any, error) {
	result := make([]any, len(values))
	for i, value := range values {
		vector := make([]float64, len(o.categories))
		if !isMissing(value) {
			if position, ok := o.index[cast.ToString(value)]; ok {
				vector[position] = 1
			}
		}
		result[i] = vector
	}
	return result, nil
}

// StandardScaler centers values to zero mean and unit variance
type StandardScaler struct {
	mean float64
	std  float64
}

// NewStandardScaler creates a scaler
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{std: 1}
}

func (s *StandardScaler) Module() wir.Module { return StandardScalerModule }

func (s *StandardScaler) Description() string { return "Standard Scaler" }

func (s *StandardScaler) KeepsColumn() bool { return false }

func (s *StandardScaler) Clone() Transformer { return NewStandardScaler() }

func (s *StandardScaler) Fit(values []any) error {
	numbers, err := toFloats(values)
	if err != nil {
		return err
	}
	sum, count := 0.0, 0
	for _, number := range numbers {
		if !math.IsNaN(number) {
			sum += number
			count++
		}
	}
	if count == 0 {
		s.mean, s.std = 0, 1
		return nil
	}
	s.mean = sum / float64(count)
	variance := 0.0
	for _, number := range numbers {
		if !math.IsNaN(number) {
			variance += (number - s.mean) * (number - s.mean)
		}
	}
	s.std = math.Sqrt(variance / float64(count))
	if s.std == 0 {
		s.std = 1
	}
	return nil
}

func (s *StandardScaler) Transform(values []any) ([]any, error) {
	numbers, err := toFloats(values)
	if err != nil {
		return nil, err
	}
	result := make([]any, len(numbers))
	for i, number := range numbers {
		result[i] = (number - s.mean) / s.std
	}
	return result, nil
}

func toFloats(values []any) ([]float64, error) {
	result := make([]float64, len(values))
	for i, value := range values {
		if isMissing(value) {
			result[i] = math.NaN()
			continue
		}
		number, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("non numeric value %v: %w", value, err)
		}
		result[i] = number
	}
	return result, nil
}
