package frame

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

type aggregate struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (a *aggregate) add(value float64) {
	if a.count == 0 || value < a.min {
		a.min = value
	}
	if a.count == 0 || value > a.max {
		a.max = value
	}
	a.count++
	a.sum += value
}

func (a *aggregate) value(function string) (float64, error) {
	switch function {
	case "count":
		return float64(a.count), nil
	case "sum":
		return a.sum, nil
	}
	if a.count == 0 {
		return math.NaN(), nil
	}
	switch function {
	case "mean":
		return a.sum / float64(a.count), nil
	case "min":
		return a.min, nil
	case "max":
		return a.max, nil
	}
	return 0, fmt.Errorf("unsupported aggregation: %v", function)
}

// groupByAgg aggregates column per distinct non missing value of by, groups are sorted by key
func groupByAgg(df dataframe.DataFrame, by, column, function, name string) (any, error) {
	keys := df.Col(by)
	if keys.Err != nil {
		return nil, keys.Err
	}
	values := df.Col(column)
	if values.Err != nil {
		return nil, values.Err
	}
	groups := map[string]*aggregate{}
	for i := 0; i < keys.Len(); i++ {
		key := keys.Elem(i)
		if key.IsNA() {
			continue
		}
		group, ok := groups[key.String()]
		if !ok {
			group = &aggregate{}
			groups[key.String()] = group
		}
		if value := values.Elem(i); !value.IsNA() {
			group.add(value.Float())
		}
	}
	var groupKeys []string
	for key := range groups {
		groupKeys = append(groupKeys, key)
	}
	sort.Slice(groupKeys, func(i, j int) bool {
		return keyLess(keys.Type(), groupKeys[i], groupKeys[j])
	})
	aggregated := make([]float64, len(groupKeys))
	for i, key := range groupKeys {
		value, err := groups[key].value(function)
		if err != nil {
			return nil, err
		}
		aggregated[i] = value
	}
	result := dataframe.New(
		series.New(groupKeys, keys.Type(), by),
		series.New(aggregated, series.Float, name),
	)
	return result, result.Err
}

func keyLess(keyType series.Type, a, b string) bool {
	if keyType == series.Int || keyType == series.Float {
		x := series.Strings([]string{a, b}).Float()
		return x[0] < x[1]
	}
	return a < b
}
