package inspections

import (
	"strings"
)

// CompletenessOfColumns reports the share of non missing values per column.
// Columns an operator does not output are absent from its output.
type CompletenessOfColumns struct {
	Columns []string
}

// NewCompletenessOfColumns creates a completeness inspection
func NewCompletenessOfColumns(columns ...string) *CompletenessOfColumns {
	return &CompletenessOfColumns{Columns: columns}
}

func (c *CompletenessOfColumns) ID() string {
	return "CompletenessOfColumns(" + strings.Join(c.Columns, ",") + ")"
}

func (c *CompletenessOfColumns) Visit(op *OperatorContext, rows []RowInput) ([]any, any) {
	present := map[string]int{}
	total := map[string]int{}
	for _, row := range rows {
		for _, column := range c.Columns {
			value, ok := row.Output.Get(column)
			if !ok {
				continue
			}
			total[column]++
			if !IsMissing(value) {
				present[column]++
			}
		}
	}
	output := map[string]float64{}
	for column, count := range total {
		output[column] = float64(present[column]) / float64(count)
	}
	return make([]any, len(rows)), output
}

// CountDistinctOfColumns reports the number of distinct non missing values per column
type CountDistinctOfColumns struct {
	Columns []string
}

// NewCountDistinctOfColumns creates a distinct count inspection
func NewCountDistinctOfColumns(columns ...string) *CountDistinctOfColumns {
	return &CountDistinctOfColumns{Columns: columns}
}

func (c *CountDistinctOfColumns) ID() string {
	return "CountDistinctOfColumns(" + strings.Join(c.Columns, ",") + ")"
}

func (c *CountDistinctOfColumns) Visit(op *OperatorContext, rows []RowInput) ([]any, any) {
	distinct := map[string]map[Category]bool{}
	for _, row := range rows {
		for _, column := range c.Columns {
			value, ok := row.Output.Get(column)
			if !ok {
				continue
			}
			if distinct[column] == nil {
				distinct[column] = map[Category]bool{}
			}
			if !IsMissing(value) {
				distinct[column][CategoryOf(value)] = true
			}
		}
	}
	output := map[string]int{}
	for column, values := range distinct {
		output[column] = len(values)
	}
	return make([]any, len(rows)), output
}
