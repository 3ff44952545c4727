package inspections

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/viant/mlinspect/instrumentation/dag"
)

// Category is a sensitive column value; Missing marks rows without a value
type Category struct {
	Value   string
	Missing bool
}

// MissingCategory groups rows with a missing value
var MissingCategory = Category{Missing: true}

// CategoryOf converts a cell value to a category
func CategoryOf(value any) Category {
	if IsMissing(value) {
		return MissingCategory
	}
	text, err := cast.ToStringE(value)
	if err != nil {
		text = fmt.Sprintf("%v", value)
	}
	return Category{Value: text}
}

func (c Category) String() string {
	if c.Missing {
		return "NaN"
	}
	return c.Value
}

// Less orders categories by value with the missing category last
func (c Category) Less(o Category) bool {
	if c.Missing != o.Missing {
		return o.Missing
	}
	return c.Value < o.Value
}

// Histogram counts rows per category
type Histogram map[Category]int

// Categories returns sorted categories
func (h Histogram) Categories() []Category {
	result := make([]Category, 0, len(h))
	for category := range h {
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result
}

// Total returns the number of counted rows
func (h Histogram) Total() int {
	total := 0
	for _, count := range h {
		total += count
	}
	return total
}

func (h Histogram) String() string {
	var parts []string
	for _, category := range h.Categories() {
		parts = append(parts, fmt.Sprintf("%v: %d", category, h[category]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ColumnHistograms is the HistogramForColumns output: a histogram per sensitive column
type ColumnHistograms map[string]Histogram

// HistogramForColumns counts sensitive column values of every operator output.
// Columns an operator no longer outputs are tracked through row annotations.
type HistogramForColumns struct {
	Columns []string
}

// NewHistogramForColumns creates a histogram inspection
func NewHistogramForColumns(columns ...string) *HistogramForColumns {
	return &HistogramForColumns{Columns: columns}
}

func (h *HistogramForColumns) ID() string {
	return "HistogramForColumns(" + strings.Join(h.Columns, ",") + ")"
}

// Visit annotates every row with the categories of the sensitive columns
func (h *HistogramForColumns) Visit(op *OperatorContext, rows []RowInput) ([]any, any) {
	output := ColumnHistograms{}
	for _, column := range h.Columns {
		output[column] = Histogram{}
	}
	annotations := make([]any, len(rows))
	for i, row := range rows {
		categories := make([]Category, len(h.Columns))
		for j, column := range h.Columns {
			categories[j] = h.category(op, row, j, column)
			output[column][categories[j]]++
		}
		annotations[i] = categories
	}
	return annotations, output
}

func (h *HistogramForColumns) category(op *OperatorContext, row RowInput, index int, column string) Category {
	if value, ok := row.Output.Get(column); ok {
		return CategoryOf(value)
	}
	if op.Operator == dag.DataSource {
		return MissingCategory
	}
	for _, annotation := range row.Annotations {
		categories, ok := annotation.([]Category)
		if !ok || index >= len(categories) {
			continue
		}
		if !categories[index].Missing {
			return categories[index]
		}
	}
	return MissingCategory
}
