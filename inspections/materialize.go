package inspections

import (
	"fmt"
)

// MaterializeFirstOutputRows keeps the first rows every operator produced
type MaterializeFirstOutputRows struct {
	Rows int
}

// NewMaterializeFirstOutputRows creates a materializing inspection
func NewMaterializeFirstOutputRows(rows int) *MaterializeFirstOutputRows {
	return &MaterializeFirstOutputRows{Rows: rows}
}

func (m *MaterializeFirstOutputRows) ID() string {
	return fmt.Sprintf("MaterializeFirstOutputRows(%d)", m.Rows)
}

func (m *MaterializeFirstOutputRows) Visit(op *OperatorContext, rows []RowInput) ([]any, any) {
	annotations := make([]any, len(rows))
	limit := m.Rows
	if limit > len(rows) {
		limit = len(rows)
	}
	output := make([]Row, 0, limit)
	for _, row := range rows[:limit] {
		output = append(output, Row{
			Columns: append([]string{}, row.Output.Columns...),
			Values:  append([]any{}, row.Output.Values...),
		})
	}
	return annotations, output
}
