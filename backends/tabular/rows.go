package tabular

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation"
)

// Rows converts a gota frame into inspection rows, missing cells become nil
func Rows(df dataframe.DataFrame) []inspections.Row {
	names := df.Names()
	columns := make([]series.Series, len(names))
	for i, name := range names {
		columns[i] = df.Col(name)
	}
	rows := make([]inspections.Row, df.Nrow())
	for i := range rows {
		values := make([]any, len(columns))
		for j, column := range columns {
			element := column.Elem(i)
			if element.IsNA() {
				continue
			}
			values[j] = element.Val()
		}
		rows[i] = inspections.Row{Columns: names, Values: values}
	}
	return rows
}

// OneToOne returns lineage mapping every output row to the same row of origin
func OneToOne(origin *instrumentation.Origin, rows int) [][]inspections.RowRef {
	if origin == nil {
		return nil
	}
	lineage := make([][]inspections.RowRef, rows)
	for i := range lineage {
		lineage[i] = []inspections.RowRef{origin.Row(i)}
	}
	return lineage
}

func withIndex(df dataframe.DataFrame, name string) dataframe.DataFrame {
	positions := make([]int, df.Nrow())
	for i := range positions {
		positions[i] = i
	}
	return df.Mutate(series.New(positions, series.Int, name))
}

func readIndex(df dataframe.DataFrame, name string) ([]int, error) {
	column := df.Col(name)
	if column.Err != nil {
		return nil, column.Err
	}
	return column.Int()
}
