package inspections

import (
	"fmt"
	"sort"

	"github.com/viant/mlinspect/instrumentation/dag"
)

// LineageID identifies a row of a data source
type LineageID struct {
	Source dag.NodeID
	Row    int
}

func (l LineageID) String() string {
	return fmt.Sprintf("%v:%d", l.Source, l.Row)
}

// RowLineage tracks which data source rows every output row was derived from.
// The node output holds the lineage of the first Rows output rows.
type RowLineage struct {
	Rows int
}

// NewRowLineage creates a lineage inspection materializing the first rows of every operator
func NewRowLineage(rows int) *RowLineage {
	return &RowLineage{Rows: rows}
}

func (l *RowLineage) ID() string {
	return fmt.Sprintf("RowLineage(%d)", l.Rows)
}

// Visit unions the lineage of parent rows; source rows start a new lineage
func (l *RowLineage) Visit(op *OperatorContext, rows []RowInput) ([]any, any) {
	annotations := make([]any, len(rows))
	var output [][]LineageID
	for i, row := range rows {
		var lineage []LineageID
		if len(row.Annotations) == 0 {
			lineage = []LineageID{{Source: op.Node, Row: i}}
		} else {
			lineage = union(row.Annotations)
		}
		annotations[i] = lineage
		if i < l.Rows {
			output = append(output, lineage)
		}
	}
	return annotations, output
}

func union(annotations []any) []LineageID {
	seen := map[LineageID]bool{}
	var result []LineageID
	for _, annotation := range annotations {
		ids, _ := annotation.([]LineageID)
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			result = append(result, id)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Source != result[j].Source {
			return result[i].Source.Less(result[j].Source)
		}
		return result[i].Row < result[j].Row
	})
	return result
}
