package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation/dag"
)

// DefaultIllegalFeatures are column names that should never be model features
var DefaultIllegalFeatures = []string{"race", "gender", "age"}

// NoIllegalFeatures fails when a model is trained on an illegal column
type NoIllegalFeatures struct {
	Additional []string
}

// NewNoIllegalFeatures creates a check forbidding the default and additional feature names
func NewNoIllegalFeatures(additional ...string) *NoIllegalFeatures {
	return &NoIllegalFeatures{Additional: additional}
}

func (c *NoIllegalFeatures) ID() string {
	return "NoIllegalFeatures(" + strings.Join(c.Additional, ",") + ")"
}

func (c *NoIllegalFeatures) RequiredInspections() []inspections.Inspection {
	return nil
}

// Evaluate collects the feature columns every train data operator feeds into an estimator
func (c *NoIllegalFeatures) Evaluate(result *inspections.Result) (*Result, error) {
	illegal := map[string]bool{}
	for _, name := range append(append([]string{}, DefaultIllegalFeatures...), c.Additional...) {
		illegal[name] = true
	}
	used := map[string]bool{}
	for _, node := range result.DAG.Nodes() {
		if node.Operator != dag.TrainData {
			continue
		}
		for _, column := range usedColumns(result.DAG, node) {
			if illegal[column] {
				used[column] = true
			}
		}
	}
	columns := make([]string, 0, len(used))
	for column := range used {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		return &Result{Check: c, Status: Success}, nil
	}
	return &Result{
		Check:       c,
		Status:      Failure,
		Description: fmt.Sprintf("Used illegal columns: %v", columns),
		Details:     columns,
	}, nil
}

// usedColumns returns the columns projected out of train data, or all of them when the data is used as a whole
func usedColumns(graph *dag.Graph, trainData *dag.Node) []string {
	var projected []string
	for _, child := range graph.Children(trainData.ID) {
		if child.Operator == dag.Projection {
			projected = append(projected, child.Columns...)
		}
	}
	if len(projected) == 0 {
		return trainData.Columns
	}
	return projected
}
