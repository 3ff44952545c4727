package checks

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/viant/mlinspect/instrumentation/dag"
)

// DistributionChangesOverview tabulates a NoBiasIntroducedFor result, one row per relevant operator
func DistributionChangesOverview(result *Result) (dataframe.DataFrame, error) {
	check, ok := result.Check.(*NoBiasIntroducedFor)
	if !ok {
		return dataframe.DataFrame{}, fmt.Errorf("expected %T result, but had %T", check, result.Check)
	}
	changes, _ := result.Details.([]*BiasDistributionChange)
	var nodes []*dag.Node
	byNode := map[dag.NodeID]map[string]*BiasDistributionChange{}
	for _, change := range changes {
		if _, ok := byNode[change.Node.ID]; !ok {
			byNode[change.Node.ID] = map[string]*BiasDistributionChange{}
			nodes = append(nodes, change.Node)
		}
		byNode[change.Node.ID][change.Column] = change
	}
	operators := make([]string, len(nodes))
	descriptions := make([]string, len(nodes))
	references := make([]string, len(nodes))
	code := make([]string, len(nodes))
	modules := make([]string, len(nodes))
	for i, node := range nodes {
		operators[i] = string(node.Operator)
		descriptions[i] = node.Description
		references[i] = node.ID.Ref.String()
		code[i] = node.SourceCode
		modules[i] = node.Module.String()
	}
	columns := []series.Series{
		series.New(operators, series.String, "operator_type"),
		series.New(descriptions, series.String, "description"),
		series.New(references, series.String, "code_reference"),
		series.New(code, series.String, "source_code"),
		series.New(modules, series.String, "module"),
	}
	for _, column := range check.SensitiveColumns {
		belowMinimum := make([]bool, len(nodes))
		aboveMaximum := make([]bool, len(nodes))
		for i, node := range nodes {
			if change, ok := byNode[node.ID][column]; ok {
				belowMinimum[i] = !change.AcceptableChange
				aboveMaximum[i] = !change.AcceptableProbabilityDifference
			}
		}
		columns = append(columns,
			series.New(belowMinimum, series.Bool, fmt.Sprintf("'%v' distribution change below the configured minimum test threshold", column)),
			series.New(aboveMaximum, series.Bool, fmt.Sprintf("'%v' probability difference above the configured maximum test threshold", column)),
		)
	}
	df := dataframe.New(columns...)
	return df, df.Err
}
