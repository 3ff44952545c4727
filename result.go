package mlinspect

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/viant/mlinspect/checks"
	"github.com/viant/mlinspect/inspections"
)

// Result is the outcome of an inspected pipeline run
type Result struct {
	Inspection   *inspections.Result
	CheckResults map[string]*checks.Result // check ID -> result
	order        []string
}

// Checks returns check results in the order checks were added
func (r *Result) Checks() []*checks.Result {
	result := make([]*checks.Result, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.CheckResults[id])
	}
	return result
}

// CheckResultsAsDataFrame tabulates check results with columns check_name, status and description
func CheckResultsAsDataFrame(results []*checks.Result) dataframe.DataFrame {
	names := make([]string, len(results))
	statuses := make([]string, len(results))
	descriptions := make([]string, len(results))
	for i, result := range results {
		names[i] = result.Check.ID()
		statuses[i] = string(result.Status)
		descriptions[i] = result.Description
	}
	return dataframe.New(
		series.New(names, series.String, "check_name"),
		series.New(statuses, series.String, "status"),
		series.New(descriptions, series.String, "description"),
	)
}
