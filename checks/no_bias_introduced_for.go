package checks

import (
	"fmt"
	"math"
	"strings"

	"github.com/viant/mlinspect/host/learn"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation/dag"
)

// Default thresholds of NoBiasIntroducedFor
const (
	DefaultMinAllowedRelativeRatioChange   = -0.3
	DefaultMaxAllowedProbabilityDifference = 2.0
)

// DistributionRow compares the before and after count of one sensitive value
type DistributionRow struct {
	Value                        inspections.Category
	CountBefore                  int
	CountAfter                   int
	RatioBefore                  float64
	RatioAfter                   float64
	RelativeRatioChange          float64
	RemovedRecords               int
	RemovalProbability           float64
	NormalizedRemovalProbability float64
}

// BiasDistributionChange describes how an operator changed the distribution of a sensitive column
type BiasDistributionChange struct {
	Node                            *dag.Node
	Column                          string
	AcceptableChange                bool
	MinRelativeRatioChange          float64
	AcceptableProbabilityDifference bool
	MaxProbabilityDifference        float64
	Rows                            []DistributionRow
}

// NoBiasIntroducedFor fails when joins, selections or imputations shift the distribution of sensitive columns
type NoBiasIntroducedFor struct {
	SensitiveColumns                []string
	MinAllowedRelativeRatioChange   float64
	MaxAllowedProbabilityDifference float64
}

// NewNoBiasIntroducedFor creates a bias check with default thresholds
func NewNoBiasIntroducedFor(sensitiveColumns ...string) *NoBiasIntroducedFor {
	return &NoBiasIntroducedFor{
		SensitiveColumns:                sensitiveColumns,
		MinAllowedRelativeRatioChange:   DefaultMinAllowedRelativeRatioChange,
		MaxAllowedProbabilityDifference: DefaultMaxAllowedProbabilityDifference,
	}
}

func (c *NoBiasIntroducedFor) ID() string {
	return fmt.Sprintf("NoBiasIntroducedFor(%v, %v, %v)", strings.Join(c.SensitiveColumns, ","), c.MinAllowedRelativeRatioChange, c.MaxAllowedProbabilityDifference)
}

func (c *NoBiasIntroducedFor) histogram() *inspections.HistogramForColumns {
	return inspections.NewHistogramForColumns(c.SensitiveColumns...)
}

func (c *NoBiasIntroducedFor) RequiredInspections() []inspections.Inspection {
	return []inspections.Inspection{c.histogram()}
}

func (c *NoBiasIntroducedFor) relevant(node *dag.Node) bool {
	switch node.Operator {
	case dag.Join, dag.Selection:
		return true
	}
	if node.Module != learn.SimpleImputerModule || len(node.Columns) == 0 {
		return false
	}
	for _, column := range c.SensitiveColumns {
		if node.Columns[0] == column {
			return true
		}
	}
	return false
}

// Evaluate compares the sensitive column histograms of every relevant operator with the ones of its parents
func (c *NoBiasIntroducedFor) Evaluate(result *inspections.Result) (*Result, error) {
	if err := ValidateRequired(c, result); err != nil {
		return nil, err
	}
	histograms := result.OutputsOf(c.histogram())
	nodes, err := result.DAG.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	histogramOf := func(node *dag.Node, column string) (inspections.Histogram, error) {
		output, ok := histograms[node.ID].(inspections.ColumnHistograms)
		if !ok {
			return nil, fmt.Errorf("no histogram for %v %v: %w", node.Operator, node.ID, ErrMissingInspection)
		}
		return output[column], nil
	}
	var changes []*BiasDistributionChange
	var issues []string
	for _, node := range nodes {
		if !c.relevant(node) {
			continue
		}
		for _, column := range c.SensitiveColumns {
			after, err := histogramOf(node, column)
			if err != nil {
				return nil, err
			}
			before := inspections.Histogram{}
			for _, parent := range result.DAG.Parents(node.ID) {
				histogram, err := histogramOf(parent, column)
				if err != nil {
					return nil, err
				}
				for category, count := range histogram {
					before[category] += count
				}
			}
			change := c.DistributionChange(before, after)
			change.Node = node
			change.Column = column
			changes = append(changes, change)
			if !change.AcceptableChange {
				issues = append(issues, fmt.Sprintf("A %v causes a min_relative_ratio_change of '%v' by %v, a value below the configured minimum threshold %v!",
					node.Operator, column, change.MinRelativeRatioChange, c.MinAllowedRelativeRatioChange))
			}
			if !change.AcceptableProbabilityDifference {
				issues = append(issues, fmt.Sprintf("A %v causes a max_probability_difference of '%v' by %v, a value above the configured maximum threshold %v!",
					node.Operator, column, change.MaxProbabilityDifference, c.MaxAllowedProbabilityDifference))
			}
		}
	}
	status := Success
	if len(issues) > 0 {
		status = Failure
	}
	return &Result{Check: c, Status: status, Description: strings.Join(issues, " "), Details: changes}, nil
}

// DistributionChange outer joins before and after histograms and computes the change metrics.
// Zero denominators yield NaN, NaN metrics never violate a threshold.
func (c *NoBiasIntroducedFor) DistributionChange(before, after inspections.Histogram) *BiasDistributionChange {
	union := inspections.Histogram{}
	for category := range before {
		union[category] = 0
	}
	for category := range after {
		union[category] = 0
	}
	totalBefore, totalAfter := before.Total(), after.Total()
	change := &BiasDistributionChange{MinRelativeRatioChange: math.NaN()}
	minRemoval := math.NaN()
	for _, category := range union.Categories() {
		row := DistributionRow{Value: category, CountBefore: before[category], CountAfter: after[category]}
		row.RatioBefore = divide(float64(row.CountBefore), float64(totalBefore))
		row.RatioAfter = divide(float64(row.CountAfter), float64(totalAfter))
		row.RelativeRatioChange = divide(row.RatioAfter-row.RatioBefore, row.RatioBefore)
		row.RemovedRecords = row.CountBefore - row.CountAfter
		row.RemovalProbability = divide(float64(row.RemovedRecords), float64(row.CountBefore))
		if row.RemovalProbability > 0 && (math.IsNaN(minRemoval) || row.RemovalProbability < minRemoval) {
			minRemoval = row.RemovalProbability
		}
		if !category.Missing {
			change.MinRelativeRatioChange = nanMin(change.MinRelativeRatioChange, row.RelativeRatioChange)
		}
		change.Rows = append(change.Rows, row)
	}
	for i := range change.Rows {
		row := &change.Rows[i]
		row.NormalizedRemovalProbability = divide(row.RemovalProbability, minRemoval)
		if row.RemovedRecords < 0 {
			row.RemovalProbability = 0
			row.NormalizedRemovalProbability = 0
		}
		change.MaxProbabilityDifference = nanMax(change.MaxProbabilityDifference, row.NormalizedRemovalProbability)
	}
	change.AcceptableChange = math.IsNaN(change.MinRelativeRatioChange) || change.MinRelativeRatioChange >= c.MinAllowedRelativeRatioChange
	change.AcceptableProbabilityDifference = change.MaxProbabilityDifference <= c.MaxAllowedProbabilityDifference
	return change
}

func divide(numerator, denominator float64) float64 {
	if denominator == 0 || math.IsNaN(denominator) || math.IsNaN(numerator) {
		return math.NaN()
	}
	return numerator / denominator
}

func nanMin(current, candidate float64) float64 {
	if math.IsNaN(candidate) {
		return current
	}
	if math.IsNaN(current) || candidate < current {
		return candidate
	}
	return current
}

func nanMax(current, candidate float64) float64 {
	if math.IsNaN(candidate) || candidate <= current {
		return current
	}
	return candidate
}
