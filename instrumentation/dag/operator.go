package dag

// OperatorType classifies what a DAG node does to the data flowing through it
type OperatorType string

const (
	DataSource       OperatorType = "Data Source"
	Join             OperatorType = "Join"
	Selection        OperatorType = "Selection"
	Projection       OperatorType = "Projection"
	ProjectionModify OperatorType = "Projection (Modify)"
	GroupByAgg       OperatorType = "Groupby and Aggregate"
	TrainTestSplit   OperatorType = "Train Test Split"
	Transformer      OperatorType = "Transformer"
	Concatenation    OperatorType = "Concatenation"
	Estimator        OperatorType = "Estimator"
	TrainData        OperatorType = "Train Data"
	TrainLabels      OperatorType = "Train Labels"
	Score            OperatorType = "Score"
	Predict          OperatorType = "Predict"
)

// IsSource returns true for operators that may have no predecessor
func (o OperatorType) IsSource() bool {
	return o == DataSource
}
