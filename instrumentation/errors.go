package instrumentation

import (
	"errors"

	"github.com/viant/mlinspect/instrumentation/dag"
)

var (
	// ErrUnknownOperator reports a call without operator mapping that links operators of the DAG
	ErrUnknownOperator = errors.New("unrecognized operator")
	// ErrGraphShape reports a cycle, a dangling edge or a parentless operator after extraction
	ErrGraphShape = dag.ErrGraphShape
)
