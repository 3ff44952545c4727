package learn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gota/gota/dataframe"
	"github.com/viant/mlinspect/host/frame"
	"github.com/viant/mlinspect/instrumentation"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// TrainTestSplitModule identifies the instrumented split function
var TrainTestSplitModule = wir.Module{Package: "learn", Function: "TrainTestSplit"}

// Split holds both parts of a split; Positions lists the source row of every train row followed by every test row
type Split struct {
	Train     dataframe.DataFrame
	Test      dataframe.DataFrame
	Positions []int
}

// TrainTestSplit shuffles data rows with seed and splits off testSize share of them as test data
func TrainTestSplit(data *frame.Frame, testSize float64, seed int64) (train, test *frame.Frame) {
	if data.Err != nil {
		return data, data
	}
	ctx, session := data.Context(), data.Session()
	call := session.CallSite(ctx, TrainTestSplitModule, wir.Call, 0)
	call.ArgOrigins = []*instrumentation.Origin{data.Origin()}
	value, err := session.Invoke(call, nil, []any{data.DataFrame(), testSize, seed}, nil, func(_ any, args []any, _ map[string]any) (any, error) {
		return split(args[0].(dataframe.DataFrame), args[1].(float64), args[2].(int64))
	})
	if err != nil {
		failed := frame.Failed(ctx, session, err)
		return failed, failed
	}
	parts := value.(*Split)
	id := call.NodeID()
	train = frame.Wrap(ctx, session, parts.Train, &instrumentation.Origin{Node: id})
	test = frame.Wrap(ctx, session, parts.Test, &instrumentation.Origin{Node: id, Offset: parts.Train.Nrow()})
	return train, test
}

func split(df dataframe.DataFrame, testSize float64, seed int64) (*Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, fmt.Errorf("test size should be between 0 and 1, but had %v", testSize)
	}
	rows := df.Nrow()
	testRows := int(math.Ceil(testSize * float64(rows)))
	if testRows < 1 || testRows >= rows {
		return nil, fmt.Errorf("cannot split %d rows with test size %v", rows, testSize)
	}
	permutation := rand.New(rand.NewSource(seed)).Perm(rows)
	testPositions, trainPositions := permutation[:testRows], permutation[testRows:]
	result := &Split{
		Train:     df.Subset(trainPositions),
		Test:      df.Subset(testPositions),
		Positions: append(append([]int{}, trainPositions...), testPositions...),
	}
	if result.Train.Err != nil {
		return nil, result.Train.Err
	}
	return result, result.Test.Err
}
