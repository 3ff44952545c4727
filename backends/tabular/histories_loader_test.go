package tabular

import (
	"context"

	"github.com/viant/mlinspect/host/frame"
	"github.com/viant/mlinspect/instrumentation"
)

func loadHistories(ctx context.Context, session *instrumentation.Session, URL string) *frame.Frame {
	return frame.ReadCSV(ctx, session, URL)
}
