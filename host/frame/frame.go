package frame

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/viant/afs"
	"github.com/viant/mlinspect/instrumentation"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// Instrumented frame functions
var (
	ReadCSVModule    = wir.Module{Package: "frame", Function: "ReadCSV"}
	MergeModule      = wir.Module{Package: "frame.Frame", Function: "Merge"}
	IndexModule      = wir.Module{Package: "frame.Frame", Function: "Index"}
	AssignModule     = wir.Module{Package: "frame.Frame", Function: "Assign"}
	DropNAModule     = wir.Module{Package: "frame.Frame", Function: "DropNA"}
	ReplaceModule    = wir.Module{Package: "frame.Frame", Function: "Replace"}
	GroupByAggModule = wir.Module{Package: "frame.Frame", Function: "GroupByAgg"}
)

// DefaultNaNValues are the CSV cells read as missing values
var DefaultNaNValues = []string{"?", "NA", "NaN", ""}

// Frame is an instrumented gota DataFrame. As with gota, an error sticks to the frame:
// operations on a frame carrying Err return a frame with the same error.
type Frame struct {
	ctx     context.Context
	session *instrumentation.Session
	df      dataframe.DataFrame
	origin  *instrumentation.Origin
	Err     error
}

// Origin returns the node the frame rows come from
func (f *Frame) Origin() *instrumentation.Origin {
	if f == nil {
		return nil
	}
	return f.origin
}

// DataFrame returns the underlying gota frame
func (f *Frame) DataFrame() dataframe.DataFrame {
	return f.df
}

// Session returns the instrumentation session
func (f *Frame) Session() *instrumentation.Session {
	return f.session
}

// Context returns the context the frame was created with
func (f *Frame) Context() context.Context {
	return f.ctx
}

// Nrow returns number of rows
func (f *Frame) Nrow() int {
	return f.df.Nrow()
}

// Names returns column names
func (f *Frame) Names() []string {
	return f.df.Names()
}

// Col returns a column, reading a column is not an operator
func (f *Frame) Col(name string) series.Series {
	return f.df.Col(name)
}

func (f *Frame) String() string {
	return f.df.String()
}

// Wrap creates a frame produced by an instrumented call
func Wrap(ctx context.Context, session *instrumentation.Session, df dataframe.DataFrame, origin *instrumentation.Origin) *Frame {
	return &Frame{ctx: ctx, session: session, df: df, origin: origin, Err: df.Err}
}

// Failed creates a frame carrying an error
func Failed(ctx context.Context, session *instrumentation.Session, err error) *Frame {
	return &Frame{ctx: ctx, session: session, Err: err}
}

func (f *Frame) failed(err error) *Frame {
	return Failed(f.ctx, f.session, err)
}

func (f *Frame) result(call *instrumentation.Call, value any, err error) *Frame {
	if err != nil {
		return f.failed(err)
	}
	df, ok := value.(dataframe.DataFrame)
	if !ok {
		return f.failed(fmt.Errorf("%v returned %T", call.Module, value))
	}
	return Wrap(f.ctx, f.session, df, &instrumentation.Origin{Node: call.NodeID()})
}

// ReadCSV loads a CSV file from any afs supported URL
func ReadCSV(ctx context.Context, session *instrumentation.Session, URL string, options ...dataframe.LoadOption) *Frame {
	holder := &Frame{ctx: ctx, session: session}
	call := session.CallSite(ctx, ReadCSVModule, wir.Call, 0)
	if len(options) == 0 {
		options = []dataframe.LoadOption{dataframe.NaNValues(DefaultNaNValues)}
	}
	value, err := session.Invoke(call, nil, []any{URL}, nil, func(_ any, args []any, _ map[string]any) (any, error) {
		location := args[0].(string)
		data, err := afs.New().DownloadWithURL(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to read %v: %w", location, err)
		}
		df := dataframe.ReadCSV(bytes.NewReader(data), options...)
		return df, df.Err
	})
	return holder.result(call, value, err)
}

// FileName returns the base name of a location, used to describe data sources
func FileName(URL string) string {
	return path.Base(URL)
}

// Merge inner joins the frame with right on the key columns
func (f *Frame) Merge(right *Frame, on ...string) *Frame {
	if f.Err != nil {
		return f.failed(f.Err)
	}
	if right.Err != nil {
		return f.failed(right.Err)
	}
	call := f.session.CallSite(f.ctx, MergeModule, wir.Call, 0)
	call.ValueOrigin = f.origin
	call.ArgOrigins = []*instrumentation.Origin{right.origin}
	value, err := f.session.Invoke(call, f.df, []any{right.df, on}, nil, func(value any, args []any, _ map[string]any) (any, error) {
		joined := value.(dataframe.DataFrame).InnerJoin(args[0].(dataframe.DataFrame), args[1].([]string)...)
		return joined, joined.Err
	})
	return f.result(call, value, err)
}

// Index subscripts the frame: a []string key projects columns, a []bool mask selects rows
func (f *Frame) Index(key any) *Frame {
	if f.Err != nil {
		return f.failed(f.Err)
	}
	call := f.session.CallSite(f.ctx, IndexModule, wir.Subscript, 0)
	call.ValueOrigin = f.origin
	value, err := f.session.Invoke(call, f.df, []any{key}, nil, func(value any, args []any, _ map[string]any) (any, error) {
		df := value.(dataframe.DataFrame)
		var result dataframe.DataFrame
		switch actual := args[0].(type) {
		case []string:
			result = df.Select(actual)
		case []bool:
			if len(actual) != df.Nrow() {
				return nil, fmt.Errorf("mask has %d values for %d rows", len(actual), df.Nrow())
			}
			result = df.Subset(MaskPositions(actual))
		default:
			return nil, fmt.Errorf("unsupported subscript key: %T", args[0])
		}
		return result, result.Err
	})
	return f.result(call, value, err)
}

// MaskPositions returns the positions of true mask values
func MaskPositions(mask []bool) []int {
	positions := make([]int, 0, len(mask))
	for i, selected := range mask {
		if selected {
			positions = append(positions, i)
		}
	}
	return positions
}

// Assign sets a column, replacing an existing one with the same name
func (f *Frame) Assign(name string, values series.Series) *Frame {
	if f.Err != nil {
		return f.failed(f.Err)
	}
	call := f.session.CallSite(f.ctx, AssignModule, wir.Call, 0)
	call.ValueOrigin = f.origin
	value, err := f.session.Invoke(call, f.df, []any{name, values}, nil, func(value any, args []any, _ map[string]any) (any, error) {
		column := args[1].(series.Series).Copy()
		column.Name = args[0].(string)
		result := value.(dataframe.DataFrame).Mutate(column)
		return result, result.Err
	})
	return f.result(call, value, err)
}

// DropNA removes rows with a missing value in any of the columns, all columns when none are given
func (f *Frame) DropNA(columns ...string) *Frame {
	if f.Err != nil {
		return f.failed(f.Err)
	}
	call := f.session.CallSite(f.ctx, DropNAModule, wir.Call, 0)
	call.ValueOrigin = f.origin
	value, err := f.session.Invoke(call, f.df, []any{columns}, nil, func(value any, args []any, _ map[string]any) (any, error) {
		df := value.(dataframe.DataFrame)
		columns := args[0].([]string)
		if len(columns) == 0 {
			columns = df.Names()
		}
		mask := make([]bool, df.Nrow())
		for i := range mask {
			mask[i] = true
		}
		for _, column := range columns {
			for i, missing := range df.Col(column).IsNaN() {
				if missing {
					mask[i] = false
				}
			}
		}
		result := df.Subset(MaskPositions(mask))
		return result, result.Err
	})
	return f.result(call, value, err)
}

// Replace substitutes old with replacement in a column
func (f *Frame) Replace(column, old, replacement string) *Frame {
	if f.Err != nil {
		return f.failed(f.Err)
	}
	call := f.session.CallSite(f.ctx, ReplaceModule, wir.Call, 0)
	call.ValueOrigin = f.origin
	value, err := f.session.Invoke(call, f.df, []any{column, old, replacement}, nil, func(value any, args []any, _ map[string]any) (any, error) {
		df := value.(dataframe.DataFrame)
		name := args[0].(string)
		source := df.Col(name)
		values := make([]string, source.Len())
		for i := 0; i < source.Len(); i++ {
			element := source.Elem(i)
			switch {
			case element.IsNA():
				values[i] = "NaN"
			case element.String() == args[1].(string):
				values[i] = args[2].(string)
			default:
				values[i] = element.String()
			}
		}
		result := df.Mutate(series.New(values, source.Type(), name))
		return result, result.Err
	})
	return f.result(call, value, err)
}

// GroupByAgg groups rows by a column and aggregates another one into name.
// Supported functions are mean, sum, count, min and max.
func (f *Frame) GroupByAgg(by, column, function, name string) *Frame {
	if f.Err != nil {
		return f.failed(f.Err)
	}
	call := f.session.CallSite(f.ctx, GroupByAggModule, wir.Call, 0)
	call.ValueOrigin = f.origin
	value, err := f.session.Invoke(call, f.df, []any{by, column, function, name}, nil, func(value any, args []any, _ map[string]any) (any, error) {
		return groupByAgg(value.(dataframe.DataFrame), args[0].(string), args[1].(string), args[2].(string), args[3].(string))
	})
	return f.result(call, value, err)
}
