package source

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/viant/afs"
	"github.com/viant/mlinspect/instrumentation/wir"
)

// DefaultCacheSize is the default number of parsed source files kept by a locator
const DefaultCacheSize = 64

// Site is a resolved call site
type Site struct {
	Ref  wir.CodeReference
	Code string
}

type parsedFile struct {
	src  []byte
	root *sitter.Node
}

type lineKey struct {
	file     string
	line     int
	function string
}

// Locator resolves runtime call sites to code references by parsing the caller's Go source.
// Results are memoized per program counter, distinct program counters on one line are
// assigned to the calls of that line in evaluation order.
type Locator struct {
	fs    afs.Service
	files *lru.Cache[string, *parsedFile]
	sites map[uintptr]*Site
	pcs   map[lineKey][]uintptr
}

// Locate returns the call site of a function called at file:line
func (l *Locator) Locate(ctx context.Context, pc uintptr, file string, line int, function string) *Site {
	if site, ok := l.sites[pc]; ok {
		return site
	}
	key := lineKey{file: file, line: line, function: function}
	l.pcs[key] = append(l.pcs[key], pc)
	occurrence := len(l.pcs[key]) - 1
	site, err := l.locate(ctx, key, occurrence)
	if err != nil {
		site = &Site{Ref: wir.CodeReference{File: file, Line: line, ColStart: occurrence, LineEnd: line, ColEnd: occurrence + 1}}
	}
	l.sites[pc] = site
	return site
}

func (l *Locator) locate(ctx context.Context, key lineKey, occurrence int) (*Site, error) {
	parsed, err := l.parse(ctx, key.file)
	if err != nil {
		return nil, err
	}
	calls := findCalls(parsed.root, parsed.src, key.line-1, key.function)
	if len(calls) == 0 {
		return nil, fmt.Errorf("no call to %v at %v:%d", key.function, key.file, key.line)
	}
	if occurrence >= len(calls) {
		return nil, fmt.Errorf("call %d of %v at %v:%d, but found %d calls", occurrence+1, key.function, key.file, key.line, len(calls))
	}
	call := calls[occurrence]
	return &Site{
		Ref: wir.CodeReference{
			File:     key.file,
			Line:     int(call.StartPoint().Row) + 1,
			ColStart: int(call.StartPoint().Column),
			LineEnd:  int(call.EndPoint().Row) + 1,
			ColEnd:   int(call.EndPoint().Column),
		},
		Code: call.Content(parsed.src),
	}, nil
}

func (l *Locator) parse(ctx context.Context, file string) (*parsedFile, error) {
	if parsed, ok := l.files.Get(file); ok {
		return parsed, nil
	}
	src, err := l.fs.DownloadWithURL(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %v: %w", file, err)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source %v: %w", file, err)
	}
	parsed := &parsedFile{src: src, root: tree.RootNode()}
	l.files.Add(file, parsed)
	return parsed, nil
}

// findCalls returns calls of function whose name starts on row in evaluation order:
// receivers and arguments come before the call using them, siblings left to right
func findCalls(root *sitter.Node, src []byte, row int, function string) []*sitter.Node {
	var result []*sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if int(n.StartPoint().Row) > row || int(n.EndPoint().Row) < row {
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
		if n.Type() != "call_expression" {
			return
		}
		if name := calledName(n); name != nil && int(name.StartPoint().Row) == row && name.Content(src) == function {
			result = append(result, n)
		}
	}
	visit(root)
	return result
}

func calledName(call *sitter.Node) *sitter.Node {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return nil
	}
	switch fn.Type() {
	case "selector_expression":
		return fn.ChildByFieldName("field")
	case "identifier":
		return fn
	}
	return nil
}

// NewLocator creates a locator caching up to cacheSize parsed files
func NewLocator(cacheSize int) (*Locator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	files, err := lru.New[string, *parsedFile](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Locator{
		fs:    afs.New(),
		files: files,
		sites: map[uintptr]*Site{},
		pcs:   map[lineKey][]uintptr{},
	}, nil
}
