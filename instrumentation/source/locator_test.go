package source

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mlinspect/instrumentation/wir"
)

func where() (uintptr, string, int) {
	pc, file, line, _ := runtime.Caller(1)
	return pc, file, line
}

type caller struct {
	pc   uintptr
	file string
	line int
}

func here() caller {
	pc, file, line, _ := runtime.Caller(1)
	return caller{pc: pc, file: file, line: line}
}

func TestLocator_Locate(t *testing.T) {
	locator, err := NewLocator(2)
	require.NoError(t, err)
	ctx := context.Background()

	pc, file, line := where()
	site := locator.Locate(ctx, pc, file, line, "where")
	assert.Equal(t, "where()", site.Code)
	assert.Equal(t, file, site.Ref.File)
	assert.Equal(t, line, site.Ref.Line)
	assert.Equal(t, line, site.Ref.LineEnd)
	assert.Same(t, site, locator.Locate(ctx, pc, file, line, "where"))

	callers := []caller{here(), here()}
	first := locator.Locate(ctx, callers[0].pc, callers[0].file, callers[0].line, "here")
	second := locator.Locate(ctx, callers[1].pc, callers[1].file, callers[1].line, "here")
	assert.NotEqual(t, first.Ref, second.Ref)
	assert.Less(t, first.Ref.ColStart, second.Ref.ColStart)
	assert.Equal(t, "here()", second.Code)

	missing := locator.Locate(ctx, 42, "/nonexistent/pipeline.go", 7, "Merge")
	assert.Equal(t, wir.CodeReference{File: "/nonexistent/pipeline.go", Line: 7, LineEnd: 7, ColEnd: 1}, missing.Ref)
	assert.Empty(t, missing.Code)
}

func TestLocator_LocateAcrossFiles(t *testing.T) {
	src := []byte(`package pipeline

func load() {
	data := frame.ReadCSV(ctx, session, URL)
}
`)
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"patients.go", "histories.go"} {
		file := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(file, src, 0644))
		files = append(files, file)
	}
	locator, err := NewLocator(DefaultCacheSize)
	require.NoError(t, err)
	ctx := context.Background()

	testCases := []struct {
		description string
		pc          uintptr
		file        string
		line        int
		function    string
	}{
		{description: "patients", pc: 1, file: files[0], line: 4, function: "ReadCSV"},
		{description: "histories", pc: 2, file: files[1], line: 4, function: "ReadCSV"},
		{description: "unparsable location", pc: 3, file: filepath.Join(dir, "missing.go"), line: 4, function: "ReadCSV"},
		{description: "second unparsable location", pc: 4, file: filepath.Join(dir, "other.go"), line: 4, function: "ReadCSV"},
	}
	seen := map[wir.CodeReference]string{}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			site := locator.Locate(ctx, testCase.pc, testCase.file, testCase.line, testCase.function)
			assert.Equal(t, testCase.file, site.Ref.File)
			previous, ok := seen[site.Ref]
			assert.False(t, ok, "%v shares a reference with %v", testCase.description, previous)
			seen[site.Ref] = testCase.description
		})
	}
	first := locator.Locate(ctx, 1, files[0], 4, "ReadCSV")
	second := locator.Locate(ctx, 2, files[1], 4, "ReadCSV")
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Ref.Line, second.Ref.Line)
	assert.Equal(t, first.Ref.ColStart, second.Ref.ColStart)
}

func TestFindCalls(t *testing.T) {
	src := []byte(`package main

func main() {
	data := patients.Merge(histories, "ssn").Merge(complications, "age_group")
	split(data)
	joined := other.Index(columns).Merge(patients.Merge(histories, "ssn"), "ssn")
	a, b := frame.ReadCSV(ctx, session, first), frame.ReadCSV(ctx, session, second)
	combined := merge(merge(a, b), merge(c, d))
}
`)
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)

	testCases := []struct {
		description string
		row         int
		function    string
		expect      []string
	}{
		{
			description: "chained calls, receiver first",
			row:         3,
			function:    "Merge",
			expect: []string{
				`patients.Merge(histories, "ssn")`,
				`patients.Merge(histories, "ssn").Merge(complications, "age_group")`,
			},
		},
		{
			description: "no call",
			row:         3,
			function:    "Index",
		},
		{
			description: "plain function",
			row:         4,
			function:    "split",
			expect:      []string{"split(data)"},
		},
		{
			description: "nested argument call before the enclosing call",
			row:         5,
			function:    "Merge",
			expect: []string{
				`patients.Merge(histories, "ssn")`,
				`other.Index(columns).Merge(patients.Merge(histories, "ssn"), "ssn")`,
			},
		},
		{
			description: "repeated calls left to right",
			row:         6,
			function:    "ReadCSV",
			expect: []string{
				"frame.ReadCSV(ctx, session, first)",
				"frame.ReadCSV(ctx, session, second)",
			},
		},
		{
			description: "arguments left to right, then the enclosing call",
			row:         7,
			function:    "merge",
			expect: []string{
				"merge(a, b)",
				"merge(c, d)",
				"merge(merge(a, b), merge(c, d))",
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			var actual []string
			for _, call := range findCalls(tree.RootNode(), src, testCase.row, testCase.function) {
				actual = append(actual, call.Content(src))
			}
			assert.Equal(t, testCase.expect, actual)
		})
	}
}
