package mlinspect

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/mlinspect/instrumentation"
)

// Pipeline is an instrumented pipeline: it builds its frames and models on the supplied session
type Pipeline func(ctx context.Context, session *instrumentation.Session) error

var registry = struct {
	sync.RWMutex
	pipelines map[string]Pipeline
}{pipelines: map[string]Pipeline{}}

// Register makes a pipeline available by name
func Register(name string, pipeline Pipeline) {
	registry.Lock()
	defer registry.Unlock()
	registry.pipelines[name] = pipeline
}

// Lookup returns a registered pipeline
func Lookup(name string) (Pipeline, bool) {
	registry.RLock()
	defer registry.RUnlock()
	pipeline, ok := registry.pipelines[name]
	return pipeline, ok
}

// Pipelines returns sorted registered pipeline names
func Pipelines() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.pipelines))
	for name := range registry.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
