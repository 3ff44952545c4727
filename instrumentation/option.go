package instrumentation

import (
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation/dag"
	"github.com/viant/mlinspect/instrumentation/source"
)

type Option func(*Session)

// WithBackends sets the backends in dispatch priority order
func WithBackends(backends ...Backend) Option {
	return func(s *Session) {
		s.dispatcher = NewDispatcher(backends...)
	}
}

// WithInspections sets the inspections executed for every operator
func WithInspections(inspectionList ...inspections.Inspection) Option {
	return func(s *Session) {
		s.inspections = append(s.inspections, inspectionList...)
	}
}

// WithLocator sets the call site locator
func WithLocator(locator *source.Locator) Option {
	return func(s *Session) {
		s.locator = locator
	}
}

// WithLocatorCacheSize sets the number of parsed source files the default locator keeps
func WithLocatorCacheSize(size int) Option {
	return func(s *Session) {
		s.cacheSize = size
	}
}

// WithDAGExporter registers an exporter receiving the extracted DAG when the session finishes
func WithDAGExporter(exporter dag.Exporter) Option {
	return func(s *Session) {
		s.exporter = exporter
	}
}
