package mlinspect

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/mlinspect/backends/pipeline"
	"github.com/viant/mlinspect/backends/tabular"
	"github.com/viant/mlinspect/checks"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation"
)

// Builder configures and executes an inspected pipeline run
type Builder struct {
	name        string
	pipeline    Pipeline
	inspections []inspections.Inspection
	checks      []checks.Check
	backends    []instrumentation.Backend
	options     []instrumentation.Option
	err         error
}

// OnPipeline creates a builder for a pipeline function
func OnPipeline(fn Pipeline) *Builder {
	return &Builder{name: "pipeline", pipeline: fn}
}

// OnRegisteredPipeline creates a builder for a pipeline registered by name
func OnRegisteredPipeline(name string) *Builder {
	registered, ok := Lookup(name)
	builder := &Builder{name: name, pipeline: registered}
	if !ok {
		builder.err = fmt.Errorf("unknown pipeline: %v, available: %v", name, Pipelines())
	}
	return builder
}

// AddRequiredInspection adds an inspection executed for every operator
func (b *Builder) AddRequiredInspection(inspection inspections.Inspection) *Builder {
	return b.AddRequiredInspections(inspection)
}

func (b *Builder) AddRequiredInspections(inspectionList ...inspections.Inspection) *Builder {
	b.inspections = append(b.inspections, inspectionList...)
	return b
}

// AddCheck adds a check evaluated once the pipeline finished
func (b *Builder) AddCheck(check checks.Check) *Builder {
	return b.AddChecks(check)
}

func (b *Builder) AddChecks(checkList ...checks.Check) *Builder {
	b.checks = append(b.checks, checkList...)
	return b
}

// WithBackends replaces the default frame and learn backends
func (b *Builder) WithBackends(backends ...instrumentation.Backend) *Builder {
	b.backends = backends
	return b
}

// WithOptions adds session options
func (b *Builder) WithOptions(options ...instrumentation.Option) *Builder {
	b.options = append(b.options, options...)
	return b
}

// DefaultBackends returns the frame and learn backends
func DefaultBackends() []instrumentation.Backend {
	return []instrumentation.Backend{tabular.New(), pipeline.New()}
}

// Execute runs the pipeline under instrumentation and evaluates every check
func (b *Builder) Execute(ctx context.Context) (*Result, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.pipeline == nil {
		return nil, fmt.Errorf("pipeline %v was nil", b.name)
	}
	backends := b.backends
	if len(backends) == 0 {
		backends = DefaultBackends()
	}
	inspectionList := append([]inspections.Inspection{}, b.inspections...)
	var checkList []checks.Check
	seen := map[string]bool{}
	for _, check := range b.checks {
		if seen[check.ID()] {
			continue
		}
		seen[check.ID()] = true
		checkList = append(checkList, check)
		inspectionList = append(inspectionList, check.RequiredInspections()...)
	}
	options := append([]instrumentation.Option{
		instrumentation.WithBackends(backends...),
		instrumentation.WithInspections(inspectionList...),
	}, b.options...)
	session := instrumentation.NewSession(options...)
	log := session.Context().Log.WithField("pipeline", b.name)
	log.Infof("executing pipeline with %d inspections and %d checks", len(inspectionList), len(checkList))
	if err := b.pipeline(ctx, session); err != nil {
		return nil, fmt.Errorf("pipeline %v failed: %w", b.name, err)
	}
	inspectionResult, err := session.Finish(ctx)
	if err != nil {
		return nil, err
	}
	for _, check := range checkList {
		if err = checks.ValidateRequired(check, inspectionResult); err != nil {
			return nil, err
		}
	}
	result := &Result{Inspection: inspectionResult, CheckResults: map[string]*checks.Result{}}
	for _, check := range checkList {
		checkResult, err := check.Evaluate(inspectionResult)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %v: %w", check.ID(), err)
		}
		result.CheckResults[check.ID()] = checkResult
		result.order = append(result.order, check.ID())
		if checkResult.Status == checks.Failure {
			log.WithField("check", check.ID()).Warn(checkResult.Description)
		}
	}
	log.WithFields(logrus.Fields{"operators": inspectionResult.DAG.Len(), "checks": len(checkList)}).Info("pipeline inspected")
	return result, nil
}
