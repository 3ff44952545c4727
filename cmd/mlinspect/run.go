package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/viant/mlinspect"
	"github.com/viant/mlinspect/checks"
	"github.com/viant/mlinspect/config"
	"github.com/viant/mlinspect/instrumentation"
	"github.com/viant/mlinspect/instrumentation/dag"
)

var (
	runConfigURL string
	runPipeline  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run a pipeline with inspections and checks",
	Example: `  $ mlinspect run -c inspect.yaml
  $ mlinspect run -c inspect.yaml -p healthcare`,
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigURL, "config", "c", "", "config URL")
	runCmd.Flags().StringVarP(&runPipeline, "pipeline", "p", "", "registered pipeline, overrides the config")
	_ = runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := config.Load(ctx, runConfigURL)
	if err != nil {
		return err
	}
	if runPipeline != "" {
		cfg.Pipeline = runPipeline
	}
	builder, err := newBuilder(ctx, cfg)
	if err != nil {
		return err
	}
	inspectionList, err := cfg.Inspections()
	if err != nil {
		return err
	}
	checkList, err := cfg.Checks()
	if err != nil {
		return err
	}
	result, err := builder.AddRequiredInspections(inspectionList...).AddChecks(checkList...).Execute(ctx)
	if err != nil {
		return err
	}
	printInfo("%s: %d operators", cfg.Pipeline, result.Inspection.DAG.Len())
	failed := 0
	for _, checkResult := range result.Checks() {
		printCheck(checkResult)
		if checkResult.Status == checks.Failure {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(result.Checks()))
	}
	return nil
}

// newBuilder creates a builder for the configured pipeline with logging and DAG export applied
func newBuilder(ctx context.Context, cfg *config.Config) (*mlinspect.Builder, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(level)
	if cfg.Pipeline == "" {
		return nil, fmt.Errorf("pipeline was empty, available: %v", mlinspect.Pipelines())
	}
	builder := mlinspect.OnRegisteredPipeline(cfg.Pipeline).
		WithOptions(instrumentation.WithLocatorCacheSize(cfg.LocatorCacheSize))
	if cfg.DAG != "" {
		builder.WithOptions(instrumentation.WithDAGExporter(dag.NewYAMLExporter(ctx, cfg.DAG)))
	}
	return builder, nil
}
